package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"
	"gorm.io/gorm"

	"webcrud/docs"
	"webcrud/internal/config"
	"webcrud/internal/db"
	"webcrud/internal/handler"
	"webcrud/internal/logging"
	"webcrud/internal/metrics"
	"webcrud/internal/service"
	"webcrud/internal/upload"
	"webcrud/internal/view"
	"webcrud/web"
)

// formBodyLimit bounds every request body except uploads, which the
// uploader limits itself so it can answer with its own message.
const formBodyLimit = "1M"

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log logrus.FieldLogger,
	gormDB *gorm.DB,
	m *metrics.Metrics,
	uploader *upload.Uploader,
	userHandler *handler.UserHandler,
	uploadHandler *handler.UploadHandler,
	webHandler *handler.WebHandler,
) error {
	renderer, err := view.NewRenderer(web.FS)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	e.Renderer = renderer
	e.Validator = &CustomValidator{validator: service.NewValidator()}
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(log)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(logging.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(m.Middleware())
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Skipper: isUploadRoute,
		Limit:   formBodyLimit,
	}))

	if cfg.SwaggerHost != "" {
		host := strings.TrimPrefix(cfg.SwaggerHost, "https://")
		docs.SwaggerInfo.Host = strings.TrimPrefix(host, "http://")
	}

	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, gormDB); err != nil {
			log.WithError(err).Warn("health check failed")
			return c.String(http.StatusServiceUnavailable, "database unavailable")
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	e.StaticFS("/static", echo.MustSubFS(web.FS, "static"))
	e.Static(cfg.Upload.URLPrefix, cfg.Upload.Dir)

	// Pages
	e.GET("/", webHandler.Home)
	e.GET("/users", webHandler.ListUsers)
	e.POST("/users", webHandler.CreateUser)
	e.GET("/users/:id", webHandler.ShowUser)
	e.GET("/users/:id/edit", webHandler.EditUser)
	e.POST("/users/:id/update", webHandler.UpdateUser)
	e.POST("/users/:id/delete", webHandler.DeleteUser)
	e.GET("/upload", webHandler.UploadForm)
	e.POST("/upload/single", webHandler.UploadResult, uploader.Single("image", webHandler.UploadFailed))
	e.POST("/upload/multiple", webHandler.UploadResult, uploader.Multiple("images", webHandler.UploadFailed))

	api := e.Group("/api/v1")

	api.GET("/users", userHandler.ListUsers)
	api.GET("/users/:id", userHandler.GetUser)
	api.POST("/users", userHandler.CreateUser)
	api.PUT("/users/:id", userHandler.UpdateUser)
	api.DELETE("/users/:id", userHandler.DeleteUser)

	api.POST("/uploads", uploadHandler.UploadImage, uploader.Single("image", nil))
	api.POST("/uploads/multiple", uploadHandler.UploadImages, uploader.Multiple("images", nil))

	return nil
}

func isUploadRoute(c echo.Context) bool {
	p := c.Path()
	return strings.HasPrefix(p, "/upload/") || strings.HasPrefix(p, "/api/v1/uploads")
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return service.ValidationErrorFrom(cv.validator.Struct(i))
}
