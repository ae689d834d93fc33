package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "webcrud/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"webcrud/internal/config"
	"webcrud/internal/db"
	"webcrud/internal/handler"
	"webcrud/internal/logging"
	"webcrud/internal/metrics"
	"webcrud/internal/repository"
	"webcrud/internal/router"
	"webcrud/internal/service"
	"webcrud/internal/upload"
)

// @title webcrud API
// @version 1.0
// @description JSON API for managing users and uploading images.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	gormDB, err := db.NewMySQL(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("database init")
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			log.WithError(err).Warn("close database")
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(gormDB); err != nil {
			log.WithError(err).Fatal("auto-migrate")
		}
	}

	m := metrics.New()
	uploader, err := upload.New(cfg.Upload, m, log)
	if err != nil {
		log.WithError(err).Fatal("upload dir")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB, cfg.Database.QueryTimeout)

	// Initialize services
	userService := service.NewUserService(userRepo, service.NewValidator(), log)

	// Initialize handlers
	userHandler := handler.NewUserHandler(userService)
	uploadHandler := handler.NewUploadHandler()
	webHandler := handler.NewWebHandler(userService, cfg.Upload, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	if err := router.Register(e, cfg, log, gormDB, m, uploader, userHandler, uploadHandler, webHandler); err != nil {
		log.WithError(err).Fatal("register routes")
	}

	log.WithField("url", swaggerURL(cfg)).Info("swagger documentation available")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.ServerPort
	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server start")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown")
	}
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
