package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"webcrud/internal/config"
	apperrors "webcrud/internal/errors"
	"webcrud/internal/model"
	"webcrud/internal/service"
	"webcrud/internal/upload"
	"webcrud/internal/view"
)

// WebHandler serves the HTML pages.
type WebHandler struct {
	svc    service.UserService
	upload config.Upload
	log    logrus.FieldLogger
}

// NewWebHandler creates the page handlers.
func NewWebHandler(svc service.UserService, uploadCfg config.Upload, log logrus.FieldLogger) *WebHandler {
	return &WebHandler{svc: svc, upload: uploadCfg, log: log}
}

// Home redirects to the user listing.
func (h *WebHandler) Home(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/users")
}

// ListUsers renders every user and an empty create form.
func (h *WebHandler) ListUsers(c echo.Context) error {
	return h.renderUsers(c, http.StatusOK, view.UserForm{})
}

func (h *WebHandler) renderUsers(c echo.Context, status int, form view.UserForm) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Render(status, view.PageUsers, view.UsersPage{Title: "Users", Users: users, Form: form})
}

// ShowUser renders one user.
func (h *WebHandler) ShowUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, view.PageUser, view.UserPage{Title: user.Name, User: user})
}

// EditUser renders the edit form filled with the stored values.
func (h *WebHandler) EditUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, view.PageUserEdit, view.UserPage{
		Title: "Edit " + user.Name,
		User:  user,
		Form:  view.FormFromUser(user),
	})
}

// CreateUser handles the create form and redirects to the new user.
func (h *WebHandler) CreateUser(c echo.Context) error {
	var input model.UserInput
	if err := c.Bind(&input); err != nil {
		return err
	}

	user, err := h.svc.CreateUser(c.Request().Context(), input)
	if err != nil {
		form := view.UserForm{Name: input.Name, Email: input.Email, Phone: input.Phone}
		if status, ok := formError(err, &form); ok {
			return h.renderUsers(c, status, form)
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/users/%d", user.ID))
}

// UpdateUser handles the edit form. Fields missing from the form are left
// unchanged.
func (h *WebHandler) UpdateUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	params, err := c.FormParams()
	if err != nil {
		return err
	}

	var update model.UserUpdate
	var form view.UserForm
	if vals, ok := params["name"]; ok && len(vals) > 0 {
		update.Name, form.Name = &vals[0], vals[0]
	}
	if vals, ok := params["email"]; ok && len(vals) > 0 {
		update.Email, form.Email = &vals[0], vals[0]
	}
	if vals, ok := params["phone"]; ok && len(vals) > 0 {
		update.Phone, form.Phone = &vals[0], vals[0]
	}

	if _, err := h.svc.UpdateUser(c.Request().Context(), id, update); err != nil {
		if status, ok := formError(err, &form); ok {
			return c.Render(status, view.PageUserEdit, view.UserPage{
				Title: "Edit user",
				User:  &model.User{ID: id, Name: form.Name},
				Form:  form,
			})
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/users/%d", id))
}

// DeleteUser removes a user and returns to the listing.
func (h *WebHandler) DeleteUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/users")
}

// formError fills form with the messages for errors a user can fix by
// resubmitting.
func formError(err error, form *view.UserForm) (int, bool) {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		form.Errors = verr.Fields
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, apperrors.ErrDuplicateUser):
		form.Errors = map[string]string{"email": "is already taken"}
		return http.StatusConflict, true
	case errors.Is(err, apperrors.ErrConstraintViolation):
		form.Message = "The database rejected these values."
		return http.StatusConflict, true
	default:
		return 0, false
	}
}

// UploadForm renders the upload page.
func (h *WebHandler) UploadForm(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageUpload, h.uploadPage(""))
}

// UploadResult renders the files stored by the upload middleware.
func (h *WebHandler) UploadResult(c echo.Context) error {
	files := upload.FilesFrom(c)
	if file, ok := upload.FileFrom(c); ok {
		files = []model.UploadedFile{*file}
	}
	return c.Render(http.StatusCreated, view.PageUploadResult, view.UploadResultPage{Title: "Uploaded", Files: files})
}

// UploadFailed re-renders the upload page with the rejection message.
// It is passed to the upload middleware as its error handler.
func (h *WebHandler) UploadFailed(c echo.Context, err error) error {
	status := apperrors.MapErrorToHTTP(err).StatusCode
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).Error("upload failed")
	}
	return c.Render(status, view.PageUpload, h.uploadPage(apperrors.UploadMessage(err)))
}

func (h *WebHandler) uploadPage(msg string) view.UploadPage {
	exts := make([]string, 0, len(h.upload.AllowedExts))
	for _, ext := range h.upload.AllowedExts {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	return view.UploadPage{
		Title:    "Upload images",
		Error:    msg,
		Allowed:  strings.Join(exts, ", "),
		MaxSize:  apperrors.HumanSize(h.upload.MaxFileSize),
		MaxFiles: h.upload.MaxFiles,
	}
}
