package handler

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"webcrud/internal/config"
	apperrors "webcrud/internal/errors"
	"webcrud/internal/model"
)

var testUploadConfig = config.Upload{
	Dir:              "unused",
	URLPrefix:        "/uploads",
	MaxFileSize:      2 * 1024 * 1024,
	MaxFiles:         5,
	AllowedExts:      []string{".jpg", ".jpeg", ".png", ".gif"},
	AllowedMIMETypes: []string{"image/jpeg", "image/png", "image/gif"},
}

func newWeb(t *testing.T, svc *MockUserService) (*echo.Echo, *WebHandler) {
	t.Helper()
	e := newTestEcho(t)
	h := NewWebHandler(svc, testUploadConfig, discardLogger())
	e.GET("/", h.Home)
	e.GET("/users", h.ListUsers)
	e.POST("/users", h.CreateUser)
	e.GET("/users/:id", h.ShowUser)
	e.GET("/users/:id/edit", h.EditUser)
	e.POST("/users/:id/update", h.UpdateUser)
	e.POST("/users/:id/delete", h.DeleteUser)
	e.GET("/upload", h.UploadForm)
	return e, h
}

func postForm(e *echo.Echo, target string, form url.Values) (int, string, http.Header) {
	rec := doRequest(e, http.MethodPost, target, echo.MIMEApplicationForm, form.Encode())
	return rec.Code, rec.Body.String(), rec.Header()
}

func TestWebHandler_HomeRedirects(t *testing.T) {
	e, _ := newWeb(t, new(MockUserService))

	rec := doRequest(e, http.MethodGet, "/", "", "")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/users", rec.Header().Get(echo.HeaderLocation))
}

func TestWebHandler_ListUsers(t *testing.T) {
	svc := new(MockUserService)
	svc.On("ListUsers", mock.Anything).Return([]model.User{{ID: 1, Name: "Alice"}}, nil)
	e, _ := newWeb(t, svc)

	rec := doRequest(e, http.MethodGet, "/users", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), `<a href="/users/1">Alice</a>`)
}

func TestWebHandler_CreateUser(t *testing.T) {
	svc := new(MockUserService)
	svc.On("CreateUser", mock.Anything, model.UserInput{Name: "Alice", Email: "alice@example.com"}).
		Return(&model.User{ID: 12, Name: "Alice"}, nil)
	e, _ := newWeb(t, svc)

	status, _, header := postForm(e, "/users", url.Values{"name": {"Alice"}, "email": {"alice@example.com"}})

	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/users/12", header.Get(echo.HeaderLocation))
	svc.AssertExpectations(t)
}

func TestWebHandler_CreateUser_RerendersFormOnValidationError(t *testing.T) {
	svc := new(MockUserService)
	svc.On("CreateUser", mock.Anything, mock.Anything).
		Return(nil, &apperrors.ValidationError{Fields: map[string]string{"name": "is required"}})
	svc.On("ListUsers", mock.Anything).Return([]model.User{}, nil)
	e, _ := newWeb(t, svc)

	status, body, _ := postForm(e, "/users", url.Values{"name": {""}, "email": {"keep@example.com"}})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Name is required")
	assert.Contains(t, body, `value="keep@example.com"`)
}

func TestWebHandler_CreateUser_Duplicate(t *testing.T) {
	svc := new(MockUserService)
	svc.On("CreateUser", mock.Anything, mock.Anything).Return(nil, apperrors.ErrDuplicateUser)
	svc.On("ListUsers", mock.Anything).Return([]model.User{}, nil)
	e, _ := newWeb(t, svc)

	status, body, _ := postForm(e, "/users", url.Values{"name": {"Bob"}, "email": {"bob@example.com"}})

	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, "Email is already taken")
}

func TestWebHandler_ShowUser_NotFoundRendersErrorPage(t *testing.T) {
	svc := new(MockUserService)
	svc.On("GetUser", mock.Anything, uint(99)).Return(nil, apperrors.ErrUserNotFound)
	e, _ := newWeb(t, svc)

	rec := doRequest(e, http.MethodGet, "/users/99", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), "user not found")
}

func TestWebHandler_EditUser(t *testing.T) {
	svc := new(MockUserService)
	email := "carol@example.com"
	svc.On("GetUser", mock.Anything, uint(4)).Return(&model.User{ID: 4, Name: "Carol", Email: &email}, nil)
	e, _ := newWeb(t, svc)

	rec := doRequest(e, http.MethodGet, "/users/4/edit", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="carol@example.com"`)
	assert.Contains(t, rec.Body.String(), `action="/users/4/update"`)
}

func TestWebHandler_UpdateUser(t *testing.T) {
	svc := new(MockUserService)
	svc.On("UpdateUser", mock.Anything, uint(4), model.UserUpdate{Name: strPtr("Caroline")}).
		Return(&model.User{ID: 4, Name: "Caroline"}, nil)
	svc.On("UpdateUser", mock.Anything, uint(5), mock.Anything).
		Return(nil, &apperrors.ValidationError{Fields: map[string]string{"email": "must be a valid email address"}})
	e, _ := newWeb(t, svc)

	status, _, header := postForm(e, "/users/4/update", url.Values{"name": {"Caroline"}})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/users/4", header.Get(echo.HeaderLocation))

	status, body, _ := postForm(e, "/users/5/update", url.Values{"name": {"Dan"}, "email": {"bad"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Email must be a valid email address")
	svc.AssertExpectations(t)
}

func TestWebHandler_DeleteUser(t *testing.T) {
	svc := new(MockUserService)
	svc.On("DeleteUser", mock.Anything, uint(8)).Return(nil)
	e, _ := newWeb(t, svc)

	status, _, header := postForm(e, "/users/8/delete", nil)

	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/users", header.Get(echo.HeaderLocation))
}

func TestWebHandler_UploadForm(t *testing.T) {
	e, _ := newWeb(t, new(MockUserService))

	rec := doRequest(e, http.MethodGet, "/upload", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jpg, jpeg, png, gif")
	assert.Contains(t, rec.Body.String(), "2 MB")
}
