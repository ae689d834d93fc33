package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "webcrud/internal/errors"
	"webcrud/internal/model"
	"webcrud/internal/upload"
)

// UploadHandler reports files stored by the upload middleware.
type UploadHandler struct{}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler() *UploadHandler {
	return &UploadHandler{}
}

// UploadsResponse lists the files stored by one request.
type UploadsResponse struct {
	Files []model.UploadedFile `json:"files"`
	Count int                  `json:"count"`
}

// UploadImage godoc
// @Summary Upload one image
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image (jpg, jpeg, png, gif)"
// @Success 201 {object} model.UploadedFile
// @Failure 400 {object} errors.ErrorResponse
// @Failure 413 {object} errors.ErrorResponse
// @Router /uploads [post]
func (h *UploadHandler) UploadImage(c echo.Context) error {
	file, ok := upload.FileFrom(c)
	if !ok {
		return errorResponse(apperrors.ErrNoFile)
	}
	return c.JSON(http.StatusCreated, file)
}

// UploadImages godoc
// @Summary Upload several images
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param images formData file true "Images (repeat the field per file)"
// @Success 201 {object} UploadsResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 413 {object} errors.ErrorResponse
// @Router /uploads/multiple [post]
func (h *UploadHandler) UploadImages(c echo.Context) error {
	files := upload.FilesFrom(c)
	if files == nil {
		files = []model.UploadedFile{}
	}
	return c.JSON(http.StatusCreated, UploadsResponse{Files: files, Count: len(files)})
}
