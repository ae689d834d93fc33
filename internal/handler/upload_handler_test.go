package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcrud/internal/model"
	"webcrud/internal/upload"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

type filePart struct {
	field, name string
	content     []byte
}

func multipartRequest(t *testing.T, target string, parts ...filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func newUploadEcho(t *testing.T) (*echo.Echo, string) {
	t.Helper()
	cfg := testUploadConfig
	cfg.Dir = t.TempDir()
	cfg.MaxFiles = 2
	uploader, err := upload.New(cfg, nil, discardLogger())
	require.NoError(t, err)

	e := newTestEcho(t)
	api := NewUploadHandler()
	pages := NewWebHandler(new(MockUserService), cfg, discardLogger())
	e.POST("/api/v1/uploads", api.UploadImage, uploader.Single("image", nil))
	e.POST("/api/v1/uploads/multiple", api.UploadImages, uploader.Multiple("images", nil))
	e.POST("/upload/single", pages.UploadResult, uploader.Single("image", pages.UploadFailed))
	e.POST("/upload/multiple", pages.UploadResult, uploader.Multiple("images", pages.UploadFailed))
	return e, cfg.Dir
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestUploadHandler_Single(t *testing.T) {
	e, dir := newUploadEcho(t)

	rec := serve(e, multipartRequest(t, "/api/v1/uploads", filePart{"image", "cat.png", pngBytes}))

	require.Equal(t, http.StatusCreated, rec.Code)
	var file model.UploadedFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &file))
	assert.Equal(t, "cat.png", file.OriginalName)
	assert.Equal(t, "/uploads/"+file.StoredName, file.URL)
	_, err := os.Stat(dir + "/" + file.StoredName)
	assert.NoError(t, err)
}

func TestUploadHandler_Multiple(t *testing.T) {
	e, _ := newUploadEcho(t)

	rec := serve(e, multipartRequest(t, "/api/v1/uploads/multiple",
		filePart{"images", "a.png", pngBytes},
		filePart{"images", "a.png", pngBytes},
	))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp UploadsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.NotEqual(t, resp.Files[0].StoredName, resp.Files[1].StoredName)
}

func TestUploadHandler_Rejections(t *testing.T) {
	e, dir := newUploadEcho(t)

	rec := serve(e, multipartRequest(t, "/api/v1/uploads", filePart{"image", "run.exe", []byte("MZ")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE_TYPE_REJECTED", decodeError(t, rec.Body.Bytes()).Code)

	big := append(append([]byte{}, pngBytes...), make([]byte, 10*1024*1024)...)
	rec = serve(e, multipartRequest(t, "/api/v1/uploads", filePart{"image", "big.png", big}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	resp := decodeError(t, rec.Body.Bytes())
	assert.Equal(t, "FILE_TOO_LARGE", resp.Code)
	assert.Equal(t, "File too large (max 2 MB)", resp.Error)

	rec = serve(e, multipartRequest(t, "/api/v1/uploads/multiple",
		filePart{"images", "1.png", pngBytes},
		filePart{"images", "2.png", pngBytes},
		filePart{"images", "3.png", pngBytes},
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TOO_MANY_FILES", decodeError(t, rec.Body.Bytes()).Code)

	rec = serve(e, multipartRequest(t, "/api/v1/uploads"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_FILE", decodeError(t, rec.Body.Bytes()).Code)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadPages(t *testing.T) {
	e, _ := newUploadEcho(t)

	rec := serve(e, multipartRequest(t, "/upload/single", filePart{"image", "cat.png", pngBytes}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "cat.png stored as cat-")

	rec = serve(e, multipartRequest(t, "/upload/multiple", filePart{"images", "x.exe", []byte("MZ")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only image files are allowed (jpg, jpeg, png, gif)")
}
