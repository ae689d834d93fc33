// Package upload accepts multipart image uploads and stores them on disk.
//
// A request goes through receive, filter, name, write and report steps.
// Every file is filtered before anything is written, so a rejected request
// leaves the upload directory untouched.
package upload

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"webcrud/internal/config"
	apperrors "webcrud/internal/errors"
	"webcrud/internal/model"
)

// bodySlack covers multipart headers and form fields around the files.
const bodySlack = 1 << 20

// Context keys under which the middleware reports stored files.
const (
	FileKey  = "upload.file"
	FilesKey = "upload.files"
)

// Recorder receives upload outcomes; *metrics.Metrics implements it.
type Recorder interface {
	UploadAccepted(size int64)
	UploadRejected(reason string)
}

type nopRecorder struct{}

func (nopRecorder) UploadAccepted(int64)  {}
func (nopRecorder) UploadRejected(string) {}

// ErrorHandler turns an upload failure into a response.
type ErrorHandler func(c echo.Context, err error) error

// Uploader validates and persists uploaded images.
type Uploader struct {
	cfg         config.Upload
	allowedExts map[string]struct{}
	rec         Recorder
	log         logrus.FieldLogger

	now   func() time.Time
	token func(time.Time) string
}

// New creates the upload directory if needed and returns an Uploader.
func New(cfg config.Upload, rec Recorder, log logrus.FieldLogger) (*Uploader, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", cfg.Dir, err)
	}

	if rec == nil {
		rec = nopRecorder{}
	}

	exts := make(map[string]struct{}, len(cfg.AllowedExts))
	for _, ext := range cfg.AllowedExts {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	return &Uploader{
		cfg:         cfg,
		allowedExts: exts,
		rec:         rec,
		log:         log,
		now:         time.Now,
		token:       timestampToken,
	}, nil
}

// timestampToken is unix millis plus a random number; two uploads in the
// same millisecond only collide when the random parts also match.
func timestampToken(t time.Time) string {
	return fmt.Sprintf("%d-%09d", t.UnixMilli(), rand.IntN(1_000_000_000))
}

// Single expects exactly one file in field and stores its metadata under FileKey.
func (u *Uploader) Single(field string, onErr ErrorHandler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			file, err := u.ProcessSingle(c, field)
			if err != nil {
				return u.fail(c, err, onErr)
			}
			c.Set(FileKey, file)
			return next(c)
		}
	}
}

// Multiple accepts up to MaxFiles files in field and stores them under FilesKey.
func (u *Uploader) Multiple(field string, onErr ErrorHandler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			files, err := u.ProcessMultiple(c, field)
			if err != nil {
				return u.fail(c, err, onErr)
			}
			c.Set(FilesKey, files)
			return next(c)
		}
	}
}

func (u *Uploader) fail(c echo.Context, err error, onErr ErrorHandler) error {
	if onErr != nil {
		return onErr(c, err)
	}
	return err
}

// FileFrom returns the file stored by Single.
func FileFrom(c echo.Context) (*model.UploadedFile, bool) {
	file, ok := c.Get(FileKey).(*model.UploadedFile)
	return file, ok && file != nil
}

// FilesFrom returns the files stored by Multiple.
func FilesFrom(c echo.Context) []model.UploadedFile {
	files, _ := c.Get(FilesKey).([]model.UploadedFile)
	return files
}

// ProcessSingle runs the pipeline for one required file.
func (u *Uploader) ProcessSingle(c echo.Context, field string) (*model.UploadedFile, error) {
	headers, err := u.receive(c, field)
	if err != nil {
		return nil, u.reject(err)
	}
	if len(headers) == 0 {
		return nil, u.reject(&apperrors.UploadError{Kind: apperrors.ErrNoFile, Field: field})
	}
	if len(headers) > 1 {
		return nil, u.reject(&apperrors.UploadError{Kind: apperrors.ErrTooManyFiles, Field: field, Limit: 1})
	}

	files, err := u.Save(field, headers)
	if err != nil {
		return nil, err
	}
	return &files[0], nil
}

// ProcessMultiple runs the pipeline for zero or more files.
func (u *Uploader) ProcessMultiple(c echo.Context, field string) ([]model.UploadedFile, error) {
	headers, err := u.receive(c, field)
	if err != nil {
		return nil, u.reject(err)
	}
	return u.Save(field, headers)
}

// MaxBodySize is the largest request body a full upload may send.
func (u *Uploader) MaxBodySize() int64 {
	files := u.cfg.MaxFiles
	if files < 1 {
		files = 1
	}
	return u.cfg.MaxFileSize*int64(files) + bodySlack
}

// receive parses the multipart body and returns the parts sent under field.
// Bodies over MaxBodySize are refused as too large, whether the length is
// declared up front or only discovered while reading.
func (u *Uploader) receive(c echo.Context, field string) ([]*multipart.FileHeader, error) {
	req := c.Request()
	limit := u.MaxBodySize()
	if req.ContentLength > limit {
		return nil, &apperrors.UploadError{Kind: apperrors.ErrFileTooLarge, Field: field, Limit: u.cfg.MaxFileSize}
	}
	req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return nil, &apperrors.UploadError{Kind: apperrors.ErrNoMultipart, Field: field}
		case errors.As(err, &maxErr), errors.Is(err, echo.ErrStatusRequestEntityTooLarge):
			return nil, &apperrors.UploadError{Kind: apperrors.ErrFileTooLarge, Field: field, Limit: u.cfg.MaxFileSize}
		default:
			return nil, &apperrors.UploadError{Kind: apperrors.ErrUploadRejected, Field: field, Err: err}
		}
	}
	return form.File[field], nil
}

// Save filters every header, then writes the accepted files to disk.
// If writing fails part way, files already written by this call are removed.
func (u *Uploader) Save(field string, headers []*multipart.FileHeader) ([]model.UploadedFile, error) {
	if len(headers) > u.cfg.MaxFiles {
		return nil, u.reject(&apperrors.UploadError{Kind: apperrors.ErrTooManyFiles, Field: field, Limit: int64(u.cfg.MaxFiles)})
	}

	mimes := make([]string, len(headers))
	for i, fh := range headers {
		mime, err := u.filter(field, fh)
		if err != nil {
			return nil, u.reject(err)
		}
		mimes[i] = mime
	}

	stored := make([]model.UploadedFile, 0, len(headers))
	for i, fh := range headers {
		file, err := u.write(field, fh, mimes[i])
		if err != nil {
			u.cleanup(stored)
			return nil, err
		}
		stored = append(stored, *file)
	}

	for _, f := range stored {
		u.rec.UploadAccepted(f.Size)
		u.log.WithFields(logrus.Fields{
			"field":    f.FieldName,
			"original": f.OriginalName,
			"stored":   f.StoredName,
			"size":     f.Size,
		}).Info("file uploaded")
	}
	return stored, nil
}

// filter checks size, extension and sniffed content type.
func (u *Uploader) filter(field string, fh *multipart.FileHeader) (string, error) {
	if fh.Size > u.cfg.MaxFileSize {
		return "", &apperrors.UploadError{Kind: apperrors.ErrFileTooLarge, Field: field, Filename: fh.Filename, Limit: u.cfg.MaxFileSize}
	}

	typeErr := &apperrors.UploadError{Kind: apperrors.ErrFileTypeRejected, Field: field, Filename: fh.Filename, Allowed: u.cfg.AllowedExts}
	if _, ok := u.allowedExts[strings.ToLower(filepath.Ext(fh.Filename))]; !ok {
		return "", typeErr
	}

	src, err := fh.Open()
	if err != nil {
		return "", &apperrors.UploadError{Kind: apperrors.ErrUploadRejected, Field: field, Filename: fh.Filename, Err: err}
	}
	defer src.Close()

	detected, err := mimetype.DetectReader(src)
	if err != nil {
		return "", &apperrors.UploadError{Kind: apperrors.ErrUploadRejected, Field: field, Filename: fh.Filename, Err: err}
	}
	if len(u.cfg.AllowedMIMETypes) == 0 {
		return detected.String(), nil
	}
	for _, allowed := range u.cfg.AllowedMIMETypes {
		if detected.Is(allowed) {
			return detected.String(), nil
		}
	}
	return "", typeErr
}

func (u *Uploader) write(field string, fh *multipart.FileHeader, mime string) (*model.UploadedFile, error) {
	name := StoredName(fh.Filename, u.token(u.now()))
	dst := filepath.Join(u.cfg.Dir, name)

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer src.Close()

	// O_EXCL: an existing file is never overwritten
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", dst, err)
	}

	size, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return nil, fmt.Errorf("write %s: %w", dst, err)
	}

	return &model.UploadedFile{
		FieldName:    field,
		OriginalName: fh.Filename,
		StoredName:   name,
		Path:         dst,
		URL:          path.Join(u.cfg.URLPrefix, name),
		MIMEType:     mime,
		Size:         size,
	}, nil
}

func (u *Uploader) cleanup(files []model.UploadedFile) {
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			u.log.WithError(err).WithField("path", f.Path).Warn("remove partial upload")
		}
	}
}

func (u *Uploader) reject(err error) error {
	u.rec.UploadRejected(rejectReason(err))
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrFileTooLarge):
		return "file_too_large"
	case errors.Is(err, apperrors.ErrFileTypeRejected):
		return "file_type_rejected"
	case errors.Is(err, apperrors.ErrTooManyFiles):
		return "too_many_files"
	case errors.Is(err, apperrors.ErrNoFile), errors.Is(err, apperrors.ErrNoMultipart):
		return "no_file"
	default:
		return "rejected"
	}
}

// StoredName returns "<stem>-<token><ext>" for a client supplied filename.
// Directory components are dropped and the stem is reduced to [A-Za-z0-9_-].
func StoredName(original, token string) string {
	base := original
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, stem)
	if strings.Trim(stem, "_") == "" {
		stem = "file"
	}
	return stem + "-" + token + ext
}
