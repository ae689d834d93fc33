package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UploadError describes why an uploaded file was refused.
type UploadError struct {
	Kind     error
	Field    string
	Filename string
	// Limit is the size or count bound that was exceeded, when one applies.
	Limit int64
	// Allowed lists accepted extensions for type rejections.
	Allowed []string
	Err     error
}

func (e *UploadError) Error() string {
	msg := e.Kind.Error()
	if e.Filename != "" {
		msg = fmt.Sprintf("%s (file %q)", msg, e.Filename)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UploadError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// UploadMessage translates an upload failure into a message fit for end users.
func UploadMessage(err error) string {
	var uerr *UploadError
	if !errors.As(err, &uerr) {
		uerr = &UploadError{Kind: err}
	}

	switch {
	case errors.Is(err, ErrFileTooLarge):
		if uerr.Limit > 0 {
			return fmt.Sprintf("File too large (max %s)", HumanSize(uerr.Limit))
		}
		return "File too large"
	case errors.Is(err, ErrFileTypeRejected):
		if len(uerr.Allowed) > 0 {
			exts := make([]string, 0, len(uerr.Allowed))
			for _, ext := range uerr.Allowed {
				exts = append(exts, strings.TrimPrefix(ext, "."))
			}
			return fmt.Sprintf("Only image files are allowed (%s)", strings.Join(exts, ", "))
		}
		return "Only image files are allowed"
	case errors.Is(err, ErrTooManyFiles):
		if uerr.Limit > 0 {
			return fmt.Sprintf("Too many files (max %d)", uerr.Limit)
		}
		return "Too many files"
	case errors.Is(err, ErrNoFile):
		return "No file uploaded"
	case errors.Is(err, ErrNoMultipart):
		return "Upload must be sent as multipart/form-data"
	default:
		return "Upload failed"
	}
}

// HumanSize formats a byte count as "2 MB", "512 KB" or "10 bytes".
func HumanSize(n int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case n >= mb && n%mb == 0:
		return fmt.Sprintf("%d MB", n/mb)
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%d KB", n/kb)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
