package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrValidation is returned when input fields are missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrUserNotFound is returned when no users row matches the id.
	ErrUserNotFound = errors.New("user not found")
	// ErrConstraintViolation is returned when the database rejects a write.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrDuplicateUser is returned when a unique column already holds the value.
	ErrDuplicateUser = fmt.Errorf("user already exists: %w", ErrConstraintViolation)
	// ErrInfrastructure is returned when the database cannot be reached.
	ErrInfrastructure = errors.New("database unavailable")

	// ErrUploadRejected is the parent of every upload failure.
	ErrUploadRejected = errors.New("upload rejected")
	// ErrFileTypeRejected is returned for files outside the image allow-list.
	ErrFileTypeRejected = fmt.Errorf("file type not allowed: %w", ErrUploadRejected)
	// ErrFileTooLarge is returned when a file exceeds the configured size.
	ErrFileTooLarge = fmt.Errorf("file too large: %w", ErrUploadRejected)
	// ErrTooManyFiles is returned when a request carries more files than allowed.
	ErrTooManyFiles = fmt.Errorf("too many files: %w", ErrUploadRejected)
	// ErrNoFile is returned when single mode finds no file in its field.
	ErrNoFile = fmt.Errorf("no file uploaded: %w", ErrUploadRejected)
	// ErrNoMultipart is returned when the request body is not multipart.
	ErrNoMultipart = fmt.Errorf("request is not multipart: %w", ErrUploadRejected)
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     map[string]string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:  e.Message,
		Code:   e.Code,
		Fields: e.Fields,
	}
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpErr := NewHTTPError(http.StatusBadRequest, verr.Error(), "VALIDATION_ERROR")
		httpErr.Fields = verr.Fields
		return httpErr
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrDuplicateUser):
		return NewHTTPError(http.StatusConflict, ErrDuplicateUser.Error(), "USER_ALREADY_EXISTS")
	case errors.Is(err, ErrConstraintViolation):
		return NewHTTPError(http.StatusConflict, ErrConstraintViolation.Error(), "CONSTRAINT_VIOLATION")
	case errors.Is(err, ErrFileTooLarge):
		return NewHTTPError(http.StatusRequestEntityTooLarge, UploadMessage(err), "FILE_TOO_LARGE")
	case errors.Is(err, ErrFileTypeRejected):
		return NewHTTPError(http.StatusBadRequest, UploadMessage(err), "FILE_TYPE_REJECTED")
	case errors.Is(err, ErrTooManyFiles):
		return NewHTTPError(http.StatusBadRequest, UploadMessage(err), "TOO_MANY_FILES")
	case errors.Is(err, ErrNoFile), errors.Is(err, ErrNoMultipart):
		return NewHTTPError(http.StatusBadRequest, UploadMessage(err), "NO_FILE")
	case errors.Is(err, ErrUploadRejected):
		return NewHTTPError(http.StatusBadRequest, UploadMessage(err), "UPLOAD_REJECTED")
	case errors.Is(err, ErrInfrastructure):
		return NewHTTPError(http.StatusServiceUnavailable, ErrInfrastructure.Error(), "DATABASE_UNAVAILABLE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
