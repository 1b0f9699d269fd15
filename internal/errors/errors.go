// Package errors provides standardized error handling for detectview.
// It defines the error kinds raised by selection, upload and configuration,
// plus helpers for consistent creation, wrapping and inspection.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// Selection error kinds
	PermissionDenied
	Cancelled
	// Upload error kinds
	NetworkFailure
	MalformedResponse
	UploadInProgress
	// Media error kinds
	FileNotFound
	FileAccessDenied
	InvalidImage
	// Config error kinds
	InvalidConfig
)

var kindNames = map[ErrorKind]string{
	Unknown:           "unknown",
	PermissionDenied:  "permission denied",
	Cancelled:         "cancelled",
	NetworkFailure:    "network failure",
	MalformedResponse: "malformed response",
	UploadInProgress:  "upload in progress",
	FileNotFound:      "file not found",
	FileAccessDenied:  "file access denied",
	InvalidImage:      "invalid image",
	InvalidConfig:     "invalid configuration",
}

// String returns the kind name
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Common error values
var (
	ErrCancelled        = NewSelectionError("selection cancelled", Cancelled, nil)
	ErrPermissionDenied = NewSelectionError("media library permission denied", PermissionDenied, nil)
	ErrUploadInProgress = &ApplicationError{msg: "an upload is already in progress", kind: UploadInProgress}
	ErrInvalidConfig    = NewConfigError("invalid configuration", "", InvalidConfig, nil)
)

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// SelectionError is raised by a selection gateway.
type SelectionError struct {
	ApplicationError
}

// NewSelectionError creates a new selection error
func NewSelectionError(msg string, kind ErrorKind, err error) *SelectionError {
	return &SelectionError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
	}
}

// Is matches another SelectionError of the same kind, so that
// errors.Is(err, ErrCancelled) holds for any cancellation.
func (e *SelectionError) Is(target error) bool {
	t, ok := target.(*SelectionError)
	if !ok {
		return false
	}
	return t.kind == e.kind
}

// UploadError represents a failure to upload one image
type UploadError struct {
	ApplicationError
	image string
}

// NewUploadError creates a new upload error for the named image
func NewUploadError(msg string, image string, kind ErrorKind, err error) *UploadError {
	return &UploadError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		image: image,
	}
}

// Error returns the upload error message
func (e *UploadError) Error() string {
	if e.image != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.image, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.image)
	}
	return e.ApplicationError.Error()
}

// Image returns the name of the image that failed
func (e *UploadError) Image() string {
	return e.image
}

// FileError represents errors related to file operations
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// Error returns the file error message
func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// KindOf returns the kind of the first ApplicationError-like error in the
// chain, or Unknown.
func KindOf(err error) ErrorKind {
	for err != nil {
		if k, ok := err.(interface{ Kind() ErrorKind }); ok && k.Kind() != Unknown {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}

// IsPermissionDenied checks if the error is a permission denial
func IsPermissionDenied(err error) bool {
	return KindOf(err) == PermissionDenied
}

// IsCancelled checks if the error is a cancelled selection
func IsCancelled(err error) bool {
	return KindOf(err) == Cancelled
}

// IsNetworkFailure checks if the error is a per-image network failure
func IsNetworkFailure(err error) bool {
	return KindOf(err) == NetworkFailure
}

// IsMalformedResponse checks if the error is an unparsable service response
func IsMalformedResponse(err error) bool {
	return KindOf(err) == MalformedResponse
}

// IsUploadInProgress checks if the error rejected a pick during an upload
func IsUploadInProgress(err error) bool {
	return KindOf(err) == UploadInProgress
}

// IsFileNotFound checks if the error is a file not found error
func IsFileNotFound(err error) bool {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind() == FileNotFound
	}
	return false
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig
	}
	return false
}
