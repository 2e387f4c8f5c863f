package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnknownDefinition = errors.New("unknown attachment definition")
	ErrUnknownVersion    = errors.New("unknown attachment version")
	ErrInvalidFile       = errors.New("file rejected by attachment definition")
	ErrEmptySource       = errors.New("source has no filename")
	ErrStoreFailed       = errors.New("attachment store failed")
	ErrInvalidSignature  = errors.New("invalid url signature")
	ErrSignatureExpired  = errors.New("url signature expired")
)

// ConfigurationError reports a required value that resolved empty at the point
// it was actually needed (for example an empty bucket at put time).
type ConfigurationError struct {
	Definition string
	Field      string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("attachment %q: %s resolved to an empty value", e.Definition, e.Field)
}

// TransformError reports a failed external command for a single version.
type TransformError struct {
	Version string
	Command string
	Stderr  string
	Err     error
}

func (e *TransformError) Error() string {
	msg := fmt.Sprintf("transform %s via %s: %v", e.Version, e.Command, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// BackendError carries the remote status of a failed put or delete.
type BackendError struct {
	Backend    string
	Op         string
	Bucket     string
	Key        string
	StatusCode int
	Code       string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s %s/%s: status %d %s: %v", e.Backend, e.Op, e.Bucket, e.Key, e.StatusCode, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s %s/%s: %v", e.Backend, e.Op, e.Bucket, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
