package errors

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Error types for the semview indexing pipeline
type ErrorType string

const (
	// Pipeline errors
	ErrorTypeScan   ErrorType = "scan"
	ErrorTypeDecode ErrorType = "decode"
	ErrorTypeWrite  ErrorType = "write"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// File errors
	ErrorTypePermission ErrorType = "permission"
)

// ScanError represents a filesystem failure while walking a classpath root.
// Scan errors are fatal for the root being walked; the CLI surfaces them.
type ScanError struct {
	Type       ErrorType
	Root       string
	Path       string
	Underlying error
	Timestamp  time.Time
}

// NewScanError creates a new scan error with context
func NewScanError(root, path string, err error) *ScanError {
	errorType := ErrorTypeScan
	if errors.Is(err, os.ErrPermission) {
		errorType = ErrorTypePermission
	}
	return &ScanError{
		Type:       errorType,
		Root:       root,
		Path:       path,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ScanError) Error() string {
	if e.Path != "" && e.Path != e.Root {
		return fmt.Sprintf("%s failed at %s (root %s): %v", e.Type, e.Path, e.Root, e.Underlying)
	}
	return fmt.Sprintf("%s failed for root %s: %v", e.Type, e.Root, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ScanError) Unwrap() error {
	return e.Underlying
}

// DecodeError represents a malformed or unrecognized metadata file. Decode
// errors are recoverable: the pipeline logs them and skips the file.
type DecodeError struct {
	Type       ErrorType
	Path       string
	Underlying error
	Timestamp  time.Time
}

// NewDecodeError creates a new decode error for a metadata file
func NewDecodeError(path string, err error) *DecodeError {
	return &DecodeError{
		Type:       ErrorTypeDecode,
		Path:       path,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Type, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *DecodeError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable reports that the run continues past this error.
func (e *DecodeError) IsRecoverable() bool {
	return true
}

// WriteError represents a failure to persist an index record. Write errors
// abort the run; there is no partial-success mode.
type WriteError struct {
	Type       ErrorType
	Name       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewWriteError creates a new write error
func NewWriteError(op, name string, err error) *WriteError {
	return &WriteError{
		Type:       ErrorTypeWrite,
		Name:       name,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.Name, e.Underlying)
}

// Unwrap returns the underlying error
func (e *WriteError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error, dropping nil entries
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
