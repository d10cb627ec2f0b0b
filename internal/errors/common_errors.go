package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeInputNotFound ErrorType = "INPUT_NOT_FOUND"
	ErrTypeSchema        ErrorType = "SCHEMA"
	ErrTypeNumeric       ErrorType = "NUMERIC"
	ErrTypeOutputWrite   ErrorType = "OUTPUT_WRITE"
	ErrTypeConfig        ErrorType = "CONFIG"
	ErrTypeInternal      ErrorType = "INTERNAL"
)

// Sentinel causes. AppError unwraps to these so callers can use errors.Is
// regardless of how many layers of context were added.
var (
	ErrMissingColumn    = errors.New("missing column")
	ErrMalformedRow     = errors.New("malformed row")
	ErrUnknownConstant  = errors.New("unknown constant")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrInsufficientData = errors.New("insufficient data")
	ErrNonFinite        = errors.New("non-finite value")
	ErrDegenerate       = errors.New("degenerate input")
	ErrNonPositive      = errors.New("non-positive value")
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Stage   string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Type)
	if e.Stage != "" {
		prefix = fmt.Sprintf("stage %s: %s", e.Stage, prefix)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Helper functions for common error types

// NewInputNotFoundError reports a missing or unreadable source file
func NewInputNotFoundError(path string, cause error) *AppError {
	return NewAppError(ErrTypeInputNotFound, fmt.Sprintf("cannot read input %s", path), cause).
		WithContext("path", path)
}

// NewSchemaError reports a header or cell that does not match the declared columns
func NewSchemaError(message string, cause error) *AppError {
	return NewAppError(ErrTypeSchema, message, cause)
}

// NewMissingColumnError reports a declared column absent from the header
func NewMissingColumnError(column string) *AppError {
	return NewSchemaError(fmt.Sprintf("column %q not found", column), ErrMissingColumn).
		WithContext("column", column)
}

// NewMalformedRowError reports a record that cannot be loaded as declared.
// line is the 1-based line (or sheet row) of the record in the input file.
func NewMalformedRowError(line int, column, detail string) *AppError {
	return NewSchemaError(fmt.Sprintf("line %d column %q: %s", line, column, detail), ErrMalformedRow).
		WithContext("line", line).
		WithContext("column", column)
}

// NewNumericError creates a computation error
func NewNumericError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNumeric, message, cause)
}

// NewDivisionByZeroError reports a zero denominator in a derived column
func NewDivisionByZeroError(row int, column string) *AppError {
	return NewNumericError(fmt.Sprintf("row %d column %q", row, column), ErrDivisionByZero).
		WithContext("row", row).
		WithContext("column", column)
}

// NewInsufficientDataError reports a fit or statistic with too few points
func NewInsufficientDataError(need, got int) *AppError {
	return NewNumericError(fmt.Sprintf("need at least %d points, got %d", need, got), ErrInsufficientData).
		WithContext("need", need).
		WithContext("got", got)
}

// NewOutputWriteError reports an unwritable destination
func NewOutputWriteError(path string, cause error) *AppError {
	return NewAppError(ErrTypeOutputWrite, fmt.Sprintf("cannot write %s", path), cause).
		WithContext("path", path)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// WithStage tags err with the pipeline stage it came from. Plain errors are
// wrapped in an AppError typed from their sentinel cause.
func WithStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Stage == "" {
			appErr.Stage = stage
		}
		return appErr
	}
	wrapped := NewAppError(inferType(err), "unexpected failure", err)
	wrapped.Stage = stage
	return wrapped
}

func inferType(err error) ErrorType {
	switch {
	case errors.Is(err, ErrMissingColumn), errors.Is(err, ErrMalformedRow), errors.Is(err, ErrUnknownConstant):
		return ErrTypeSchema
	case errors.Is(err, ErrDivisionByZero), errors.Is(err, ErrInsufficientData),
		errors.Is(err, ErrNonFinite), errors.Is(err, ErrDegenerate), errors.Is(err, ErrNonPositive):
		return ErrTypeNumeric
	}
	return ErrTypeInternal
}

// GetErrorType extracts the ErrorType from err, or "" if it is not an AppError
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	return GetErrorType(err) == errType
}

// StageOf returns the stage recorded on err, if any
func StageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Stage
	}
	return ""
}
