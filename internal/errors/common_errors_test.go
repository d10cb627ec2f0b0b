package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{name: "input not found", errType: ErrTypeInputNotFound, expected: "INPUT_NOT_FOUND"},
		{name: "schema", errType: ErrTypeSchema, expected: "SCHEMA"},
		{name: "numeric", errType: ErrTypeNumeric, expected: "NUMERIC"},
		{name: "output write", errType: ErrTypeOutputWrite, expected: "OUTPUT_WRITE"},
		{name: "config", errType: ErrTypeConfig, expected: "CONFIG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    &AppError{Type: ErrTypeSchema, Message: "header is empty"},
			wantMessage: "[SCHEMA] header is empty",
		},
		{
			name:        "error with cause",
			appError:    &AppError{Type: ErrTypeNumeric, Message: "row 2 column \"R\"", Cause: ErrDivisionByZero},
			wantMessage: "[NUMERIC] row 2 column \"R\": division by zero",
		},
		{
			name:        "error with stage",
			appError:    &AppError{Type: ErrTypeOutputWrite, Stage: "save", Message: "cannot write out.csv", Cause: fmt.Errorf("read-only file system")},
			wantMessage: "stage save: [OUTPUT_WRITE] cannot write out.csv: read-only file system",
		},
		{
			name:        "error with empty message",
			appError:    &AppError{Type: ErrTypeConfig},
			wantMessage: "[CONFIG] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_WithContext(t *testing.T) {
	appError := &AppError{Type: ErrTypeSchema, Message: "bad cell"}

	result := appError.WithContext("row", 3)

	assert.Same(t, appError, result)
	require.Contains(t, result.Context, "row")
	assert.Equal(t, 3, result.Context["row"])
}

func TestHelpers_SentinelCauses(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		sentinel error
	}{
		{name: "missing column", err: NewMissingColumnError("U(V)"), wantType: ErrTypeSchema, sentinel: ErrMissingColumn},
		{name: "malformed row", err: NewMalformedRowError(4, "I(mA)", "not a number"), wantType: ErrTypeSchema, sentinel: ErrMalformedRow},
		{name: "division by zero", err: NewDivisionByZeroError(1, "R_calculated(ohm)"), wantType: ErrTypeNumeric, sentinel: ErrDivisionByZero},
		{name: "insufficient data", err: NewInsufficientDataError(2, 1), wantType: ErrTypeNumeric, sentinel: ErrInsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.ErrorIs(t, tt.err, tt.sentinel)

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.True(t, IsType(wrapped, tt.wantType))
		})
	}
}

func TestNewInputNotFoundError(t *testing.T) {
	err := NewInputNotFoundError("data/input.csv", errors.New("no such file"))

	assert.Equal(t, ErrTypeInputNotFound, err.Type)
	assert.Equal(t, "data/input.csv", err.Context["path"])
	assert.Contains(t, err.Error(), "no such file")
}

func TestWithStage(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WithStage("load", nil))
	})

	t.Run("app error keeps type and gains stage", func(t *testing.T) {
		err := WithStage("derive", NewDivisionByZeroError(0, "I(A)"))

		assert.Equal(t, "derive", StageOf(err))
		assert.Equal(t, ErrTypeNumeric, GetErrorType(err))
		assert.ErrorIs(t, err, ErrDivisionByZero)
	})

	t.Run("first stage wins", func(t *testing.T) {
		err := WithStage("fit", WithStage("derive", NewNumericError("x", ErrNonFinite)))

		assert.Equal(t, "derive", StageOf(err))
	})

	t.Run("plain error typed from sentinel", func(t *testing.T) {
		err := WithStage("fit", fmt.Errorf("fitting: %w", ErrInsufficientData))

		assert.Equal(t, ErrTypeNumeric, GetErrorType(err))
		assert.Equal(t, "fit", StageOf(err))
	})

	t.Run("unknown error is internal", func(t *testing.T) {
		err := WithStage("load", context.Canceled)

		assert.Equal(t, ErrTypeInternal, GetErrorType(err))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGetErrorType_NonAppError(t *testing.T) {
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
	assert.Equal(t, "", StageOf(errors.New("plain")))
}
