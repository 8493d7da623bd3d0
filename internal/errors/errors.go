package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so wrapped copies of a sentinel still compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigInvalid = &AppError{Code: "CONFIG_001", Message: "invalid configuration"}

	// ErrNotTransaction is a parse miss: free chat that carries no amount. Never replied to.
	ErrNotTransaction = &AppError{Code: "PARSE_001", Message: "not a transaction"}

	ErrInvalidAmount = &AppError{Code: "VALID_001", Message: "invalid amount"}
	ErrInvalidTarget = &AppError{Code: "VALID_002", Message: "invalid target"}

	ErrNoList         = &AppError{Code: "REF_001", Message: "no cached list"}
	ErrOutOfRange     = &AppError{Code: "REF_002", Message: "target out of range"}
	ErrNotOutstanding = &AppError{Code: "REF_003", Message: "entry is not an outstanding loan"}

	ErrStoreUnavailable = &AppError{Code: "STORE_001", Message: "cannot connect to ledger"}
	ErrStoreFailed      = &AppError{Code: "STORE_002", Message: "ledger call failed"}
	ErrRowNotFound      = &AppError{Code: "STORE_003", Message: "row not found"}

	ErrNothingToUndo = &AppError{Code: "UNDO_001", Message: "nothing to undo"}
	ErrUndoExpired   = &AppError{Code: "UNDO_002", Message: "undo expired"}
	ErrUndoFailed    = &AppError{Code: "UNDO_003", Message: "undo failed"}

	ErrInternal = &AppError{Code: "INTERNAL_001", Message: "internal error"}
)

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// From copies a sentinel and attaches a cause, keeping the sentinel's code.
func From(sentinel *AppError, cause error) *AppError {
	return &AppError{
		Code:    sentinel.Code,
		Message: sentinel.Message,
		Cause:   cause,
	}
}
