package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
	CodeCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"
	CodeAmountMismatch   ErrorCode = "AMOUNT_MISMATCH"
	CodeInvalidState     ErrorCode = "INVALID_STATE"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
)

// Error is the failure type returned by all workflows. Fields carries
// per-field validation messages when Code is CodeValidation.
type Error struct {
	Code    ErrorCode
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NotFound(entity string) *Error {
	return &Error{Code: CodeNotFound, Message: entity + " not found"}
}

func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

func Validation(fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: "validation failed", Fields: fields}
}

func ValidationField(field, msg string) *Error {
	return Validation(map[string]string{field: msg})
}

func CapacityExceeded(msg string) *Error {
	return &Error{Code: CodeCapacityExceeded, Message: msg}
}

func AmountMismatch(msg string) *Error {
	return &Error{Code: CodeAmountMismatch, Message: msg}
}

func InvalidState(msg string) *Error {
	return &Error{Code: CodeInvalidState, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// CodeOf extracts the error code, defaulting to an empty code for
// unclassified errors.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
