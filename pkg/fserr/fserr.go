// Package fserr provides the structured error system shared by every
// citra-fs component: string error codes, categories, and contextual
// wrapping compatible with errors.Is / errors.As.
package fserr

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies one error condition of the filesystem service.
type Code string

const (
	// Registry / handle-table conditions originated by the core.
	CodeArchiveNotFound Code = "ARCHIVE_NOT_FOUND"
	CodeInvalidHandle   Code = "INVALID_ARCHIVE_HANDLE"
	CodeUnimplemented   Code = "UNIMPLEMENTED"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// Backend conditions surfaced verbatim through the core.
	CodeNotFound          Code = "NOT_FOUND"
	CodeAlreadyExists     Code = "ALREADY_EXISTS"
	CodeNotAFile          Code = "NOT_A_FILE"
	CodeNotADirectory     Code = "NOT_A_DIRECTORY"
	CodeDirectoryNotEmpty Code = "DIRECTORY_NOT_EMPTY"
	CodeWriteProtected    Code = "WRITE_PROTECTED"
	CodeNotFormatted      Code = "NOT_FORMATTED"
	CodeBackendFailure    Code = "BACKEND_FAILURE"
)

// Category groups codes for metrics labels and log filtering.
type Category string

const (
	CategoryCore    Category = "core"
	CategoryBackend Category = "backend"
)

// CategoryOf derives the category of a code.
func CategoryOf(code Code) Category {
	switch code {
	case CodeArchiveNotFound, CodeInvalidHandle, CodeUnimplemented, CodeInvalidArgument:
		return CategoryCore
	default:
		return CategoryBackend
	}
}

// Error is the structured error type. Op and Path are optional context;
// Cause carries the wrapped backend error when one exists.
type Error struct {
	Code  Code
	Op    string
	Path  string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Code))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by code, so sentinel comparisons like
// errors.Is(err, fserr.New(fserr.CodeNotFound, "")) work across wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New builds an error with a code and a short message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Newf builds an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code, operation and path to an underlying cause. A nil
// cause yields nil so call sites can wrap unconditionally.
func Wrap(cause error, code Code, op, path string) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Path: path, Cause: cause}
}

// WithOp returns a copy of err carrying the operation and path context,
// preserving the code of a structured cause. Non-structured errors are
// classified as backend failures.
func WithOp(err error, op, path string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Code: e.Code, Op: op, Path: path, Msg: e.Msg, Cause: e.Cause}
	}
	return &Error{Code: CodeBackendFailure, Op: op, Path: path, Cause: err}
}

// CodeOf extracts the code of a structured error, or CodeBackendFailure
// for anything else.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeBackendFailure
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
