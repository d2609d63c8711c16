// File: api/errors.go
// Package api defines error types and error handling utilities.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"errors"
	"fmt"
)

// Usage-error sentinels. These mark programmer misuse of a handle, as
// opposed to environmental failures of the native engine.
var (
	ErrAlreadyInitialized = fmt.Errorf("handle already initialized")
	ErrNotInitialized     = fmt.Errorf("handle not initialized")
	ErrClosed             = fmt.Errorf("handle is closed")
	ErrLoopClosed         = fmt.Errorf("dispatch loop is closed")
	ErrResourceReleased   = fmt.Errorf("native resource released")
)

// ErrorCode classifies an Error.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	// ErrCodeUsage marks misuse of the handle API: operating before init,
	// after close, or re-initializing.
	ErrCodeUsage
	// ErrCodeNative marks a failure reported by the native engine layer.
	ErrCodeNative
)

// Error is a structured error carrying the failing operation's identity,
// its classification and optional context.
type Error struct {
	Code    ErrorCode
	Op      string
	Err     error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v (context: %+v)", e.Op, e.Err, e.Context)
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Usage wraps a usage-error sentinel with the offending operation's name.
func Usage(op string, err error) *Error {
	return &Error{Code: ErrCodeUsage, Op: op, Err: err}
}

// Native wraps a native engine failure with the failing operation's name.
func Native(op string, err error) *Error {
	return &Error{Code: ErrCodeNative, Op: op, Err: err}
}

// CodeOf extracts the ErrorCode from err, or ErrCodeOK for nil.
// Errors not produced by this package report ErrCodeNative.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeNative
}

// IsUsage reports whether err is a usage error.
func IsUsage(err error) bool { return CodeOf(err) == ErrCodeUsage }
