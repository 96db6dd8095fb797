// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package connect

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is returned for bad magic prefixes and wrong fixed-size fields.
	ErrMalformedInput = errors.New("malformed input")
	// ErrTruncatedPayload is returned when a buffer is shorter than its fixed layout.
	ErrTruncatedPayload = errors.New("truncated payload")
	// ErrIntegrityMismatch is returned when a third-party response disagrees with the request.
	ErrIntegrityMismatch = errors.New("integrity mismatch")
	// ErrNotSupported is returned by strategy methods that do not apply to a route.
	ErrNotSupported = errors.New("not supported")
	// ErrMissingLiveData is returned when a quote is computed before its inputs resolved.
	ErrMissingLiveData = errors.New("missing live data")
	// ErrRouteNotEnabled is returned when a route is not in the configured whitelist.
	ErrRouteNotEnabled = errors.New("route not enabled")
	// ErrAmbiguousRoute is returned when more than one route claims a transaction.
	ErrAmbiguousRoute = errors.New("ambiguous route")
	// ErrUnknownRoute is returned when a route name does not parse.
	ErrUnknownRoute = errors.New("unknown route")
	// ErrInvalidRequest is returned when a transfer request fails validation.
	ErrInvalidRequest = errors.New("invalid transfer request")
)

// Error codes surfaced to callers of the operator.
const (
	CodeUnknown int32 = iota
	CodeMalformedInput
	CodeIntegrityMismatch
	CodeNotSupported
	CodeMissingLiveData
	CodeRouteNotEnabled
	CodeAmbiguousRoute
	CodeInvalidRequest
)

// Error represents a connect error with a stable code
type Error struct {
	Code    int32
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("connect error %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// AsError classifies err into an *Error. Nil stays nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	code := CodeUnknown
	switch {
	case errors.Is(err, ErrMalformedInput), errors.Is(err, ErrTruncatedPayload):
		code = CodeMalformedInput
	case errors.Is(err, ErrIntegrityMismatch):
		code = CodeIntegrityMismatch
	case errors.Is(err, ErrNotSupported):
		code = CodeNotSupported
	case errors.Is(err, ErrMissingLiveData):
		code = CodeMissingLiveData
	case errors.Is(err, ErrRouteNotEnabled):
		code = CodeRouteNotEnabled
	case errors.Is(err, ErrAmbiguousRoute):
		code = CodeAmbiguousRoute
	case errors.Is(err, ErrInvalidRequest):
		code = CodeInvalidRequest
	}
	return &Error{Code: code, Message: err.Error(), Err: err}
}
