// Package errors provides structured error types for tilestyle.
//
// Errors carry a machine-readable [Code] so the style engine, the file source
// and the CLI can tell the three user-visible failure families apart:
//
//   - INVALID_STYLE: the stylesheet could not be parsed (a ParseError)
//   - *_NOT_FOUND: a layer or source id does not exist (NotFound)
//   - RESOURCE_LOAD: a tile, sprite, glyph range or TileJSON failed to load
//
// # Usage
//
//	err := errors.New(errors.ErrCodeLayerNotFound, "no such layer: %s", id)
//	if errors.Is(err, errors.ErrCodeLayerNotFound) {
//	    // Handle missing layer
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidStyle Code = "INVALID_STYLE"
	ErrCodeDuplicateID  Code = "DUPLICATE_ID"

	// Lookup errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeLayerNotFound  Code = "LAYER_NOT_FOUND"
	ErrCodeSourceNotFound Code = "SOURCE_NOT_FOUND"

	// Resource errors
	ErrCodeResourceLoad Code = "RESOURCE_LOAD"
	ErrCodeNetwork      Code = "NETWORK_ERROR"
	ErrCodeHTTPStatus   Code = "HTTP_STATUS"
	ErrCodeDecode       Code = "DECODE_ERROR"
	ErrCodeCache        Code = "CACHE_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It walks the whole chain, so a RESOURCE_LOAD error wrapping a
// NETWORK_ERROR matches both codes.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsNotFound reports whether err belongs to the NotFound family.
func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound) || Is(err, ErrCodeLayerNotFound) || Is(err, ErrCodeSourceNotFound)
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ResourceKind names the class of resource a [ResourceError] refers to.
type ResourceKind string

// Resource kinds reported by the loading pipeline.
const (
	KindStyle  ResourceKind = "style"
	KindSource ResourceKind = "source"
	KindTile   ResourceKind = "tile"
	KindGlyphs ResourceKind = "glyphs"
	KindSprite ResourceKind = "sprite"
)

// ResourceError describes a failure to load one URL.
// Status is the HTTP status when the server answered, zero otherwise.
type ResourceError struct {
	URL    string
	Kind   ResourceKind
	Status int
	Err    error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Kind, e.URL, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s %s: status %d", e.Kind, e.URL, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: load failed", e.Kind, e.URL)
}

// Unwrap returns the underlying cause.
func (e *ResourceError) Unwrap() error { return e.Err }

// ResourceLoad builds the RESOURCE_LOAD error surfaced through observer
// failure callbacks.
func ResourceLoad(kind ResourceKind, url string, status int, cause error) *Error {
	return &Error{
		Code:    ErrCodeResourceLoad,
		Message: fmt.Sprintf("failed to load %s", kind),
		Cause:   &ResourceError{URL: url, Kind: kind, Status: status, Err: cause},
	}
}

// AsResourceError extracts the *ResourceError from err's chain.
func AsResourceError(err error) (*ResourceError, bool) {
	var re *ResourceError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// ParseError is returned when a stylesheet cannot be parsed. Offset is the
// byte offset of a JSON syntax error, or -1 when the failure is structural.
type ParseError struct {
	Offset int64
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("error parsing style JSON at %d: %s", e.Offset, e.Reason)
	}
	return "invalid style: " + e.Reason
}

// Parse wraps a *ParseError into an INVALID_STYLE error.
func Parse(offset int64, format string, args ...any) *Error {
	pe := &ParseError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
	return &Error{Code: ErrCodeInvalidStyle, Message: pe.Error(), Cause: pe}
}
