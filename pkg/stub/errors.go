package stub

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("invalid response descriptor")
	ErrResourceNotFound = errors.New("resource not found")
	ErrEncoding         = errors.New("body encoding failed")
	ErrMalformedMessage = errors.New("malformed HTTP message")
	ErrSizeMismatch     = errors.New("body size mismatch")
)

// ValidationError reports a descriptor field that violates its constraints.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ResourceNotFoundError is returned when a body file can not be opened.
type ResourceNotFoundError struct {
	Path string
	Err  error
}

func (e *ResourceNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resource '%s' not found", e.Path)
	}
	return fmt.Sprintf("resource '%s' not found: %v", e.Path, e.Err)
}

func (e *ResourceNotFoundError) Is(target error) bool {
	return target == ErrResourceNotFound
}

func (e *ResourceNotFoundError) Unwrap() error {
	return e.Err
}

type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode body: %v", e.Err)
}

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

type MalformedMessageError struct {
	Reason string
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed HTTP message: %s", e.Reason)
}

func (e *MalformedMessageError) Is(target error) bool {
	return target == ErrMalformedMessage
}

// SizeMismatchError reports a stream body that yielded a different number
// of bytes than declared. Actual is a lower bound when the stream produced
// more bytes than Declared.
type SizeMismatchError struct {
	Declared int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	if e.Actual > e.Declared {
		return fmt.Sprintf("body size mismatch: declared %d bytes, stream has more", e.Declared)
	}
	return fmt.Sprintf("body size mismatch: declared %d bytes, stream ended after %d",
		e.Declared, e.Actual)
}

func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrSizeMismatch
}
