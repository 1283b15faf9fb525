package backend

import (
	"errors"
	"fmt"
)

// ErrorClass is the conversion error taxonomy. Malformed and
// resource failures are fatal for the whole conversion; a partial
// tree is never returned, because a consumer cannot tell it from a
// complete one missing content. IO failures are environmental and
// propagated unchanged; unsupported formats are rejected before any
// conversion state is allocated.
type ErrorClass string

const (
	ClassUnsupportedFormat  ErrorClass = "unsupported_format"
	ClassMalformedSource    ErrorClass = "malformed_source"
	ClassResourceResolution ErrorClass = "resource_resolution"
	ClassIO                 ErrorClass = "io"
)

// ConvertError carries enough context to distinguish "this file type
// isn't supported" from "this specific file is broken" from "the
// read failed": the class, the backend format, and the source
// element being handled when the failure occurred.
type ConvertError struct {
	Class   ErrorClass
	Format  Format
	Element string
	Err     error
}

func (e *ConvertError) Error() string {
	msg := string(e.Class)
	if e.Format != "" {
		msg += " [" + string(e.Format) + "]"
	}
	if e.Element != "" {
		msg += " " + e.Element
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConvertError) Unwrap() error { return e.Err }

// Malformed classifies a container- or markup-level decoding failure.
func Malformed(format Format, element string, err error) error {
	return &ConvertError{Class: ClassMalformedSource, Format: format, Element: element, Err: err}
}

// ResourceFailure classifies an embedded reference that could not be
// resolved to bytes.
func ResourceFailure(format Format, element string, err error) error {
	return &ConvertError{Class: ClassResourceResolution, Format: format, Element: element, Err: err}
}

// Unsupported classifies an input no backend can handle.
func Unsupported(ext string) error {
	return &ConvertError{Class: ClassUnsupportedFormat, Err: fmt.Errorf("unsupported file extension: %s", ext)}
}

// IOFailure classifies an underlying read/write failure.
func IOFailure(format Format, err error) error {
	return &ConvertError{Class: ClassIO, Format: format, Err: err}
}

// Classify returns the error class of a conversion error, or false
// for unclassified errors.
func Classify(err error) (ErrorClass, bool) {
	var ce *ConvertError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return "", false
}
