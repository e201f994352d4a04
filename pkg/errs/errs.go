// Package errs defines the error kinds a conversion can fail with.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a conversion failure
type Kind int

const (
	// Unknown is reported by KindOf for errors not created by this package
	Unknown Kind = iota
	// Usage means the command line was wrong
	Usage
	// Open means a source or destination could not be accessed
	Open
	// Format means the input is not valid STL
	Format
	// Write means the destination rejected a write
	Write
)

func (k Kind) String() string {
	switch k {
	case Usage:
		return "usage error"
	case Open:
		return "open error"
	case Format:
		return "format error"
	case Write:
		return "write error"
	default:
		return "error"
	}
}

// Error is a conversion failure of a specific kind. Line is the 1-based
// input line for ASCII format errors, Facet the 1-based record number for
// binary ones; zero-valued positions are left out of the message.
type Error struct {
	Kind  Kind
	Msg   string
	Line  int
	Facet int
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	switch {
	case e.Line > 0:
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	case e.Facet > 0:
		msg = fmt.Sprintf("facet %d: %s", e.Facet, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: Format})
// works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Msg == "" && t.Kind == e.Kind
}

// Formatf creates a format error at the given ASCII line (0 if unknown)
func Formatf(line int, format string, args ...any) error {
	return &Error{Kind: Format, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// FacetFormatf creates a format error for a binary record
func FacetFormatf(facet int, err error, format string, args ...any) error {
	return &Error{Kind: Format, Facet: facet, Err: err, Msg: fmt.Sprintf(format, args...)}
}

// WrapFormat wraps an underlying read failure as a format error
func WrapFormat(line int, err error, msg string) error {
	return &Error{Kind: Format, Line: line, Msg: msg, Err: err}
}

// NewWrite wraps a failed write to the destination
func NewWrite(err error) error {
	return &Error{Kind: Write, Msg: "failed writing to file", Err: err}
}

// NewOpen wraps a failure to open or create path
func NewOpen(path string, err error) error {
	return &Error{Kind: Open, Msg: fmt.Sprintf("failed opening %s", path), Err: err}
}

// Usagef creates a usage error
func Usagef(format string, args ...any) error {
	return &Error{Kind: Usage, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
