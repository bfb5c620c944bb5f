// Package apperr defines the error taxonomy shared by the store and its callers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure.
type Kind string

const (
	// KindIO means the persisted collection could not be read or written.
	KindIO Kind = "io"
	// KindParse means the persisted collection is not a JSON array of objects.
	KindParse Kind = "parse"
	// KindExhausted means no further note id can be assigned.
	KindExhausted Kind = "exhausted"
)

// ErrInvalidPayload is returned when a submitted note is not a JSON object.
var ErrInvalidPayload = errors.New("invalid payload")

// Error is a classified store failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IO wraps err as an IOError raised by op.
func IO(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

// Parse wraps err as a ParseError raised by op.
func Parse(op string, err error) error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// Exhausted wraps err as an id-space failure raised by op.
func Exhausted(op string, err error) error {
	return &Error{Kind: KindExhausted, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
