// Package core holds the value and error types shared by the document and
// infrastructure packages and by the backend adapters built on them.
package core

import "errors"

var (
	// ErrInvalidArgument reports a value that violates the type or shape
	// contract of the call it was passed to.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfBounds reports positional access outside a collection.
	ErrOutOfBounds = errors.New("index out of bounds")
)
