package heap

import "errors"

var (
	// ErrNilBase is returned when a heap is created without a base address.
	ErrNilBase = errors.New("heap: nil base address")
	// ErrZeroSize is returned when a heap is created with a zero size.
	ErrZeroSize = errors.New("heap: size must be non-zero")
	// ErrBadAlignment is returned when the alignment is zero or not a power of two.
	ErrBadAlignment = errors.New("heap: alignment must be a power of two")
	// ErrAddressMismatch is returned when a specific address was requested
	// and the next aligned address differs from it.
	ErrAddressMismatch = errors.New("heap: requested address cannot be honored")
	// ErrExhausted is returned when the remaining capacity cannot satisfy a request.
	ErrExhausted = errors.New("heap: region exhausted")
	// ErrClosed is returned by Allocate after Close.
	ErrClosed = errors.New("heap: closed")
)
