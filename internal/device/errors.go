package device

import "errors"

var (
	// ErrInvalidDevice is returned when a device cannot be registered.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrUnknownKind is returned when a kind string is not recognised.
	ErrUnknownKind = errors.New("device: unknown kind")
)
