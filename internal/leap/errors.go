package leap

import "errors"

var (
	// ErrNotConnected is returned when an operation requires a live session.
	ErrNotConnected = errors.New("leap: not connected")

	// ErrConnectionFailed is returned when dialling or the TLS handshake fails.
	ErrConnectionFailed = errors.New("leap: connection failed")

	// ErrCredentials is returned when certificate material cannot be loaded.
	ErrCredentials = errors.New("leap: invalid credentials")

	// ErrRequestFailed is returned when the bridge answers with a non-2xx status.
	ErrRequestFailed = errors.New("leap: request failed")

	// ErrTimeout is returned when a response does not arrive in time.
	ErrTimeout = errors.New("leap: request timeout")

	// ErrUnknownDevice is returned for an id the inventory does not contain.
	ErrUnknownDevice = errors.New("leap: unknown device")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("leap: client closed")
)
