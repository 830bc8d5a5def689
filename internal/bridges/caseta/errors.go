package caseta

import "errors"

var (
	// ErrPairingFailed wraps a failed pairing attempt. Pairing is retried,
	// so this only appears in logs.
	ErrPairingFailed = errors.New("caseta: pairing failed")

	// ErrSession is returned when connecting or wiring the bridge session fails.
	ErrSession = errors.New("caseta: session error")

	// ErrNotConnected is returned by commands that need a live bridge session.
	ErrNotConnected = errors.New("caseta: bridge not connected")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("caseta: facade closed")

	// ErrInvalidBridge is returned when a pass-through command has no bridge handle.
	ErrInvalidBridge = errors.New("caseta: invalid bridge handle")
)
