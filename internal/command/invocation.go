package command

import "fmt"

// Invocation is a fully resolved command call.
type Invocation struct {
	// Topic is the inbound topic the invocation was resolved from.
	Topic string

	Command string
	Scope   Scope

	// Target is the device name parsed from the topic, empty when absent.
	Target string

	// Designator is the button ordinal or label taken from the first raw
	// argument, nil when there were no arguments.
	Designator any

	// DeviceID is the resolved id of Target, empty when it did not resolve.
	DeviceID string
	IsButton bool

	// RawArgs are the decoded payload arguments.
	RawArgs []any

	// Args are the final arguments, truncated to the command's arity.
	Args []any

	// Bridge is the bridge handle for ScopeBridge commands.
	Bridge any
}

// Arg returns the i-th final argument.
func (inv Invocation) Arg(i int) (any, bool) {
	if i < 0 || i >= len(inv.Args) {
		return nil, false
	}
	return inv.Args[i], true
}

// StringArg returns the i-th argument coerced to a string.
func (inv Invocation) StringArg(i int) (string, error) {
	v, ok := inv.Arg(i)
	if !ok {
		return "", fmt.Errorf("%w: %s needs argument %d", ErrInvalidArgument, inv.Command, i+1)
	}
	return AsString(v), nil
}

// IntArg returns the i-th argument coerced to an int, or def when absent.
func (inv Invocation) IntArg(i, def int) (int, error) {
	v, ok := inv.Arg(i)
	if !ok {
		return def, nil
	}
	n, err := AsInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s argument %d: %w", inv.Command, i+1, err)
	}
	return n, nil
}
