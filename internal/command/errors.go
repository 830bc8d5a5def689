package command

import "errors"

var (
	// ErrUnknownCommand is returned when a topic names a command that is not
	// in the table.
	ErrUnknownCommand = errors.New("command: unknown command")

	// ErrDeviceNotFound marks a target that did not resolve to a device. It
	// is never returned by Resolve; the invocation proceeds without an id.
	ErrDeviceNotFound = errors.New("command: device not found")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("command: invalid topic")

	// ErrInvalidCommand is returned when a table entry is malformed.
	ErrInvalidCommand = errors.New("command: invalid definition")

	// ErrDuplicateCommand is returned when two table entries share a name.
	ErrDuplicateCommand = errors.New("command: duplicate definition")

	// ErrInvalidArgument is returned by handlers that cannot coerce an argument.
	ErrInvalidArgument = errors.New("command: invalid argument")
)
