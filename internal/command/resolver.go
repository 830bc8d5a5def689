package command

import (
	"fmt"
	"strings"
)

// Defaults for Options.
const (
	DefaultRootName      = "lutron"
	DefaultServiceName   = "caseta"
	DefaultCommand       = "set_value"
	DefaultGenericMarker = "cmd"
)

// DeviceResolver maps a device name and optional button designator to an id.
type DeviceResolver interface {
	Resolve(name string, designator any) (id string, isButton bool, ok bool)
}

// Logger defines the logging interface used by the Resolver.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures a Resolver.
type Options struct {
	// Table is the dispatch table. Required.
	Table *Table

	// Devices resolves target names. Required.
	Devices DeviceResolver

	// RootName is the topic root, e.g. "lutron".
	RootName string

	// ServiceName addresses the service itself, e.g. "caseta".
	ServiceName string

	// DefaultCommand is used when the topic carries no command.
	DefaultCommand string

	// GenericMarker is a first segment meaning "no command".
	GenericMarker string

	// Bridge is handed to ScopeBridge commands.
	Bridge any

	Logger Logger
}

// Resolver converts topic and payload into an Invocation.
//
// Resolve reads the DeviceResolver, so it must run wherever the device
// registry is owned.
type Resolver struct {
	table          *Table
	devices        DeviceResolver
	rootName       string
	serviceName    string
	defaultCommand string
	genericMarker  string
	bridge         any
	logger         Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) (*Resolver, error) {
	if opts.Table == nil {
		return nil, fmt.Errorf("%w: table is required", ErrInvalidCommand)
	}
	if opts.Devices == nil {
		return nil, fmt.Errorf("%w: device resolver is required", ErrInvalidCommand)
	}

	r := &Resolver{
		table:          opts.Table,
		devices:        opts.Devices,
		rootName:       valueOr(opts.RootName, DefaultRootName),
		serviceName:    valueOr(opts.ServiceName, DefaultServiceName),
		defaultCommand: valueOr(opts.DefaultCommand, DefaultCommand),
		genericMarker:  valueOr(opts.GenericMarker, DefaultGenericMarker),
		bridge:         opts.Bridge,
		logger:         opts.Logger,
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	return r, nil
}

// Table returns the resolver's dispatch table.
func (r *Resolver) Table() *Table {
	return r.table
}

// Resolve parses topic and payload into an invocation.
//
// It fails only with ErrUnknownCommand or ErrInvalidTopic. A target that
// does not resolve is logged and the invocation proceeds without a device id.
func (r *Resolver) Resolve(topic string, payload []byte) (Invocation, error) {
	segments := strings.Split(strings.Trim(topic, "/"), "/")
	if len(segments) == 0 || (len(segments) == 1 && segments[0] == "") {
		return Invocation{}, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}

	first := segments[0]
	name := first
	if name == "" || name == r.genericMarker || name == r.rootName {
		name = r.defaultCommand
	}
	rawArgs := DecodePayload(payload)
	r.logger.Debug("command parsed", "topic", topic, "command", name, "args", rawArgs)

	target := r.target(segments, first, name)
	r.logger.Debug("command target", "command", name, "target", target)

	cmd, ok := r.table.Lookup(name)
	if !ok {
		return Invocation{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	r.logger.Debug("command matched", "command", name, "arity", cmd.Arity, "scope", cmd.Scope.String())

	inv := Invocation{
		Topic:   topic,
		Command: name,
		Scope:   cmd.Scope,
		Target:  target,
		RawArgs: rawArgs,
	}
	if len(rawArgs) > 0 {
		inv.Designator = rawArgs[0]
	}

	if target != "" {
		id, isButton, found := r.devices.Resolve(target, inv.Designator)
		if found {
			inv.DeviceID = id
			inv.IsButton = isButton
			r.logger.Debug("command device resolved", "target", target, "id", id, "button", isButton)
		} else {
			r.logger.Warn("command target not found, sending without device",
				"target", target,
				"command", name,
				"error", ErrDeviceNotFound,
			)
		}
	}

	inv.Args = r.finalArgs(cmd, inv)
	if cmd.Scope == ScopeBridge {
		inv.Bridge = r.bridge
	}
	r.logger.Debug("command resolved", "command", name, "args", inv.Args)
	return inv, nil
}

// target extracts the device name from the last two topic segments.
func (r *Resolver) target(segments []string, first, command string) string {
	if len(segments) < 2 {
		return ""
	}
	t := segments[len(segments)-2]
	if t == r.rootName || t == r.serviceName {
		t = segments[len(segments)-1]
	}
	switch t {
	case "", first, command, r.rootName, r.serviceName:
		return ""
	}
	return t
}

func (r *Resolver) finalArgs(cmd Command, inv Invocation) []any {
	args := make([]any, 0, len(inv.RawArgs)+1)
	for _, a := range inv.RawArgs {
		if a != nil {
			args = append(args, a)
		}
	}

	if cmd.StringArgs {
		for i, a := range args {
			args[i] = AsString(a)
		}
	}

	if inv.DeviceID != "" {
		if inv.IsButton {
			args = []any{inv.DeviceID}
		} else {
			args = append([]any{inv.DeviceID}, args...)
		}
	}

	if len(args) > cmd.Arity {
		args = args[:cmd.Arity]
	}
	return args
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
