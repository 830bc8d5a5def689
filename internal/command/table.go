package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Scope identifies who serves a command.
type Scope int

const (
	// ScopeService commands are implemented by the bridge service itself.
	ScopeService Scope = iota

	// ScopeBridge commands are passed through to the bridge client, which
	// the handler receives as Invocation.Bridge.
	ScopeBridge
)

func (s Scope) String() string {
	if s == ScopeBridge {
		return "bridge"
	}
	return "service"
}

// Handler executes a resolved invocation. A non-nil result is published as
// feedback.
type Handler func(ctx context.Context, inv Invocation) (any, error)

// Command is one entry in the dispatch table.
type Command struct {
	// Name is the public command name, e.g. "set_value".
	Name string

	// Arity is the number of arguments the handler accepts, excluding the
	// bridge handle. Resolved arguments beyond it are dropped.
	Arity int

	Scope Scope

	// StringArgs stringifies every argument before dispatch. The bridge
	// accepts scene ids only as strings.
	StringArgs bool

	Handler Handler
}

// Table is an immutable name-to-command mapping.
type Table struct {
	commands map[string]Command
}

// NewTable builds a table. Names must be non-empty, unique and must not
// start with an underscore.
func NewTable(commands ...Command) (*Table, error) {
	t := &Table{commands: make(map[string]Command, len(commands))}
	for _, c := range commands {
		switch {
		case c.Name == "" || strings.HasPrefix(c.Name, "_"):
			return nil, fmt.Errorf("%w: name %q", ErrInvalidCommand, c.Name)
		case c.Arity < 0:
			return nil, fmt.Errorf("%w: %s has negative arity", ErrInvalidCommand, c.Name)
		case c.Handler == nil:
			return nil, fmt.Errorf("%w: %s has no handler", ErrInvalidCommand, c.Name)
		}
		if _, exists := t.commands[c.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCommand, c.Name)
		}
		t.commands[c.Name] = c
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. It is intended for
// package-level tables built at start-up.
func MustTable(commands ...Command) *Table {
	t, err := NewTable(commands...)
	if err != nil {
		panic(err)
	}
	return t
}

// Merge returns a table holding the commands of t and other.
func (t *Table) Merge(other *Table) (*Table, error) {
	all := make([]Command, 0, len(t.commands)+len(other.commands))
	for _, c := range t.commands {
		all = append(all, c)
	}
	for _, c := range other.commands {
		all = append(all, c)
	}
	return NewTable(all...)
}

// Lookup returns the command with the given name.
func (t *Table) Lookup(name string) (Command, bool) {
	c, ok := t.commands[name]
	return c, ok
}

// Names returns the sorted command names.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.commands))
	for name := range t.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of commands.
func (t *Table) Len() int {
	return len(t.commands)
}
