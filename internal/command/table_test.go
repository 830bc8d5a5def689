package command

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewTable_Validation(t *testing.T) {
	tests := []struct {
		name     string
		commands []Command
		wantErr  error
	}{
		{"valid", []Command{{Name: "status", Handler: noop}}, nil},
		{"empty name", []Command{{Name: "", Handler: noop}}, ErrInvalidCommand},
		{"private name", []Command{{Name: "_login", Handler: noop}}, ErrInvalidCommand},
		{"negative arity", []Command{{Name: "x", Arity: -1, Handler: noop}}, ErrInvalidCommand},
		{"no handler", []Command{{Name: "x"}}, ErrInvalidCommand},
		{"duplicate", []Command{{Name: "x", Handler: noop}, {Name: "x", Handler: noop}}, ErrDuplicateCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.commands...)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("NewTable() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewTable() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTable_MergeAndNames(t *testing.T) {
	service := MustTable(Command{Name: "status", Handler: noop})
	bridge := MustTable(Command{Name: "turn_on", Arity: 1, Scope: ScopeBridge, Handler: noop})

	merged, err := service.Merge(bridge)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if !reflect.DeepEqual(merged.Names(), []string{"status", "turn_on"}) {
		t.Errorf("Names() = %v", merged.Names())
	}
	if c, ok := merged.Lookup("turn_on"); !ok || c.Scope != ScopeBridge {
		t.Errorf("Lookup(turn_on) = %+v, %v", c, ok)
	}

	if _, err := merged.Merge(service); !errors.Is(err, ErrDuplicateCommand) {
		t.Errorf("Merge() duplicate error = %v, want ErrDuplicateCommand", err)
	}
}

func TestMustTable_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustTable() did not panic on invalid table")
		}
	}()
	MustTable(Command{Name: "_hidden", Handler: noop})
}
