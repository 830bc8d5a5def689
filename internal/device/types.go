package device

import (
	"fmt"
	"strings"
)

// Kind is the capability class of a device wrapper.
type Kind string

// Device kinds.
const (
	KindDimmer  Kind = "dimmer"
	KindSwitch  Kind = "switch"
	KindFan     Kind = "fan"
	KindShade   Kind = "shade"
	KindButton  Kind = "button"
	KindGeneric Kind = "generic"
)

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDimmer, KindSwitch, KindFan, KindShade, KindButton, KindGeneric:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Button states reported by the bridge.
const (
	ButtonPressed  = "Press"
	ButtonReleased = "Release"
)

// Display strings.
const (
	On  = "ON"
	Off = "OFF"
)

// Record is the bridge's view of one device or button.
type Record struct {
	ID     string
	Name   string
	Type   string
	Model  string
	Serial string
	Zone   string

	// Level is the current output level (0-100) for non-button devices.
	Level    int
	FanSpeed string
	// Tilt is nil when the update carries no tilt.
	Tilt *int

	// Button fields.
	ButtonGroup  string
	ButtonNumber int
	ButtonState  string
}

// Publisher sends feedback to the message bus. Implementations must not
// fail when the bus is disconnected.
type Publisher interface {
	Publish(topic, payload string)
}

// Logger defines the logging interface used by devices and the registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string) {}

// NormalizeName converts a bridge label to its addressing key:
// lowercase with spaces replaced by underscores.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// DisplayString renders a boolean as ON or OFF.
func DisplayString(on bool) string {
	if on {
		return On
	}
	return Off
}

// Snapshot is a read-only copy of a device's state.
type Snapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Type     string `json:"type,omitempty"`
	State    any    `json:"state"`
	On       bool   `json:"on"`
	Display  string `json:"display"`
	FanSpeed string `json:"fan_speed,omitempty"`
	Tilt     *int   `json:"tilt,omitempty"`
	Group    string `json:"group,omitempty"`
	Ordinal  *int   `json:"ordinal,omitempty"`
	Label    string `json:"label,omitempty"`
}
