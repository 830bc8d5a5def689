package device

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type buttonKey struct {
	name    string
	ordinal int
}

// Registry indexes the wrapped devices and buttons of one bridge session.
//
// Devices are addressed by name, buttons by name plus designator. When two
// entries share an address the last one registered wins and a warning is
// logged.
//
// Registry is owned by the event loop and is not safe for concurrent use.
type Registry struct {
	devices map[string]Device
	buttons map[string]*Button

	deviceNames map[string]string
	buttonKeys  map[buttonKey]string

	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices:     make(map[string]Device),
		buttons:     make(map[string]*Button),
		deviceNames: make(map[string]string),
		buttonKeys:  make(map[buttonKey]string),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// Register adds d to the registry, replacing any entry with the same id.
func (r *Registry) Register(d Device) error {
	if d == nil || d.ID() == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDevice)
	}

	if b, ok := d.(*Button); ok {
		key := buttonKey{name: b.Name(), ordinal: b.Ordinal()}
		if prev, exists := r.buttonKeys[key]; exists && prev != b.ID() {
			r.logger.Warn("duplicate button address, last registration wins",
				"name", key.name,
				"ordinal", key.ordinal,
				"previous_id", prev,
				"id", b.ID(),
			)
		}
		r.buttons[b.ID()] = b
		r.buttonKeys[key] = b.ID()
		return nil
	}

	if prev, exists := r.deviceNames[d.Name()]; exists && prev != d.ID() {
		r.logger.Warn("duplicate device name, last registration wins",
			"name", d.Name(),
			"previous_id", prev,
			"id", d.ID(),
		)
	}
	r.devices[d.ID()] = d
	r.deviceNames[d.Name()] = d.ID()
	return nil
}

// Device returns the non-button device with the given id.
func (r *Registry) Device(id string) (Device, bool) {
	d, ok := r.devices[id]
	return d, ok
}

// Button returns the button with the given id.
func (r *Registry) Button(id string) (*Button, bool) {
	b, ok := r.buttons[id]
	return b, ok
}

// FindDevice looks up a non-button device by name.
func (r *Registry) FindDevice(name string) (Device, bool) {
	id, ok := r.deviceNames[NormalizeName(name)]
	if !ok {
		return nil, false
	}
	return r.devices[id], true
}

// FindButton looks up a button by remote name and designator. The
// designator is an ordinal (integer or digit string) or a label compared
// case-insensitively. A nil designator never matches.
func (r *Registry) FindButton(name string, designator any) (*Button, bool) {
	name = NormalizeName(name)

	if ordinal, ok := ordinalOf(designator); ok {
		id, found := r.buttonKeys[buttonKey{name: name, ordinal: ordinal}]
		if !found {
			return nil, false
		}
		return r.buttons[id], true
	}

	label, ok := designator.(string)
	if !ok || strings.TrimSpace(label) == "" {
		return nil, false
	}
	label = strings.TrimSpace(label)
	for _, b := range r.sortedButtons() {
		if b.Name() == name && strings.EqualFold(b.Label(), label) {
			return b, true
		}
	}
	return nil, false
}

// Resolve maps a target name and optional designator to an id. Buttons are
// searched first, then devices.
func (r *Registry) Resolve(name string, designator any) (id string, isButton bool, ok bool) {
	if b, found := r.FindButton(name, designator); found {
		return b.ID(), true, true
	}
	if d, found := r.FindDevice(name); found {
		return d.ID(), false, true
	}
	return "", false, false
}

// Devices returns the non-button devices sorted by name.
func (r *Registry) Devices() []Device {
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() == out[j].Name() {
			return out[i].ID() < out[j].ID()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Buttons returns the buttons sorted by name and ordinal.
func (r *Registry) Buttons() []*Button {
	return r.sortedButtons()
}

// Len returns the number of registered devices and buttons.
func (r *Registry) Len() int {
	return len(r.devices) + len(r.buttons)
}

// Snapshots returns a copy of every entry, devices first.
func (r *Registry) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, r.Len())
	for _, d := range r.Devices() {
		out = append(out, d.Snapshot())
	}
	for _, b := range r.sortedButtons() {
		out = append(out, b.Snapshot())
	}
	return out
}

func (r *Registry) sortedButtons() []*Button {
	out := make([]*Button, 0, len(r.buttons))
	for _, b := range r.buttons {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		if out[i].Ordinal() != out[j].Ordinal() {
			return out[i].Ordinal() < out[j].Ordinal()
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// ordinalOf interprets a designator as a button ordinal.
func ordinalOf(designator any) (int, bool) {
	switch v := designator.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		for _, c := range s {
			if c < '0' || c > '9' {
				return 0, false
			}
		}
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, true
		}
	}
	return 0, false
}
