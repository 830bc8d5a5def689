package device

import (
	"strconv"
	"strings"
	"sync"
)

// DefaultLayouts is the process-wide button layout table.
var DefaultLayouts = NewLayoutTable()

// seedLayouts maps remote types to their button labels by ordinal.
var seedLayouts = map[string]map[int]string{
	"Pico1Button":           {0: "Button"},
	"Pico2Button":           {0: "On", 1: "Off"},
	"Pico2ButtonRaiseLower": {0: "On", 1: "Off", 2: "Raise", 3: "Lower"},
	"Pico3Button":           {0: "On", 1: "Fav", 2: "Off"},
	"Pico3ButtonRaiseLower": {0: "On", 1: "Fav", 2: "Off", 3: "Raise", 4: "Lower"},
	"Pico4Button":           {0: "1", 1: "2", 2: "3", 3: "4"},
	"Pico4ButtonScene":      {0: "On", 1: "Off", 2: "Preset 1", 3: "Preset 2"},
	"Pico4Button2Group":     {0: "Group 1 On", 1: "Group 1 Off", 2: "Group 2 On", 3: "Group 2 Off"},
	"FourGroupRemote":       {0: "Group 1 On", 1: "Group 2 On", 2: "Group 3 On", 3: "Group 4 On"},
}

// LayoutTable maps a remote's layout name to its ordinal labels.
//
// Existing layouts are never modified; unknown layouts can only be added as
// empty entries through Ensure.
type LayoutTable struct {
	mu      sync.RWMutex
	layouts map[string]map[int]string
}

// NewLayoutTable returns a table seeded with the known Pico layouts.
func NewLayoutTable() *LayoutTable {
	t := &LayoutTable{layouts: make(map[string]map[int]string, len(seedLayouts))}
	for name, labels := range seedLayouts {
		copied := make(map[int]string, len(labels))
		for ordinal, label := range labels {
			copied[ordinal] = label
		}
		t.layouts[name] = copied
	}
	return t
}

// Known reports whether the layout exists in the table.
func (t *LayoutTable) Known(layout string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.layouts[layout]
	return ok
}

// Ensure adds an empty entry for an unknown layout. It reports whether the
// layout was added.
func (t *LayoutTable) Ensure(layout string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.layouts[layout]; ok {
		return false
	}
	t.layouts[layout] = map[int]string{}
	return true
}

// Label returns the label for ordinal, or its decimal form if the layout
// has none.
func (t *LayoutTable) Label(layout string, ordinal int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if label, ok := t.layouts[layout][ordinal]; ok {
		return label
	}
	return strconv.Itoa(ordinal)
}

// Ordinal finds the ordinal carrying label, compared case-insensitively.
func (t *LayoutTable) Ordinal(layout, label string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for ordinal, l := range t.layouts[layout] {
		if strings.EqualFold(l, label) {
			return ordinal, true
		}
	}
	return 0, false
}
