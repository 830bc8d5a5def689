package caseta

import (
	"context"
	"fmt"
	"time"

	"github.com/osterwood/lutron-caseta/internal/command"
	"github.com/osterwood/lutron-caseta/internal/device"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/mqtt"
)

// Health is a point-in-time summary of the facade for the HTTP API.
type Health struct {
	State           string        `json:"state"`
	BridgeConnected bool          `json:"bridge_connected"`
	MQTTConnected   bool          `json:"mqtt_connected"`
	Devices         int           `json:"devices"`
	Buttons         int           `json:"buttons"`
	Uptime          time.Duration `json:"uptime_ns"`
}

// Healthy reports whether both sessions are up.
func (h Health) Healthy() bool {
	return h.BridgeConnected && h.MQTTConnected
}

// Health returns the current health summary.
func (f *Facade) Health(ctx context.Context) Health {
	h := Health{
		State:           f.State().String(),
		BridgeConnected: f.bridge.IsConnected(),
		MQTTConnected:   f.mqtt.IsConnected(),
		Uptime:          time.Since(f.startedAt),
	}
	_ = f.exec.Call(ctx, func() {
		h.Buttons = len(f.registry.Buttons())
		h.Devices = f.registry.Len() - h.Buttons
	})
	return h
}

// Snapshots returns the state of every wired device and button.
func (f *Facade) Snapshots(ctx context.Context) ([]device.Snapshot, error) {
	var out []device.Snapshot
	if err := f.exec.Call(ctx, func() { out = f.registry.Snapshots() }); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot returns the state of the device or button remote with the given
// name. A remote yields one snapshot per button.
func (f *Facade) Snapshot(ctx context.Context, name string) ([]device.Snapshot, bool, error) {
	var out []device.Snapshot
	err := f.exec.Call(ctx, func() {
		key := device.NormalizeName(name)
		if d, ok := f.registry.FindDevice(key); ok {
			out = append(out, d.Snapshot())
			return
		}
		for _, b := range f.registry.Buttons() {
			if b.Name() == key {
				out = append(out, b.Snapshot())
			}
		}
	})
	if err != nil {
		return nil, false, err
	}
	return out, len(out) > 0, nil
}

// Topics returns the topic layout the facade publishes and subscribes on.
func (f *Facade) Topics() mqtt.Topics {
	return f.topics
}

// Commands returns the names of every command the facade accepts, sorted.
func (f *Facade) Commands() []string {
	return f.resolver.Table().Names()
}

// Submit runs a command as if it arrived on the command topic for target.
// It returns once the command is queued.
func (f *Facade) Submit(commandName, target string, payload []byte) error {
	if _, ok := f.resolver.Table().Lookup(commandName); !ok {
		return fmt.Errorf("%w: %s", command.ErrUnknownCommand, commandName)
	}
	if f.State() == StateClosed {
		return ErrClosed
	}
	return f.HandleMessage(f.topics.Command(commandName, target), payload)
}
