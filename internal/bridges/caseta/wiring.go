package caseta

import (
	"github.com/osterwood/lutron-caseta/internal/device"
	"github.com/osterwood/lutron-caseta/internal/leap"
)

// kindFor maps a bridge domain to the device wrapper that publishes it.
func kindFor(domain leap.Domain) device.Kind {
	switch domain {
	case leap.DomainLight:
		return device.KindDimmer
	case leap.DomainSwitch:
		return device.KindSwitch
	case leap.DomainFan:
		return device.KindFan
	case leap.DomainCover:
		return device.KindShade
	default:
		return device.KindGeneric
	}
}

func deviceRecord(d leap.Device) device.Record {
	return device.Record{
		ID:       d.ID,
		Name:     d.Name,
		Type:     d.Type,
		Model:    d.Model,
		Serial:   d.Serial,
		Zone:     d.Zone,
		Level:    d.Level,
		FanSpeed: d.FanSpeed,
		Tilt:     d.Tilt,
	}
}

func buttonRecord(b leap.Button) device.Record {
	return device.Record{
		ID:           b.ID,
		Name:         b.Name,
		Type:         b.Type,
		ButtonGroup:  b.Group,
		ButtonNumber: b.Number,
		ButtonState:  b.State,
	}
}

// wire wraps every bridge button and device, subscribes each to bridge
// updates and publishes its current value. Runs on the loop.
func (f *Facade) wire() {
	env := device.Env{
		Publisher: f.feedback,
		Logger:    f.logger,
		Scheduler: f.exec,
		Layouts:   f.layouts,
		OnGesture: f.onGesture,
	}

	for _, b := range f.bridge.Buttons() {
		d := device.New(device.KindButton, buttonRecord(b), env)
		if !f.register(d) {
			continue
		}
		id := b.ID
		f.bridge.SubscribeButton(id, func(ev leap.ButtonEvent) {
			f.post(func() { f.onButtonEvent(id, ev) })
		})
		d.OnStateChanged()
	}

	for _, bd := range f.bridge.Devices() {
		// Remotes are represented by their buttons.
		if bd.Domain == leap.DomainSensor {
			continue
		}
		d := device.New(kindFor(bd.Domain), deviceRecord(bd), env)
		if !f.register(d) {
			continue
		}
		f.bridge.SubscribeDevice(bd.ID, func(update leap.Device) {
			f.post(func() { f.onDeviceUpdate(update) })
		})
		d.OnStateChanged()
		f.record(d)
	}

	f.logger.Info("devices wired", "count", f.registry.Len())
}

func (f *Facade) register(d device.Device) bool {
	if err := f.registry.Register(d); err != nil {
		f.logger.Warn("skipping device", "id", d.ID(), "name", d.Name(), "error", err)
		return false
	}
	return true
}

// post queues fn on the loop, logging if the loop is gone.
func (f *Facade) post(fn func()) {
	if err := f.exec.Post(fn); err != nil {
		f.logger.Debug("dropping bridge update", "error", err)
	}
}

func (f *Facade) onDeviceUpdate(update leap.Device) {
	d, ok := f.registry.Device(update.ID)
	if !ok {
		f.logger.Debug("update for unwired device", "id", update.ID)
		return
	}
	d.Apply(deviceRecord(update))
	d.OnStateChanged()
	f.metrics.StateUpdate(string(d.Kind()))
	f.record(d)
}

func (f *Facade) onButtonEvent(id string, ev leap.ButtonEvent) {
	b, ok := f.registry.Button(id)
	if !ok {
		f.logger.Debug("event for unwired button", "id", id)
		return
	}
	b.Apply(device.Record{ButtonState: ev.Type})
	b.OnStateChanged()
	f.metrics.StateUpdate(string(device.KindButton))
}

func (f *Facade) onGesture(b *device.Button, g device.Gesture) {
	f.metrics.ButtonGesture(g.String())
}

// record exports non-button state to the optional recorder.
func (f *Facade) record(d device.Device) {
	if f.recorder == nil {
		return
	}
	level := 0.0
	if n, ok := d.State().(int); ok {
		level = float64(n)
	}
	f.recorder.RecordState(d.Name(), string(d.Kind()), level, d.IsOn())
}
