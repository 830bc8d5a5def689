package device

import (
	"strconv"

	"github.com/osterwood/lutron-caseta/internal/loop"
)

// Device is implemented by every device variant. The set of variants is
// closed: Dimmer, Switch, Fan, Shade, Generic and Button.
type Device interface {
	ID() string
	Name() string
	Kind() Kind
	Type() string

	// State returns the raw current state: an int level, or the button
	// event string for buttons.
	State() any

	// IsOn reports whether the device is on (level > 0) or pressed.
	IsOn() bool

	// DisplayString returns ON or OFF according to IsOn.
	DisplayString() string

	// Apply copies the bridge's latest state into the device.
	Apply(rec Record)

	// OnStateChanged logs the transition and publishes feedback.
	OnStateChanged()

	Snapshot() Snapshot

	sealed()
}

// Env carries the collaborators shared by every device.
type Env struct {
	Publisher Publisher
	Logger    Logger

	// Scheduler drives button timers. Required for buttons.
	Scheduler loop.Scheduler

	// Layouts resolves button labels. Default: DefaultLayouts.
	Layouts *LayoutTable

	// OnGesture observes derived button gestures. Optional.
	OnGesture func(b *Button, g Gesture)
}

func (e Env) withDefaults() Env {
	if e.Publisher == nil {
		e.Publisher = noopPublisher{}
	}
	if e.Logger == nil {
		e.Logger = noopLogger{}
	}
	if e.Layouts == nil {
		e.Layouts = DefaultLayouts
	}
	return e
}

// New builds the wrapper for kind. Unknown kinds fall back to Generic.
func New(kind Kind, rec Record, env Env) Device {
	env = env.withDefaults()
	base := leveled{
		id:    rec.ID,
		name:  NormalizeName(rec.Name),
		typ:   rec.Type,
		level: rec.Level,
		env:   env,
	}

	switch kind {
	case KindDimmer:
		base.kind = KindDimmer
		return &Dimmer{leveled: base}
	case KindSwitch:
		base.kind = KindSwitch
		return &Switch{leveled: base}
	case KindFan:
		base.kind = KindFan
		return &Fan{leveled: base, speed: rec.FanSpeed}
	case KindShade:
		base.kind = KindShade
		shade := &Shade{leveled: base}
		if rec.Tilt != nil {
			shade.tilt = *rec.Tilt
		}
		return shade
	case KindButton:
		return newButton(rec, env)
	default:
		base.kind = KindGeneric
		return &Generic{leveled: base}
	}
}

// leveled is the shared implementation of every non-button variant.
type leveled struct {
	id    string
	name  string
	kind  Kind
	typ   string
	level int
	env   Env
}

func (d *leveled) ID() string            { return d.id }
func (d *leveled) Name() string          { return d.name }
func (d *leveled) Kind() Kind            { return d.kind }
func (d *leveled) Type() string          { return d.typ }
func (d *leveled) State() any            { return d.level }
func (d *leveled) Level() int            { return d.level }
func (d *leveled) IsOn() bool            { return d.level > 0 }
func (d *leveled) DisplayString() string { return DisplayString(d.IsOn()) }
func (d *leveled) sealed()               {}

func (d *leveled) Apply(rec Record) {
	d.level = rec.Level
}

func (d *leveled) snapshot() Snapshot {
	return Snapshot{
		ID:      d.id,
		Name:    d.name,
		Kind:    d.kind,
		Type:    d.typ,
		State:   d.level,
		On:      d.IsOn(),
		Display: d.DisplayString(),
	}
}

func (d *leveled) publish(payload string) {
	d.env.Logger.Info("device state changed",
		"device", d.name,
		"id", d.id,
		"kind", string(d.kind),
		"state", d.level,
	)
	d.env.Publisher.Publish(d.name, payload)
}

// Dimmer is a dimmable light. Feedback carries the numeric level.
type Dimmer struct {
	leveled
}

func (d *Dimmer) OnStateChanged()    { d.publish(strconv.Itoa(d.level)) }
func (d *Dimmer) Snapshot() Snapshot { return d.snapshot() }

// Switch is an on/off load.
type Switch struct {
	leveled
}

func (d *Switch) OnStateChanged()    { d.publish(d.DisplayString()) }
func (d *Switch) Snapshot() Snapshot { return d.snapshot() }

// Fan is a fan speed controller.
type Fan struct {
	leveled
	speed string
}

// FanSpeed returns the last reported speed name (e.g. "Medium").
func (d *Fan) FanSpeed() string { return d.speed }

func (d *Fan) Apply(rec Record) {
	d.leveled.Apply(rec)
	if rec.FanSpeed != "" {
		d.speed = rec.FanSpeed
	}
}

func (d *Fan) OnStateChanged() { d.publish(d.DisplayString()) }

func (d *Fan) Snapshot() Snapshot {
	s := d.snapshot()
	s.FanSpeed = d.speed
	return s
}

// Shade is a motorised shade or blind.
type Shade struct {
	leveled
	tilt int
}

// Tilt returns the last reported tilt (0-100).
func (d *Shade) Tilt() int { return d.tilt }

func (d *Shade) Apply(rec Record) {
	d.leveled.Apply(rec)
	if rec.Tilt != nil {
		d.tilt = *rec.Tilt
	}
}

func (d *Shade) OnStateChanged() { d.publish(d.DisplayString()) }

func (d *Shade) Snapshot() Snapshot {
	s := d.snapshot()
	tilt := d.tilt
	s.Tilt = &tilt
	return s
}

// Generic wraps any device type without a dedicated variant.
type Generic struct {
	leveled
}

func (d *Generic) OnStateChanged()    { d.publish(strconv.Itoa(d.level)) }
func (d *Generic) Snapshot() Snapshot { return d.snapshot() }
