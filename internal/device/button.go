package device

import "fmt"

// Button is one button of a multi-button remote. Its state is the last
// event reported by the bridge: ButtonPressed or ButtonReleased.
type Button struct {
	id      string
	name    string
	typ     string
	group   string
	ordinal int
	state   string
	env     Env
	timer   *ButtonTimer
}

func newButton(rec Record, env Env) *Button {
	if rec.Type != "" && env.Layouts.Ensure(rec.Type) {
		env.Logger.Warn("unknown button layout, using ordinal labels",
			"layout", rec.Type,
			"button", rec.ID,
		)
	}

	state := rec.ButtonState
	if state == "" {
		state = ButtonReleased
	}

	b := &Button{
		id:      rec.ID,
		name:    NormalizeName(rec.Name),
		typ:     rec.Type,
		group:   rec.ButtonGroup,
		ordinal: rec.ButtonNumber,
		state:   state,
		env:     env,
	}
	if env.Scheduler != nil {
		b.timer = NewButtonTimer(env.Scheduler, b.IsOn, b.onGesture)
	}
	return b
}

func (b *Button) ID() string            { return b.id }
func (b *Button) Name() string          { return b.name }
func (b *Button) Kind() Kind            { return KindButton }
func (b *Button) Type() string          { return b.typ }
func (b *Button) State() any            { return b.state }
func (b *Button) IsOn() bool            { return b.state == ButtonPressed }
func (b *Button) DisplayString() string { return DisplayString(b.IsOn()) }
func (b *Button) sealed()               {}

// Group returns the bridge button group the button belongs to.
func (b *Button) Group() string { return b.group }

// Ordinal returns the button's position on its remote.
func (b *Button) Ordinal() int { return b.ordinal }

// Layout returns the remote's layout name.
func (b *Button) Layout() string { return b.typ }

// Label returns the human label for the button, e.g. "On" or "Raise".
func (b *Button) Label() string {
	return b.env.Layouts.Label(b.typ, b.ordinal)
}

// Topic returns the feedback topic for the button's press state.
func (b *Button) Topic() string {
	return fmt.Sprintf("%s/%d", b.name, b.ordinal)
}

func (b *Button) Apply(rec Record) {
	if rec.ButtonState != "" {
		b.state = rec.ButtonState
	}
}

// OnStateChanged publishes the press state and feeds the gesture timer.
func (b *Button) OnStateChanged() {
	b.env.Logger.Info("button state changed",
		"button", b.name,
		"id", b.id,
		"ordinal", b.ordinal,
		"label", b.Label(),
		"state", b.state,
	)
	b.env.Publisher.Publish(b.Topic(), b.DisplayString())
	if b.timer != nil {
		b.timer.Update()
	}
}

func (b *Button) onGesture(g Gesture) {
	b.env.Logger.Info("button gesture", "button", b.name, "ordinal", b.ordinal, "gesture", g.String())
	switch g {
	case GestureDoubleClick:
		b.env.Publisher.Publish(b.Topic()+"/double", On)
	case GestureLongPress:
		b.env.Publisher.Publish(b.Topic()+"/long", On)
	case GestureLongRelease:
		b.env.Publisher.Publish(b.Topic()+"/long", Off)
	}
	if b.env.OnGesture != nil {
		b.env.OnGesture(b, g)
	}
}

func (b *Button) Snapshot() Snapshot {
	ordinal := b.ordinal
	return Snapshot{
		ID:      b.id,
		Name:    b.name,
		Kind:    KindButton,
		Type:    b.typ,
		State:   b.state,
		On:      b.IsOn(),
		Display: b.DisplayString(),
		Group:   b.group,
		Ordinal: &ordinal,
		Label:   b.Label(),
	}
}
