package caseta

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/osterwood/lutron-caseta/internal/infrastructure/mqtt"
	"github.com/osterwood/lutron-caseta/internal/leap"
	"github.com/osterwood/lutron-caseta/internal/loop"
)

// ===== MQTT =====

type mockPublish struct {
	Topic    string
	Payload  string
	QoS      byte
	Retained bool
}

// mockMQTT implements MQTTClient for testing.
type mockMQTT struct {
	mu        sync.Mutex
	published []mockPublish
	handlers  map[string]mqtt.MessageHandler
	connected bool
	closed    int
	closeErr  error
	order     *callOrder
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{connected: true, handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return mqtt.ErrNotConnected
	}
	m.published = append(m.published, mockPublish{topic, string(payload), qos, retained})
	return nil
}

func (m *mockMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockMQTT) Close() error {
	m.mu.Lock()
	m.closed++
	m.connected = false
	m.mu.Unlock()
	m.order.add("mqtt")
	return m.closeErr
}

func (m *mockMQTT) Published() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

// Last returns the last payload published on topic.
func (m *mockMQTT) Last(topic string) (mockPublish, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.published) - 1; i >= 0; i-- {
		if m.published[i].Topic == topic {
			return m.published[i], true
		}
	}
	return mockPublish{}, false
}

func (m *mockMQTT) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.published {
		if p.Topic == topic {
			n++
		}
	}
	return n
}

func (m *mockMQTT) Handler(topic string) (mqtt.MessageHandler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handlers[topic]
	return h, ok
}

// ===== Bridge =====

// mockBridge implements BridgeClient for testing.
type mockBridge struct {
	mu         sync.Mutex
	devices    []leap.Device
	buttons    []leap.Button
	scenes     []leap.Scene
	connected  bool
	connectErr error
	commandErr error
	calls      []string
	deviceSubs map[string]func(leap.Device)
	buttonSubs map[string]func(leap.ButtonEvent)
	onConn     func(bool)
	closed     int
	order      *callOrder
}

func newMockBridge() *mockBridge {
	return &mockBridge{
		devices: []leap.Device{
			{ID: "1", Name: "Smart Bridge", Type: "SmartBridge", Domain: leap.DomainOther},
			{ID: "5", Name: "Kitchen", Type: "WallDimmer", Domain: leap.DomainLight, Level: 50},
			{ID: "6", Name: "Porch", Type: "WallSwitch", Domain: leap.DomainSwitch},
			{ID: "7", Name: "Ceiling Fan", Type: "CasetaFanSpeedController", Domain: leap.DomainFan, Level: 50, FanSpeed: "Medium"},
			{ID: "8", Name: "Bedroom Shade", Type: "SerenaRollerShade", Domain: leap.DomainCover, Level: 100},
			{ID: "9", Name: "Hall Pico", Type: "Pico3ButtonRaiseLower", Domain: leap.DomainSensor},
		},
		buttons: []leap.Button{
			{ID: "100", Name: "Hall Pico", Type: "Pico3ButtonRaiseLower", Number: 0, Group: "20", Parent: "9", State: leap.Release},
			{ID: "101", Name: "Hall Pico", Type: "Pico3ButtonRaiseLower", Number: 1, Group: "20", Parent: "9", State: leap.Release},
		},
		scenes: []leap.Scene{
			{ID: "1", Name: "Evening"},
		},
		deviceSubs: make(map[string]func(leap.Device)),
		buttonSubs: make(map[string]func(leap.ButtonEvent)),
	}
}

func (b *mockBridge) record(format string, args ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
	return b.commandErr
}

func (b *mockBridge) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *mockBridge) Connect(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connectErr != nil {
		return b.connectErr
	}
	b.connected = true
	return nil
}

func (b *mockBridge) Close() error {
	b.mu.Lock()
	b.closed++
	b.connected = false
	b.mu.Unlock()
	b.order.add("bridge")
	return nil
}

func (b *mockBridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *mockBridge) Refresh(context.Context) error { return b.record("Refresh") }

func (b *mockBridge) Devices() []leap.Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]leap.Device(nil), b.devices...)
}

func (b *mockBridge) DevicesByDomain(domain leap.Domain) []leap.Device {
	var out []leap.Device
	for _, d := range b.Devices() {
		if d.Domain == domain {
			out = append(out, d)
		}
	}
	return out
}

func (b *mockBridge) Device(id string) (leap.Device, bool) {
	for _, d := range b.Devices() {
		if d.ID == id {
			return d, true
		}
	}
	return leap.Device{}, false
}

func (b *mockBridge) Buttons() []leap.Button {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]leap.Button(nil), b.buttons...)
}

func (b *mockBridge) Scenes() []leap.Scene {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]leap.Scene(nil), b.scenes...)
}

func (b *mockBridge) IsOn(id string) bool {
	d, ok := b.Device(id)
	return ok && d.Level > 0
}

func (b *mockBridge) SubscribeDevice(id string, fn func(leap.Device)) {
	b.mu.Lock()
	b.deviceSubs[id] = fn
	b.mu.Unlock()
}

func (b *mockBridge) SubscribeButton(id string, fn func(leap.ButtonEvent)) {
	b.mu.Lock()
	b.buttonSubs[id] = fn
	b.mu.Unlock()
}

func (b *mockBridge) OnConnectionChange(fn func(bool)) {
	b.mu.Lock()
	b.onConn = fn
	b.mu.Unlock()
}

// EmitDevice simulates a zone status update from the bridge.
func (b *mockBridge) EmitDevice(d leap.Device) {
	b.mu.Lock()
	fn := b.deviceSubs[d.ID]
	b.mu.Unlock()
	if fn != nil {
		fn(d)
	}
}

// EmitButton simulates a button event from the bridge.
func (b *mockBridge) EmitButton(id, eventType string) {
	b.mu.Lock()
	fn := b.buttonSubs[id]
	b.mu.Unlock()
	if fn != nil {
		fn(leap.ButtonEvent{ButtonID: id, Type: eventType})
	}
}

// EmitConnection simulates a session drop or reconnect.
func (b *mockBridge) EmitConnection(connected bool) {
	b.mu.Lock()
	b.connected = connected
	fn := b.onConn
	b.mu.Unlock()
	if fn != nil {
		fn(connected)
	}
}

func (b *mockBridge) SetValue(_ context.Context, id string, level int, fade time.Duration) error {
	return b.record("SetValue %s %d %s", id, level, fade)
}
func (b *mockBridge) TurnOn(_ context.Context, id string) error  { return b.record("TurnOn %s", id) }
func (b *mockBridge) TurnOff(_ context.Context, id string) error { return b.record("TurnOff %s", id) }
func (b *mockBridge) SetFan(_ context.Context, id, speed string) error {
	return b.record("SetFan %s %s", id, speed)
}
func (b *mockBridge) SetTilt(_ context.Context, id string, tilt int) error {
	return b.record("SetTilt %s %d", id, tilt)
}
func (b *mockBridge) RaiseCover(_ context.Context, id string) error {
	return b.record("RaiseCover %s", id)
}
func (b *mockBridge) LowerCover(_ context.Context, id string) error {
	return b.record("LowerCover %s", id)
}
func (b *mockBridge) StopCover(_ context.Context, id string) error {
	return b.record("StopCover %s", id)
}
func (b *mockBridge) ActivateScene(_ context.Context, id string) error {
	return b.record("ActivateScene %s", id)
}
func (b *mockBridge) ButtonCommand(_ context.Context, id, commandType string) error {
	return b.record("ButtonCommand %s %s", id, commandType)
}
func (b *mockBridge) TapButton(_ context.Context, id string) error {
	return b.record("TapButton %s", id)
}

// ===== Credentials, pairing, metrics =====

type mockCredentials struct {
	exists atomic.Bool
}

func (c *mockCredentials) Exists() bool { return c.exists.Load() }

func (c *mockCredentials) Missing() []string {
	if c.Exists() {
		return nil
	}
	return []string{"caseta.key", "caseta.crt", "caseta-bridge.crt"}
}

// countingPairer succeeds on attempt succeedOn by provisioning credentials.
type countingPairer struct {
	creds     *mockCredentials
	succeedOn int32
	attempts  atomic.Int32
}

func (p *countingPairer) Pair(context.Context) error {
	n := p.attempts.Add(1)
	if n >= p.succeedOn {
		p.creds.exists.Store(true)
		return nil
	}
	return fmt.Errorf("bridge button not pressed")
}

type mockMetrics struct {
	mu       sync.Mutex
	resolved map[string]int
	failed   map[string]int
	unknown  int
	dropped  int
	updates  map[string]int
	gestures map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		resolved: make(map[string]int),
		failed:   make(map[string]int),
		updates:  make(map[string]int),
		gestures: make(map[string]int),
	}
}

func (m *mockMetrics) CommandResolved(c string) { m.mu.Lock(); m.resolved[c]++; m.mu.Unlock() }
func (m *mockMetrics) CommandFailed(c string)   { m.mu.Lock(); m.failed[c]++; m.mu.Unlock() }
func (m *mockMetrics) UnknownCommand()          { m.mu.Lock(); m.unknown++; m.mu.Unlock() }
func (m *mockMetrics) CommandDropped()          { m.mu.Lock(); m.dropped++; m.mu.Unlock() }
func (m *mockMetrics) StateUpdate(k string)     { m.mu.Lock(); m.updates[k]++; m.mu.Unlock() }
func (m *mockMetrics) ButtonGesture(g string)   { m.mu.Lock(); m.gestures[g]++; m.mu.Unlock() }
func (m *mockMetrics) FeedbackPublished()       {}
func (m *mockMetrics) FeedbackDropped()         {}
func (m *mockMetrics) BridgeConnected(bool)     {}

func (m *mockMetrics) snapshot(fn func(m *mockMetrics) int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

type recordedState struct {
	name, kind string
	level      float64
	on         bool
}

type mockRecorder struct {
	mu     sync.Mutex
	states []recordedState
}

func (r *mockRecorder) RecordState(name, kind string, level float64, on bool) {
	r.mu.Lock()
	r.states = append(r.states, recordedState{name, kind, level, on})
	r.mu.Unlock()
}

func (r *mockRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// callOrder records the order in which sessions are closed.
type callOrder struct {
	mu    sync.Mutex
	names []string
}

func (o *callOrder) add(name string) {
	if o == nil {
		return
	}
	o.mu.Lock()
	o.names = append(o.names, name)
	o.mu.Unlock()
}

// ===== Harness =====

type harness struct {
	facade  *Facade
	mqtt    *mockMQTT
	bridge  *mockBridge
	creds   *mockCredentials
	metrics *mockMetrics
	rec     *mockRecorder
	loop    *loop.Loop
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()

	l := loop.New(loop.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	h := &harness{
		mqtt:    newMockMQTT(),
		bridge:  newMockBridge(),
		creds:   &mockCredentials{},
		metrics: newMockMetrics(),
		rec:     &mockRecorder{},
		loop:    l,
	}
	h.creds.exists.Store(true)

	opts := Options{
		MQTT:              h.mqtt,
		Bridge:            h.bridge,
		Loop:              l,
		Credentials:       h.creds,
		Metrics:           h.metrics,
		Recorder:          h.rec,
		PairRetryInterval: time.Millisecond,
		CommandTimeout:    time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}

	f, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.facade = f

	t.Cleanup(func() {
		f.Close()
		cancel()
		<-l.Done()
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.facade.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

// send delivers an MQTT command through the subscribed handler.
func (h *harness) send(t *testing.T, topic, payload string) {
	t.Helper()
	handler, ok := h.mqtt.Handler("+/lutron/#")
	if !ok {
		t.Fatal("facade did not subscribe to +/lutron/#")
	}
	if err := handler(topic, []byte(payload)); err != nil {
		t.Fatalf("handler(%s) error = %v", topic, err)
	}
}

// flush waits until all work queued on the loop so far has run.
func (h *harness) flush(t *testing.T) {
	t.Helper()
	if err := h.loop.Call(context.Background(), func() {}); err != nil {
		t.Fatalf("loop.Call() error = %v", err)
	}
}

// waitFor polls cond until it holds or a deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
