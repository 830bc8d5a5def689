package caseta

import (
	"context"
	"time"

	"github.com/osterwood/lutron-caseta/internal/infrastructure/mqtt"
	"github.com/osterwood/lutron-caseta/internal/leap"
	"github.com/osterwood/lutron-caseta/internal/loop"
)

// MQTTClient is the interface for MQTT operations.
// It is satisfied by *mqtt.Client.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool

	// Close disconnects from the broker.
	Close() error
}

// BridgeClient is the session with the lighting bridge.
// It is satisfied by *leap.Client.
type BridgeClient interface {
	Connect(ctx context.Context) error
	Close() error
	IsConnected() bool
	Refresh(ctx context.Context) error

	Devices() []leap.Device
	DevicesByDomain(domain leap.Domain) []leap.Device
	Device(id string) (leap.Device, bool)
	Buttons() []leap.Button
	Scenes() []leap.Scene
	IsOn(id string) bool

	SubscribeDevice(id string, fn func(leap.Device))
	SubscribeButton(id string, fn func(leap.ButtonEvent))
	OnConnectionChange(fn func(connected bool))

	SetValue(ctx context.Context, id string, level int, fade time.Duration) error
	TurnOn(ctx context.Context, id string) error
	TurnOff(ctx context.Context, id string) error
	SetFan(ctx context.Context, id, speed string) error
	SetTilt(ctx context.Context, id string, tilt int) error
	RaiseCover(ctx context.Context, id string) error
	LowerCover(ctx context.Context, id string) error
	StopCover(ctx context.Context, id string) error
	ActivateScene(ctx context.Context, sceneID string) error
	ButtonCommand(ctx context.Context, buttonID, commandType string) error
	TapButton(ctx context.Context, buttonID string) error
}

// Ensure leap.Client implements BridgeClient.
var _ BridgeClient = (*leap.Client)(nil)

// Executor runs work on the event loop.
// It is satisfied by *loop.Loop.
type Executor interface {
	loop.Scheduler
	Post(fn func()) error
	TryPost(fn func()) error
	Call(ctx context.Context, fn func()) error
}

// Pairer obtains bridge credentials.
type Pairer interface {
	Pair(ctx context.Context) error
}

// CredentialStore reports whether pairing credentials are present.
// It is satisfied by leap.Credentials.
type CredentialStore interface {
	Exists() bool
	Missing() []string
}

// Metrics receives operational counters. All methods must be cheap.
type Metrics interface {
	CommandResolved(command string)
	CommandFailed(command string)
	UnknownCommand()
	CommandDropped()
	StateUpdate(kind string)
	ButtonGesture(gesture string)
	FeedbackPublished()
	FeedbackDropped()
	BridgeConnected(connected bool)
}

// StateRecorder exports device state, e.g. to a time-series database.
type StateRecorder interface {
	RecordState(name, kind string, level float64, on bool)
}

// Logger defines the logging interface used by the facade.
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

type noopMetrics struct{}

func (noopMetrics) CommandResolved(string) {}
func (noopMetrics) CommandFailed(string)   {}
func (noopMetrics) UnknownCommand()        {}
func (noopMetrics) CommandDropped()        {}
func (noopMetrics) StateUpdate(string)     {}
func (noopMetrics) ButtonGesture(string)   {}
func (noopMetrics) FeedbackPublished()     {}
func (noopMetrics) FeedbackDropped()       {}
func (noopMetrics) BridgeConnected(bool)   {}
