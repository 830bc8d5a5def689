package caseta

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/osterwood/lutron-caseta/internal/command"
	"github.com/osterwood/lutron-caseta/internal/device"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/mqtt"
)

// Facade operation constants.
const (
	// defaultPairRetryInterval is the delay between pairing attempts.
	defaultPairRetryInterval = time.Second

	// defaultCommandTimeout bounds the bridge I/O of one command.
	defaultCommandTimeout = 10 * time.Second

	// commandQueueSize is the buffer of resolved commands awaiting the
	// command worker.
	commandQueueSize = 256

	// defaultQoS is used for command subscriptions and feedback.
	defaultQoS = 1
)

// Facade owns the bridge session and translates between MQTT and the bridge.
//
// Thread Safety: Start and Close may be called from any goroutine. Device
// state is only touched on the Executor's goroutine.
type Facade struct {
	serviceName       string
	topics            mqtt.Topics
	qos               byte
	pairRetryInterval time.Duration
	commandTimeout    time.Duration

	mqtt     MQTTClient
	bridge   BridgeClient
	exec     Executor
	creds    CredentialStore
	pairer   Pairer
	layouts  *device.LayoutTable
	metrics  Metrics
	recorder StateRecorder
	logger   Logger

	feedback *FeedbackPublisher
	registry *device.Registry
	resolver *command.Resolver

	state     atomic.Int32
	startedAt time.Time

	// Resolved commands run one at a time, in arrival order, on the
	// command worker. closed guards queue sends and inflight.Add against
	// Close.
	ctx        context.Context
	cancel     context.CancelFunc
	queue      chan queuedCommand
	workerDone chan struct{}
	inflight   sync.WaitGroup
	inflightMu sync.Mutex
	closed     bool
	closeOnce  sync.Once
	closeErr   error
}

// Options holds configuration for creating a Facade.
type Options struct {
	// ServiceName is the service segment of command topics. Default: "caseta"
	ServiceName string

	// Topics is the MQTT topic layout. Default: mqtt.NewTopics("", "", "")
	Topics mqtt.Topics

	// QoS for subscriptions and feedback. Default: 1
	QoS byte

	// Retain marks device feedback as retained.
	Retain bool

	// JSONFeedback publishes state as {"<name>": value} on the feedback
	// prefix instead of one topic per device.
	JSONFeedback bool

	// PairRetryInterval is the delay between pairing attempts. Default: 1s
	PairRetryInterval time.Duration

	// CommandTimeout bounds the bridge I/O of one command. Default: 10s
	CommandTimeout time.Duration

	// MQTT is the broker session. Required.
	MQTT MQTTClient

	// Bridge is the bridge session. Required.
	Bridge BridgeClient

	// Loop runs device state work. Required.
	Loop Executor

	// Credentials reports whether pairing is complete. Required.
	Credentials CredentialStore

	// Pairer obtains credentials. Default: wait for the files to appear.
	Pairer Pairer

	// Layouts resolves button labels. Default: device.DefaultLayouts
	Layouts *device.LayoutTable

	// Metrics, Recorder and Logger are optional.
	Metrics  Metrics
	Recorder StateRecorder
	Logger   Logger
}

// New creates a facade. Call Start to pair, connect and begin routing.
func New(opts Options) (*Facade, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Bridge == nil {
		return nil, fmt.Errorf("bridge client is required")
	}
	if opts.Loop == nil {
		return nil, fmt.Errorf("loop is required")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	f := &Facade{
		serviceName:       valueOr(opts.ServiceName, command.DefaultServiceName),
		topics:            opts.Topics,
		qos:               opts.QoS,
		pairRetryInterval: opts.PairRetryInterval,
		commandTimeout:    opts.CommandTimeout,
		mqtt:              opts.MQTT,
		bridge:            opts.Bridge,
		exec:              opts.Loop,
		creds:             opts.Credentials,
		pairer:            opts.Pairer,
		layouts:           opts.Layouts,
		metrics:           opts.Metrics,
		recorder:          opts.Recorder,
		logger:            opts.Logger,
		registry:          device.NewRegistry(),
		startedAt:         time.Now(),
	}
	if f.topics.Root == "" {
		f.topics = mqtt.NewTopics("", "", "")
	}
	if f.qos == 0 {
		f.qos = defaultQoS
	}
	if f.pairRetryInterval <= 0 {
		f.pairRetryInterval = defaultPairRetryInterval
	}
	if f.commandTimeout <= 0 {
		f.commandTimeout = defaultCommandTimeout
	}
	if f.pairer == nil {
		f.pairer = CredentialWaiter{Credentials: opts.Credentials}
	}
	if f.layouts == nil {
		f.layouts = device.DefaultLayouts
	}
	if f.metrics == nil {
		f.metrics = noopMetrics{}
	}
	if f.logger == nil {
		f.logger = noopLogger{}
	}

	f.registry.SetLogger(f.logger)
	f.feedback = NewFeedbackPublisher(opts.MQTT, f.topics, f.qos, opts.Retain, opts.JSONFeedback)
	f.feedback.logger = f.logger
	f.feedback.metrics = f.metrics

	table, err := f.commandTable()
	if err != nil {
		return nil, err
	}
	f.resolver, err = command.NewResolver(command.Options{
		Table:       table,
		Devices:     f.registry,
		RootName:    f.topics.Root,
		ServiceName: f.serviceName,
		Bridge:      f.bridge,
		Logger:      f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building resolver: %w", err)
	}

	f.ctx, f.cancel = context.WithCancel(context.Background())
	f.queue = make(chan queuedCommand, commandQueueSize)
	f.workerDone = make(chan struct{})
	go f.runCommands()

	f.state.Store(int32(StateUnpaired))
	return f, nil
}

// commandTable merges the service and bridge pass-through operations.
func (f *Facade) commandTable() (*command.Table, error) {
	service, err := command.NewTable(f.serviceCommands()...)
	if err != nil {
		return nil, fmt.Errorf("service commands: %w", err)
	}
	bridge, err := command.NewTable(bridgeCommands()...)
	if err != nil {
		return nil, fmt.Errorf("bridge commands: %w", err)
	}
	return service.Merge(bridge)
}

// Start pairs if needed, connects the bridge session, wires every device
// and subscribes to commands.
//
// Pairing is retried until it succeeds or ctx ends. Connection failures
// are wrapped in ErrSession and not retried here.
func (f *Facade) Start(ctx context.Context) error {
	if f.State() == StateClosed {
		return ErrClosed
	}
	if err := f.pair(ctx); err != nil {
		return err
	}

	f.setState(StateConnecting)
	if err := f.bridge.Connect(ctx); err != nil {
		f.setState(StateDisconnected)
		return fmt.Errorf("%w: connect: %w", ErrSession, err)
	}
	f.bridge.OnConnectionChange(f.handleConnectionChange)
	f.setState(StateConnected)
	f.metrics.BridgeConnected(true)
	f.feedback.PublishStatus(mqtt.StatusConnected)

	f.logInventory()

	if err := f.exec.Call(ctx, f.wire); err != nil {
		return fmt.Errorf("%w: wire devices: %w", ErrSession, err)
	}

	if err := f.mqtt.Subscribe(f.topics.Commands(), f.qos, f.HandleMessage); err != nil {
		return fmt.Errorf("%w: subscribe commands: %w", ErrSession, err)
	}

	f.logger.Info("bridge facade started",
		"commands", f.topics.Commands(),
		"feedback", f.topics.FeedbackPrefix,
		"devices", len(f.bridge.Devices()),
		"buttons", len(f.bridge.Buttons()),
	)
	return nil
}

// handleConnectionChange tracks session drops and reconnects after Start.
func (f *Facade) handleConnectionChange(connected bool) {
	if f.State() == StateClosed {
		return
	}
	f.metrics.BridgeConnected(connected)
	if connected {
		f.setState(StateConnected)
		f.logger.Info("bridge session restored")
		f.feedback.PublishStatus(mqtt.StatusConnected)
		return
	}
	f.setState(StateDisconnected)
	f.logger.Warn("bridge session lost")
	f.feedback.PublishStatus(mqtt.StatusDisconnected)
}

// BrokerConnected republishes the retained status after an MQTT reconnect,
// replacing a last-will message the broker may have delivered.
func (f *Facade) BrokerConnected() {
	switch f.State() {
	case StateConnected:
		f.feedback.PublishStatus(mqtt.StatusConnected)
	case StateClosed:
	default:
		f.feedback.PublishStatus(mqtt.StatusDisconnected)
	}
}

// Close releases the MQTT session and then the bridge session. Both are
// always attempted. Queued commands are cancelled and the command worker is
// waited for first. Safe to call multiple times.
func (f *Facade) Close() error {
	f.closeOnce.Do(func() {
		f.inflightMu.Lock()
		f.closed = true
		close(f.queue)
		f.inflightMu.Unlock()

		f.cancel()
		f.inflight.Wait()
		<-f.workerDone

		f.feedback.PublishStatus(mqtt.StatusDisconnected)
		f.setState(StateClosed)

		var mqttErr, bridgeErr error
		func() {
			defer func() {
				if err := f.bridge.Close(); err != nil {
					bridgeErr = fmt.Errorf("closing bridge session: %w", err)
				}
			}()
			if err := f.mqtt.Close(); err != nil {
				mqttErr = fmt.Errorf("closing MQTT session: %w", err)
			}
		}()
		f.closeErr = errors.Join(mqttErr, bridgeErr)
		f.logger.Info("bridge facade closed")
	})
	return f.closeErr
}

// State returns the current lifecycle state.
func (f *Facade) State() State {
	return State(f.state.Load())
}

func (f *Facade) setState(s State) {
	for {
		cur := f.state.Load()
		if State(cur) == StateClosed {
			return
		}
		if f.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// logInventory logs every device and scene the bridge reported.
func (f *Facade) logInventory() {
	for _, d := range f.bridge.Devices() {
		f.logger.Info("bridge device",
			"id", d.ID,
			"name", d.Name,
			"type", d.Type,
			"domain", string(d.Domain),
		)
	}
	for _, s := range f.bridge.Scenes() {
		f.logger.Info("bridge scene", "id", s.ID, "name", s.Name)
	}
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
