package leap

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Default timeouts and intervals for bridge communication.
const (
	// DefaultPort is the LEAP TLS port.
	DefaultPort = 8081

	// defaultConnectTimeout is the maximum time to dial and complete TLS.
	defaultConnectTimeout = 10 * time.Second

	// defaultRequestTimeout bounds the wait for a tagged response.
	defaultRequestTimeout = 5 * time.Second

	// defaultWriteTimeout is the deadline for writing one message.
	defaultWriteTimeout = 5 * time.Second

	// defaultReconnectInterval is the initial delay between reconnection attempts.
	defaultReconnectInterval = 5 * time.Second

	// maxReconnectInterval is the maximum delay between reconnection attempts.
	maxReconnectInterval = 2 * time.Minute

	// readBufferSize is the initial line buffer; LEAP inventories can be large.
	readBufferSize = 64 * 1024
)

// Config holds bridge connection configuration.
type Config struct {
	// Host is the bridge address.
	Host string

	// Port is the LEAP port. Default: 8081.
	Port int

	// Credentials locate the TLS key, certificate and bridge CA.
	Credentials Credentials

	// ConnectTimeout bounds dialling. Default: 10 seconds.
	ConnectTimeout time.Duration

	// RequestTimeout bounds each request. Default: 5 seconds.
	RequestTimeout time.Duration

	// ReconnectInterval is the initial delay between reconnection attempts.
	// Default: 5 seconds.
	ReconnectInterval time.Duration

	// Dial replaces the TLS dialer when set.
	Dial func(ctx context.Context) (net.Conn, error)
}

// Stats holds operational statistics.
type Stats struct {
	RequestsTx      uint64
	MessagesRx      uint64
	ErrorsTotal     uint64
	ReconnectsTotal uint64
	LastActivity    time.Time
	Connected       bool
	Reconnecting    bool
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Client is a LEAP session with one bridge.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Subscriber callbacks run on the receive goroutine and must not block.
//
// Auto-Reconnection:
//   - After a successful Connect, a lost session is re-established with
//     exponential backoff from ReconnectInterval up to 2 minutes.
//   - Inventory and subscriptions are reloaded on every reconnection.
//   - Reconnection stops only when Close() is called.
type Client struct {
	cfg Config

	connMu    sync.RWMutex
	conn      net.Conn
	connected bool
	writeMu   sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan Message

	invMu   sync.RWMutex
	devices map[string]*Device
	zones   map[string]string
	buttons map[string]*Button
	scenes  map[string]Scene

	subMu        sync.RWMutex
	deviceSubs   map[string]func(Device)
	buttonSubs   map[string]func(ButtonEvent)
	onConnection func(connected bool)

	reconnecting atomic.Bool
	done         *closeOnce
	wg           sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex

	requestsTx      atomic.Uint64
	messagesRx      atomic.Uint64
	errorsTotal     atomic.Uint64
	reconnectsTotal atomic.Uint64
	lastActivity    atomic.Int64
}

// NewClient creates an unconnected client.
func NewClient(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	return &Client{
		cfg:        cfg,
		pending:    make(map[string]chan Message),
		devices:    make(map[string]*Device),
		zones:      make(map[string]string),
		buttons:    make(map[string]*Button),
		scenes:     make(map[string]Scene),
		deviceSubs: make(map[string]func(Device)),
		buttonSubs: make(map[string]func(ButtonEvent)),
		done:       newCloseOnce(),
	}
}

// Connect opens the session, loads the inventory and subscribes to zone
// and button status.
//
// Parameters:
//   - ctx: Context for cancellation of the dial and login requests
//
// Returns:
//   - error: If dialling, the TLS handshake or the login fails
func (c *Client) Connect(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.attach(conn)

	if err := c.login(ctx); err != nil {
		c.detach(conn)
		return fmt.Errorf("%w: login: %w", ErrConnectionFailed, err)
	}

	c.logInfo("connected to bridge", "host", c.cfg.Host, "devices", len(c.Devices()), "buttons", len(c.Buttons()))
	c.notifyConnection(true)
	return nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	if c.cfg.Dial != nil {
		conn, err := c.cfg.Dial(dialCtx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
		}
		return conn, nil
	}

	tlsConfig, err := c.cfg.Credentials.TLSConfig()
	if err != nil {
		return nil, err
	}
	address := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: tlsConfig}
	conn, err := dialer.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, address, err)
	}
	return conn, nil
}

// attach installs conn as the live connection and starts its reader.
func (c *Client) attach(conn net.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connected = true
	c.connMu.Unlock()
	c.lastActivity.Store(time.Now().Unix())

	c.wg.Add(1)
	go c.receiveLoop(conn)
}

// detach closes conn if it is still the live connection.
func (c *Client) detach(conn net.Conn) bool {
	c.connMu.Lock()
	current := c.conn == conn
	if current {
		c.connected = false
		c.conn = nil
	}
	c.connMu.Unlock()

	_ = conn.Close()
	c.failPending()
	return current
}

// login loads the inventory and installs subscriptions.
func (c *Client) login(ctx context.Context) error {
	if err := c.loadDevices(ctx); err != nil {
		return fmt.Errorf("load devices: %w", err)
	}
	if err := c.loadButtons(ctx); err != nil {
		return fmt.Errorf("load buttons: %w", err)
	}
	if err := c.loadScenes(ctx); err != nil {
		return fmt.Errorf("load scenes: %w", err)
	}

	resp, err := c.request(ctx, SubscribeRequest, "/zone/status", nil)
	if err != nil {
		return fmt.Errorf("subscribe zone status: %w", err)
	}
	var statuses multipleZoneStatus
	if err := resp.Decode(&statuses); err == nil {
		for _, zs := range statuses.ZoneStatuses {
			c.applyZoneStatus(zs, false)
		}
	}

	for _, b := range c.Buttons() {
		if _, err := c.request(ctx, SubscribeRequest, "/button/"+b.ID+"/status/event", nil); err != nil {
			return fmt.Errorf("subscribe button %s: %w", b.ID, err)
		}
	}
	return nil
}

func (c *Client) loadDevices(ctx context.Context) error {
	resp, err := c.request(ctx, ReadRequest, "/device", nil)
	if err != nil {
		return err
	}
	var body multipleDeviceDefinition
	if err := resp.Decode(&body); err != nil {
		return fmt.Errorf("decode devices: %w", err)
	}

	devices := make(map[string]*Device, len(body.Devices))
	zones := make(map[string]string)
	for _, def := range body.Devices {
		name := def.Name
		if len(def.FullyQualifiedName) > 0 {
			name = strings.Join(def.FullyQualifiedName, "_")
		}
		d := &Device{
			ID:     hrefID(def.Href),
			Name:   name,
			Type:   def.DeviceType,
			Domain: DomainOf(def.DeviceType),
			Model:  def.ModelNumber,
			Serial: def.SerialNumber.String(),
		}
		if len(def.LocalZones) > 0 {
			d.Zone = def.LocalZones[0].ID()
			zones[d.Zone] = d.ID
		}

		c.invMu.RLock()
		if prev, ok := c.devices[d.ID]; ok {
			d.Level, d.FanSpeed, d.Tilt = prev.Level, prev.FanSpeed, prev.Tilt
		}
		c.invMu.RUnlock()
		devices[d.ID] = d
	}

	c.invMu.Lock()
	c.devices = devices
	c.zones = zones
	c.invMu.Unlock()
	return nil
}

func (c *Client) loadButtons(ctx context.Context) error {
	resp, err := c.request(ctx, ReadRequest, "/buttongroup/expanded", nil)
	if err != nil {
		return err
	}
	var body multipleButtonGroupExpanded
	if err := resp.Decode(&body); err != nil {
		return fmt.Errorf("decode button groups: %w", err)
	}

	c.invMu.Lock()
	defer c.invMu.Unlock()

	buttons := make(map[string]*Button)
	for _, group := range body.ButtonGroupsExpanded {
		parent := c.devices[group.Parent.ID()]
		for _, def := range group.Buttons {
			b := &Button{
				ID:     hrefID(def.Href),
				Name:   def.Name,
				Number: def.ButtonNumber,
				Group:  hrefID(group.Href),
				Parent: group.Parent.ID(),
				State:  Release,
			}
			if parent != nil {
				b.Name = parent.Name
				b.Type = parent.Type
			}
			if prev, ok := c.buttons[b.ID]; ok {
				b.State = prev.State
			}
			buttons[b.ID] = b
		}
	}
	c.buttons = buttons
	return nil
}

func (c *Client) loadScenes(ctx context.Context) error {
	resp, err := c.request(ctx, ReadRequest, "/virtualbutton", nil)
	if err != nil {
		return err
	}
	var body multipleVirtualButton
	if err := resp.Decode(&body); err != nil {
		return fmt.Errorf("decode scenes: %w", err)
	}

	scenes := make(map[string]Scene)
	for _, vb := range body.VirtualButtons {
		if !vb.IsProgrammed {
			continue
		}
		s := Scene{ID: hrefID(vb.Href), Name: vb.Name}
		scenes[s.ID] = s
	}

	c.invMu.Lock()
	c.scenes = scenes
	c.invMu.Unlock()
	return nil
}

// receiveLoop reads newline-delimited messages until conn fails.
func (c *Client) receiveLoop(conn net.Conn) {
	defer c.wg.Done()

	reader := bufio.NewReaderSize(conn, readBufferSize)
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			c.handleLine(line)
		}
		if err != nil {
			c.handleReadError(conn, err)
			return
		}
	}
}

func (c *Client) handleLine(line []byte) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		c.errorsTotal.Add(1)
		c.logError("decode message", err)
		return
	}
	c.messagesRx.Add(1)
	c.lastActivity.Store(time.Now().Unix())
	c.dispatch(msg)
}

// handleReadError tears down the connection and starts reconnection.
func (c *Client) handleReadError(conn net.Conn, err error) {
	if c.isClosed() {
		return
	}
	if !c.detach(conn) {
		return
	}

	c.errorsTotal.Add(1)
	c.logError("read failed, connection lost", err)
	c.notifyConnection(false)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.reconnect()
	}()
}

// dispatch routes a response to its waiting request or an update to its
// subscriber.
func (c *Client) dispatch(msg Message) {
	if tag := msg.Header.ClientTag; tag != "" {
		c.pendingMu.Lock()
		ch, ok := c.pending[tag]
		if ok {
			delete(c.pending, tag)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- msg
			return
		}
	}

	switch msg.Header.MessageBodyType {
	case bodyOneZoneStatus:
		var body oneZoneStatus
		if err := msg.Decode(&body); err != nil {
			c.logError("decode zone status", err)
			return
		}
		c.applyZoneStatus(body.ZoneStatus, true)
	case bodyMultipleZoneStatus:
		var body multipleZoneStatus
		if err := msg.Decode(&body); err != nil {
			c.logError("decode zone statuses", err)
			return
		}
		for _, zs := range body.ZoneStatuses {
			c.applyZoneStatus(zs, true)
		}
	case bodyOneButtonStatusEvent:
		var body oneButtonStatusEvent
		if err := msg.Decode(&body); err != nil {
			c.logError("decode button event", err)
			return
		}
		c.applyButtonEvent(body.ButtonStatus)
	default:
		c.logDebug("unhandled message", "type", msg.CommuniqueType, "url", msg.Header.URL, "body", msg.Header.MessageBodyType)
	}
}

func (c *Client) applyZoneStatus(zs zoneStatus, notify bool) {
	zone := zs.Zone.ID()
	if zone == "" {
		zone = zoneFromStatusHref(zs.Href)
	}

	c.invMu.Lock()
	id, ok := c.zones[zone]
	d := c.devices[id]
	if !ok || d == nil {
		c.invMu.Unlock()
		return
	}
	switch {
	case zs.Level != nil:
		d.Level = *zs.Level
	case zs.SwitchedLevel == "On":
		d.Level = 100
	case zs.SwitchedLevel == "Off":
		d.Level = 0
	}
	if zs.FanSpeed != "" {
		d.FanSpeed = zs.FanSpeed
	}
	if zs.Tilt != nil {
		tilt := *zs.Tilt
		d.Tilt = &tilt
	}
	snapshot := *d
	c.invMu.Unlock()

	if notify {
		c.notifyDevice(snapshot)
	}
}

func (c *Client) applyButtonEvent(bs buttonStatus) {
	id := bs.Button.ID()
	event := ButtonEvent{ButtonID: id, Type: bs.ButtonEvent.EventType}

	c.invMu.Lock()
	if b, ok := c.buttons[id]; ok {
		b.State = event.Type
	}
	c.invMu.Unlock()

	c.subMu.RLock()
	fn := c.buttonSubs[id]
	c.subMu.RUnlock()
	if fn != nil {
		c.safeCall(func() { fn(event) })
	}
}

func (c *Client) notifyDevice(d Device) {
	c.subMu.RLock()
	fn := c.deviceSubs[d.ID]
	c.subMu.RUnlock()
	if fn != nil {
		c.safeCall(func() { fn(d) })
	}
}

func (c *Client) notifyConnection(connected bool) {
	c.subMu.RLock()
	fn := c.onConnection
	c.subMu.RUnlock()
	if fn != nil {
		c.safeCall(func() { fn(connected) })
	}
}

func (c *Client) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logError("subscriber callback panic", fmt.Errorf("%v", r))
		}
	}()
	fn()
}

// request sends one tagged communique and waits for its response.
func (c *Client) request(ctx context.Context, communique, url string, body any) (Message, error) {
	c.connMu.RLock()
	conn, connected := c.conn, c.connected
	c.connMu.RUnlock()
	if !connected || conn == nil {
		return Message{}, ErrNotConnected
	}

	msg := Message{
		CommuniqueType: communique,
		Header:         Header{ClientTag: uuid.NewString(), URL: url},
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Message{}, fmt.Errorf("encode %s body: %w", url, err)
		}
		msg.Body = raw
	}
	line, err := json.Marshal(msg)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", url, err)
	}
	line = append(line, '\r', '\n')

	ch := make(chan Message, 1)
	c.pendingMu.Lock()
	c.pending[msg.Header.ClientTag] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, msg.Header.ClientTag)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	_, err = conn.Write(line)
	c.writeMu.Unlock()
	if err != nil {
		c.errorsTotal.Add(1)
		return Message{}, fmt.Errorf("write %s: %w", url, err)
	}
	c.requestsTx.Add(1)

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return Message{}, ErrNotConnected
		}
		if !resp.OK() {
			return resp, fmt.Errorf("%w: %s %s: %s", ErrRequestFailed, communique, url, resp.Header.StatusCode)
		}
		return resp, nil
	case <-timer.C:
		return Message{}, fmt.Errorf("%w: %s %s", ErrTimeout, communique, url)
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-c.done.Done():
		return Message{}, ErrClosed
	}
}

// failPending unblocks every in-flight request.
func (c *Client) failPending() {
	c.pendingMu.Lock()
	for tag, ch := range c.pending {
		close(ch)
		delete(c.pending, tag)
	}
	c.pendingMu.Unlock()
}

// reconnect re-establishes the session with exponential backoff.
func (c *Client) reconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	backoff := c.cfg.ReconnectInterval
	for attempt := 1; ; attempt++ {
		select {
		case <-c.done.Done():
			return
		case <-time.After(backoff):
		}

		c.logInfo("attempting reconnection", "attempt", attempt, "backoff", backoff.String())
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout+c.cfg.RequestTimeout*4)
		err := c.reestablish(ctx)
		cancel()
		if err == nil {
			c.reconnectsTotal.Add(1)
			c.logInfo("reconnection successful", "total_reconnects", c.reconnectsTotal.Load())
			c.notifyConnection(true)
			c.notifyAllDevices()
			return
		}

		c.errorsTotal.Add(1)
		c.logError("reconnect failed", err)
		backoff = time.Duration(float64(backoff) * 1.5)
		if backoff > maxReconnectInterval {
			backoff = maxReconnectInterval
		}
	}
}

func (c *Client) reestablish(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	if c.isClosed() {
		_ = conn.Close()
		return ErrClosed
	}
	c.attach(conn)
	if err := c.login(ctx); err != nil {
		c.detach(conn)
		return err
	}
	return nil
}

// Refresh reloads the inventory and zone state, then notifies every device
// subscriber with the current state.
func (c *Client) Refresh(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.login(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	c.notifyAllDevices()
	return nil
}

func (c *Client) notifyAllDevices() {
	for _, d := range c.Devices() {
		c.notifyDevice(d)
	}
}

// SubscribeDevice registers fn for state changes of device id, replacing
// any previous subscriber.
func (c *Client) SubscribeDevice(id string, fn func(Device)) {
	c.subMu.Lock()
	c.deviceSubs[id] = fn
	c.subMu.Unlock()
}

// SubscribeButton registers fn for press and release events of button id.
func (c *Client) SubscribeButton(id string, fn func(ButtonEvent)) {
	c.subMu.Lock()
	c.buttonSubs[id] = fn
	c.subMu.Unlock()
}

// OnConnectionChange registers fn for session up/down transitions.
func (c *Client) OnConnectionChange(fn func(connected bool)) {
	c.subMu.Lock()
	c.onConnection = fn
	c.subMu.Unlock()
}

// IsConnected reports whether the session is up.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// isClosed returns true if the client has been closed.
func (c *Client) isClosed() bool {
	select {
	case <-c.done.Done():
		return true
	default:
		return false
	}
}

// Close ends the session and stops reconnection. Safe to call multiple times.
func (c *Client) Close() error {
	c.done.Close()

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.connMu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.failPending()
	c.wg.Wait()
	return nil
}

// SetLogger sets the logger.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// Stats returns a snapshot of operational statistics.
func (c *Client) Stats() Stats {
	return Stats{
		RequestsTx:      c.requestsTx.Load(),
		MessagesRx:      c.messagesRx.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
		ReconnectsTotal: c.reconnectsTotal.Load(),
		LastActivity:    time.Unix(c.lastActivity.Load(), 0),
		Connected:       c.IsConnected(),
		Reconnecting:    c.reconnecting.Load(),
	}
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logInfo(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (c *Client) logError(msg string, err error) {
	if logger := c.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

// zoneFromStatusHref extracts "12" from "/zone/12/status".
func zoneFromStatusHref(href string) string {
	parts := strings.Split(strings.Trim(href, "/"), "/")
	if len(parts) >= 2 && parts[0] == "zone" {
		return parts[1]
	}
	return ""
}
