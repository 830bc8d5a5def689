package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/osterwood/lutron-caseta/internal/bridges/caseta"
	"github.com/osterwood/lutron-caseta/internal/command"
	"github.com/osterwood/lutron-caseta/internal/device"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/config"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/logging"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/metrics"
)

var _ Bridge = (*caseta.Facade)(nil)

// ===== Mock bridge =====

type submission struct {
	command, target, payload string
}

type mockBridge struct {
	mu          sync.Mutex
	health      caseta.Health
	snapshots   []device.Snapshot
	snapshotErr error
	submitErr   error
	submitted   []submission
}

func newMockBridge() *mockBridge {
	ordinal0, ordinal1 := 0, 1
	return &mockBridge{
		health: caseta.Health{
			State:           "connected",
			BridgeConnected: true,
			MQTTConnected:   true,
			Devices:         2,
			Buttons:         2,
		},
		snapshots: []device.Snapshot{
			{ID: "5", Name: "kitchen", Kind: device.KindDimmer, State: 50, On: true, Display: "ON"},
			{ID: "6", Name: "porch", Kind: device.KindSwitch, State: 0, On: false, Display: "OFF"},
			{ID: "100", Name: "hall_pico", Kind: device.KindButton, State: "Release", Display: "OFF", Ordinal: &ordinal0, Label: "On"},
			{ID: "101", Name: "hall_pico", Kind: device.KindButton, State: "Release", Display: "OFF", Ordinal: &ordinal1, Label: "Fav"},
		},
	}
}

func (m *mockBridge) Health(context.Context) caseta.Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

func (m *mockBridge) Snapshots(context.Context) ([]device.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshotErr != nil {
		return nil, m.snapshotErr
	}
	return append([]device.Snapshot(nil), m.snapshots...), nil
}

func (m *mockBridge) Snapshot(_ context.Context, name string) ([]device.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshotErr != nil {
		return nil, false, m.snapshotErr
	}
	key := device.NormalizeName(name)
	var out []device.Snapshot
	for _, s := range m.snapshots {
		if s.Name == key {
			out = append(out, s)
		}
	}
	return out, len(out) > 0, nil
}

func (m *mockBridge) Commands() []string {
	return []string{"click", "set_value", "status"}
}

func (m *mockBridge) Submit(name, target string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return m.submitErr
	}
	known := false
	for _, c := range []string{"click", "set_value", "status"} {
		known = known || c == name
	}
	if !known {
		return command.ErrUnknownCommand
	}
	m.submitted = append(m.submitted, submission{name, target, string(payload)})
	return nil
}

func (m *mockBridge) Submitted() []submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]submission(nil), m.submitted...)
}

// ===== Helpers =====

func testServer(t *testing.T) (*Server, *mockBridge, *metrics.Collector) {
	t.Helper()

	bridge := newMockBridge()
	collector := metrics.New("")
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		Logger:  log,
		Bridge:  bridge,
		Metrics: collector,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, bridge, collector
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return body
}

// ===== Construction =====

func TestNew_RequiresDependencies(t *testing.T) {
	log := logging.Default()

	if _, err := New(Deps{Bridge: newMockBridge()}); err == nil {
		t.Error("New() without logger expected error")
	}
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without bridge expected error")
	}
}

func TestHealthCheck_NotStarted(t *testing.T) {
	srv, _, _ := testServer(t)
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start expected error")
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start error = %v", err)
	}
}

// ===== Health =====

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		bridgeUp   bool
		mqttUp     bool
		wantStatus int
		wantLabel  string
	}{
		{"healthy", true, true, http.StatusOK, "ok"},
		{"bridge down", false, true, http.StatusServiceUnavailable, "degraded"},
		{"broker down", true, false, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, bridge, _ := testServer(t)
			bridge.health.BridgeConnected = tt.bridgeUp
			bridge.health.MQTTConnected = tt.mqttUp

			rec := do(t, srv, http.MethodGet, "/health", "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decode(t, rec)
			if body["status"] != tt.wantLabel {
				t.Errorf("status label = %v, want %s", body["status"], tt.wantLabel)
			}
			if body["version"] != "test" {
				t.Errorf("version = %v, want test", body["version"])
			}
		})
	}
}

// ===== Devices =====

func TestHandleListDevices(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  float64
	}{
		{"all", "", http.StatusOK, 4},
		{"dimmers", "?kind=dimmer", http.StatusOK, 1},
		{"buttons", "?kind=BUTTON", http.StatusOK, 2},
		{"fans", "?kind=fan", http.StatusOK, 0},
		{"bad kind", "?kind=toaster", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := testServer(t)
			rec := do(t, srv, http.MethodGet, "/api/v1/devices"+tt.query, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			body := decode(t, rec)
			if body["count"] != tt.wantCount {
				t.Errorf("count = %v, want %v", body["count"], tt.wantCount)
			}
			if _, ok := body["devices"].([]any); !ok {
				t.Errorf("devices = %T, want array", body["devices"])
			}
		})
	}
}

func TestHandleListDevices_BridgeUnavailable(t *testing.T) {
	srv, bridge, _ := testServer(t)
	bridge.snapshotErr = context.Canceled

	rec := do(t, srv, http.MethodGet, "/api/v1/devices", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleGetDevice(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantLen    int
	}{
		{"device", "/api/v1/devices/kitchen", http.StatusOK, 1},
		{"remote", "/api/v1/devices/hall_pico", http.StatusOK, 2},
		{"label with spaces", "/api/v1/devices/Hall%20Pico", http.StatusOK, 2},
		{"missing", "/api/v1/devices/garage", http.StatusNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := testServer(t)
			rec := do(t, srv, http.MethodGet, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			devices, _ := decode(t, rec)["devices"].([]any)
			if len(devices) != tt.wantLen {
				t.Errorf("devices = %d, want %d", len(devices), tt.wantLen)
			}
		})
	}
}

// ===== Commands =====

func TestHandleCommand(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		want       *submission
	}{
		{"device command", "/api/v1/devices/kitchen/set_value", "75", http.StatusAccepted,
			&submission{"set_value", "kitchen", "75"}},
		{"button command", "/api/v1/devices/hall_pico/click", `"Fav"`, http.StatusAccepted,
			&submission{"click", "hall_pico", `"Fav"`}},
		{"service command", "/api/v1/commands/status", "", http.StatusAccepted,
			&submission{"status", "", ""}},
		{"unknown command", "/api/v1/devices/kitchen/explode", "", http.StatusNotFound, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, bridge, _ := testServer(t)
			rec := do(t, srv, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			got := bridge.Submitted()
			if tt.want == nil {
				if len(got) != 0 {
					t.Errorf("submitted = %v, want none", got)
				}
				return
			}
			if len(got) != 1 || got[0] != *tt.want {
				t.Errorf("submitted = %v, want [%v]", got, *tt.want)
			}
		})
	}
}

func TestHandleCommand_Closed(t *testing.T) {
	srv, bridge, _ := testServer(t)
	bridge.submitErr = caseta.ErrClosed

	rec := do(t, srv, http.MethodPost, "/api/v1/commands/status", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleCommand_Failure(t *testing.T) {
	srv, bridge, _ := testServer(t)
	bridge.submitErr = errors.New("loop stopped")

	rec := do(t, srv, http.MethodPost, "/api/v1/commands/status", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleCommand_PayloadTooLarge(t *testing.T) {
	srv, bridge, _ := testServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/devices/kitchen/set_value", strings.Repeat("1", maxRequestBodySize+1))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	if len(bridge.Submitted()) != 0 {
		t.Error("oversized payload was submitted")
	}
}

func TestHandleListCommands(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/commands", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if decode(t, rec)["count"] != 3.0 {
		t.Errorf("body = %s", rec.Body.String())
	}
}

// ===== System and metrics =====

func TestHandleSystem(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/system", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var sys SystemMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &sys); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if sys.Version != "test" || sys.Runtime.Goroutines == 0 || !sys.Bridge.BridgeConnected {
		t.Errorf("system = %+v", sys)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, collector := testServer(t)

	do(t, srv, http.MethodGet, "/api/v1/devices/kitchen", "")
	do(t, srv, http.MethodGet, "/api/v1/devices/porch", "")
	collector.UnknownCommand()

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`caseta_http_requests_total{method="GET",route="/api/v1/devices/{name}",status="200"} 2`,
		`caseta_unknown_commands_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

// ===== Middleware =====

func TestRequestID(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := do(t, srv, http.MethodGet, "/health", "")
	if id := rec.Header().Get("X-Request-ID"); len(id) != 36 {
		t.Errorf("generated X-Request-ID = %q, want a UUID", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied" {
		t.Errorf("X-Request-ID = %q, want client-supplied", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _, _ := testServer(t)
	handler := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://panel.local"}}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/devices", nil)
	req.Header.Set("Origin", "http://panel.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestCORS_DisabledWithoutOrigins(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	req.Header.Set("Origin", "http://panel.local")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want none", got)
	}
}
