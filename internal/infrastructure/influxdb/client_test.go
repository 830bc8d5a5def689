package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/osterwood/lutron-caseta/internal/bridges/caseta"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/config"
)

var _ caseta.StateRecorder = (*Client)(nil)

// fakeInflux answers ping and write requests and keeps written lines.
type fakeInflux struct {
	mu        sync.Mutex
	lines     []string
	writeCode int
	queries   []string
	queryCSV  string
}

const historyCSV = `#datatype,string,long,dateTime:RFC3339,string,string,double,boolean
#group,false,false,false,true,true,false,false
#default,_result,,,,,,
,result,table,_time,device,kind,level,on
,,0,2026-01-02T03:04:05Z,kitchen,dimmer,75,true
,,0,2026-01-02T03:00:00Z,kitchen,dimmer,0,false

`

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping", "/health":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/query":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.queries = append(f.queries, string(body))
		csv := f.queryCSV
		f.mu.Unlock()
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(csv))
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		code := f.writeCode
		if code == 0 {
			for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				f.lines = append(f.lines, line)
			}
			code = http.StatusNoContent
		}
		f.mu.Unlock()
		if code != http.StatusNoContent {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"code":"invalid","message":"rejected"}`))
			return
		}
		w.WriteHeader(code)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeInflux) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "home",
		Bucket:        "caseta",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func connectFake(t *testing.T) (*Client, *fakeInflux) {
	t.Helper()
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, fake
}

// ===== Connection =====

func TestConnect(t *testing.T) {
	c, _ := connectFake(t)

	if !c.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	if _, err := Connect(context.Background(), cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := Connect(ctx, testConfig(url)); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.BatchSize = 0
	cfg.FlushInterval = -1

	c, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()
}

// ===== Writes =====

func TestRecordState(t *testing.T) {
	c, fake := connectFake(t)

	c.RecordState("kitchen", "dimmer", 75, true)
	c.RecordState("porch", "switch", 0, false)
	c.Flush()

	lines := fake.Lines()
	if len(lines) != 2 {
		t.Fatalf("wrote %d lines, want 2: %v", len(lines), lines)
	}

	want := []string{
		"device_state,device=kitchen,kind=dimmer level=75,on=true ",
		"device_state,device=porch,kind=switch level=0,on=false ",
	}
	for i, prefix := range want {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
}

func TestWritePoint(t *testing.T) {
	c, fake := connectFake(t)

	c.WritePoint("bridge_events",
		map[string]string{"bridge": "caseta"},
		map[string]any{"reconnects": 3},
	)
	c.Flush()

	lines := fake.Lines()
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "bridge_events,bridge=caseta reconnects=3i ") {
		t.Errorf("lines = %v", lines)
	}
}

func TestWriteError_Callback(t *testing.T) {
	c, fake := connectFake(t)
	fake.mu.Lock()
	fake.writeCode = http.StatusBadRequest
	fake.mu.Unlock()

	errCh := make(chan error, 1)
	c.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	c.RecordState("kitchen", "dimmer", 10, true)
	c.Flush()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("write error callback not invoked")
	}
}

func TestStatePoint(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := statePoint("bedroom_shade", "shade", 40, true, ts)

	if p.Name() != "device_state" {
		t.Errorf("Name() = %q, want device_state", p.Name())
	}
	if !p.Time().Equal(ts) {
		t.Errorf("Time() = %v, want %v", p.Time(), ts)
	}

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["device"] != "bedroom_shade" || tags["kind"] != "shade" {
		t.Errorf("tags = %v", tags)
	}

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["level"] != 40.0 || fields["on"] != true {
		t.Errorf("fields = %v", fields)
	}
}

// ===== History =====

func TestHistory(t *testing.T) {
	c, fake := connectFake(t)
	fake.queryCSV = historyCSV

	points, err := c.History(context.Background(), "kitchen", time.Time{}, 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("History() = %d points, want 2", len(points))
	}

	want := []StatePoint{
		{Time: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Level: 75, On: true},
		{Time: time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC), Level: 0, On: false},
	}
	for i, p := range points {
		if !p.Time.Equal(want[i].Time) || p.Level != want[i].Level || p.On != want[i].On {
			t.Errorf("point %d = %+v, want %+v", i, p, want[i])
		}
	}

	fake.mu.Lock()
	query := fake.queries[0]
	fake.mu.Unlock()
	for _, frag := range []string{"device_state", "kitchen", "limit(n: 2)"} {
		if !strings.Contains(query, frag) {
			t.Errorf("query missing %q: %s", frag, query)
		}
	}
}

func TestHistory_NotConnected(t *testing.T) {
	c, _ := connectFake(t)
	c.Close()

	if _, err := c.History(context.Background(), "kitchen", time.Time{}, 0); !errors.Is(err, ErrNotConnected) {
		t.Errorf("History() error = %v, want ErrNotConnected", err)
	}
}

func TestHistoryQuery(t *testing.T) {
	since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := historyQuery("caseta", `odd"name`, since, 10)

	for _, frag := range []string{
		`from(bucket: "caseta")`,
		`range(start: 2026-03-01T12:00:00Z)`,
		`r._measurement == "device_state" and r.device == "odd\"name"`,
		`limit(n: 10)`,
	} {
		if !strings.Contains(q, frag) {
			t.Errorf("query missing %q:\n%s", frag, q)
		}
	}
}

// ===== Lifecycle =====

func TestClose(t *testing.T) {
	c, _ := connectFake(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}

	// Writes after close are dropped without panicking.
	c.RecordState("kitchen", "dimmer", 10, true)
	c.Flush()
}

func TestClose_Nil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}
