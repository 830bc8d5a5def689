package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// History limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500

	defaultHistoryRange = 24 * time.Hour
)

// StatePoint is one recorded device state.
type StatePoint struct {
	Time  time.Time `json:"time"`
	Level float64   `json:"level"`
	On    bool      `json:"on"`
}

// History returns the most recent states of a device, newest first.
//
// Parameters:
//   - ctx: Context for cancellation
//   - name: Normalized device name
//   - since: Oldest point to return; zero means the last 24 hours
//   - limit: Maximum points; clamped to 1..MaxHistoryLimit
//
// Returns:
//   - []StatePoint: Matching points, possibly empty
//   - error: ErrNotConnected, or ErrQueryFailed wrapping the server error
func (c *Client) History(ctx context.Context, name string, since time.Time, limit int) ([]StatePoint, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if since.IsZero() {
		since = time.Now().Add(-defaultHistoryRange)
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	result, err := c.client.QueryAPI(c.cfg.Org).Query(ctx, historyQuery(c.cfg.Bucket, name, since, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	points := make([]StatePoint, 0, limit)
	for result.Next() {
		rec := result.Record()
		p := StatePoint{Time: rec.Time()}
		if v, ok := rec.ValueByKey(fieldLevel).(float64); ok {
			p.Level = v
		}
		if v, ok := rec.ValueByKey(fieldOn).(bool); ok {
			p.On = v
		}
		points = append(points, p)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return points, nil
}

// historyQuery builds the Flux query for one device's state points.
func historyQuery(bucket, name string, since time.Time, limit int) string {
	return fmt.Sprintf(`from(bucket: %s)
  |> range(start: %s)
  |> filter(fn: (r) => r._measurement == %s and r.%s == %s)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> group()
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: %d)`,
		strconv.Quote(bucket),
		since.UTC().Format(time.RFC3339Nano),
		strconv.Quote(measurementDeviceState),
		tagDevice,
		strconv.Quote(name),
		limit,
	)
}
