package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement and tag names for device state history.
const (
	measurementDeviceState = "device_state"
	tagDevice              = "device"
	tagKind                = "kind"
	fieldLevel             = "level"
	fieldOn                = "on"
)

// RecordState writes one device state point. The write is non-blocking and
// silently dropped while disconnected.
//
// Parameters:
//   - name: Normalized device name, e.g. "kitchen_pendant"
//   - kind: Device kind, e.g. "dimmer"
//   - level: Output level 0-100
//   - on: Whether the device is on
func (c *Client) RecordState(name, kind string, level float64, on bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(statePoint(name, kind, level, on, time.Now()))
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func statePoint(name, kind string, level float64, on bool, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementDeviceState,
		map[string]string{
			tagDevice: name,
			tagKind:   kind,
		},
		map[string]any{
			fieldLevel: level,
			fieldOn:    on,
		},
		ts,
	)
}
