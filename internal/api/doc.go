// Package api implements the HTTP API for the Caseta bridge.
//
// This package provides:
//   - Health and Prometheus endpoints for monitoring
//   - Read-only device and button state from the bridge facade
//   - Command submission that follows the same path as MQTT commands
//   - Middleware stack (CORS, request ID, logging, recovery, metrics, body limit)
//
// # Architecture
//
// The server never touches the device registry directly. Every read goes
// through the facade, which serialises it onto the bridge event loop, and
// every command is queued exactly as if it had arrived on
// <command>/<root>/<target>.
//
// # Endpoints
//
//	GET  /health                                  200 healthy, 503 otherwise
//	GET  /metrics                                 Prometheus exposition
//	GET  /api/v1/system                           runtime statistics
//	GET  /api/v1/commands                         accepted command names
//	POST /api/v1/commands/{command}               command without a target
//	GET  /api/v1/devices                          every device and button
//	GET  /api/v1/devices/{name}                   one device or remote
//	GET  /api/v1/devices/{name}/history           recorded states (InfluxDB)
//	POST /api/v1/devices/{name}/{command}         command on a target
//
// Command bodies are passed through as the MQTT payload.
package api
