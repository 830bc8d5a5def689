// Package leap is a minimal client for the Lutron LEAP protocol spoken by
// Caseta Smart Bridges.
//
// The bridge accepts mutually authenticated TLS on port 8081 and exchanges
// one JSON "communique" per line. Requests carry a ClientTag that the bridge
// echoes in its response; subscribed status updates arrive untagged.
//
// The client covers what the MQTT bridge needs:
//   - inventory: devices, Pico button groups and scenes
//   - zone level and button event subscriptions
//   - zone, fan, shade, button and scene commands
//   - automatic reconnection with exponential backoff
//
// Certificate provisioning (pairing) is not implemented; see Credentials.
package leap
