// Package caseta bridges MQTT and a Lutron Caseta Smart Bridge.
//
// The Facade owns the session lifecycle:
//
//	Unpaired ──credentials present──▶ Paired ──▶ Connecting ──▶ Connected
//	    ▲  │                                         │              │
//	    └──┘ pairing retried every second            ▼              ▼
//	                                             Disconnected     Closed
//
// Once connected it wraps every bridge device and button in a device.Device,
// subscribes each to the bridge's state callbacks and publishes its current
// value. Inbound MQTT commands are resolved by command.Resolver against a
// static table of service operations (set_value, click, press, release,
// refresh, status) and bridge pass-through operations (turn_on, set_fan,
// activate_scene, ...).
//
// # Threading
//
// Device state, resolution and feedback publishing run on the event loop
// (package loop). Bridge I/O for a resolved command runs on its own
// goroutine; its result is posted back to the loop for publishing.
//
// # MQTT Topics
//
//	+/lutron/#                       commands: <command>/lutron/<target>
//	lutron/feedback/<device>         device state
//	lutron/feedback/<remote>/<n>     button press state, .../double, .../long
//	lutron/feedback/status           Connected | Disconnected (retained, LWT)
//	lutron/feedback/<command>        command results
package caseta
