// Package device provides the device model and registry for the Caseta bridge.
//
// Every endpoint the lighting bridge reports is wrapped in one of a closed
// set of variants behind the Device interface:
//
//	┌──────────┬──────────────────────────────┬──────────────────────────────┐
//	│ Kind     │ State                        │ Feedback                     │
//	├──────────┼──────────────────────────────┼──────────────────────────────┤
//	│ Dimmer   │ level 0-100                  │ <name> = level               │
//	│ Switch   │ level 0/100                  │ <name> = ON|OFF              │
//	│ Fan      │ level + fan speed            │ <name> = ON|OFF              │
//	│ Shade    │ level + tilt                 │ <name> = ON|OFF              │
//	│ Generic  │ level                        │ <name> = level               │
//	│ Button   │ "Press" / "Release"          │ <name>/<ordinal> = ON|OFF    │
//	└──────────┴──────────────────────────────┴──────────────────────────────┘
//
// Buttons additionally run a ButtonTimer that derives double-click
// (<name>/<ordinal>/double) and long-press (<name>/<ordinal>/long) events.
//
// # Thread Safety
//
// Devices, buttons and the Registry are owned by the event loop (see package
// loop) and are not safe for concurrent use. The LayoutTable is process-wide
// reference data and is guarded by its own lock.
package device
