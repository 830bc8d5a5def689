// Package command turns inbound MQTT topics and payloads into invocations of
// a statically declared command table.
//
// Topics have the form <command>/<root>/<target>:
//
//	set_value/lutron/kitchen_lights   payload 75
//	click/lutron/living_room_remote   payload "2"   (button ordinal or label)
//	status/lutron/caseta              (target is the service itself)
//
// A first segment of "cmd" (or the root name itself) selects the default
// command, set_value. The payload is decoded as JSON when possible; arrays
// supply several arguments, anything else a single one.
//
// Each Command declares its arity and whether it is served by the service
// layer or passed through to the bridge client. Resolution never consults
// reflection, so the command surface is exactly the table given to the
// Resolver.
package command
