// Package mqtt is the broker side of the Caseta bridge.
//
// A single Client carries the command subscription and all feedback. paho
// handles reconnects; the client re-registers its subscriptions afterwards
// and registers a retained "Disconnected" last will on the status topic so
// subscribers see the bridge drop even when the process dies.
//
// # Topics
//
//	+/lutron/#                 inbound commands, <command>/lutron/<target>
//	lutron/feedback/<name>     device state, button events, command results
//	lutron/feedback/status     Connected | Disconnected, retained
//
// The root ("lutron") and the command and feedback segments come from the
// mqtt.topics configuration; see Topics.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().Commands(), 1, facade.HandleMessage)
//	client.PublishString(client.Topics().Status(), mqtt.StatusConnected, 1, true)
package mqtt
