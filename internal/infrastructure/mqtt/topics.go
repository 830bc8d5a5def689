package mqtt

import (
	"strings"

	"github.com/osterwood/lutron-caseta/internal/infrastructure/config"
)

// Default topic layout.
const (
	DefaultRoot = "lutron"

	// StatusConnected and StatusDisconnected are the payloads of the status topic.
	StatusConnected    = "Connected"
	StatusDisconnected = "Disconnected"
)

// Topics builds the bridge's MQTT topics.
//
// Commands arrive on <command>/<root>/<target>; everything the bridge
// publishes lives under the feedback prefix:
//
//	topics := mqtt.NewTopics("lutron", "", "")
//	topics.Commands()          // "+/lutron/#"
//	topics.Feedback("kitchen") // "lutron/feedback/kitchen"
//	topics.Status()            // "lutron/feedback/status"
type Topics struct {
	Root           string
	CommandPattern string
	FeedbackPrefix string
}

// NewTopics returns a topic layout. Empty arguments take their defaults:
// root "lutron", pattern "+/<root>/#", feedback "<root>/feedback".
func NewTopics(root, commandPattern, feedbackPrefix string) Topics {
	if root == "" {
		root = DefaultRoot
	}
	if commandPattern == "" {
		commandPattern = "+/" + root + "/#"
	}
	if feedbackPrefix == "" {
		feedbackPrefix = root + "/feedback"
	}
	return Topics{
		Root:           root,
		CommandPattern: commandPattern,
		FeedbackPrefix: strings.TrimSuffix(feedbackPrefix, "/"),
	}
}

// TopicsFromConfig returns the topic layout configured in cfg.
func TopicsFromConfig(cfg config.MQTTTopicsConfig) Topics {
	return NewTopics(cfg.Root, cfg.Command, cfg.Feedback)
}

// Commands returns the subscription pattern for inbound commands.
func (t Topics) Commands() string {
	return t.CommandPattern
}

// Command returns the topic that invokes command, optionally on target.
//
// Example: set_value/lutron/kitchen
func (t Topics) Command(command, target string) string {
	if target == "" {
		return command + "/" + t.Root
	}
	return command + "/" + t.Root + "/" + target
}

// Feedback returns the topic for a device, button or command result.
//
// Example: lutron/feedback/kitchen_pico/2
func (t Topics) Feedback(name string) string {
	return t.FeedbackPrefix + "/" + strings.TrimPrefix(name, "/")
}

// Status returns the bridge connection status topic. It doubles as the
// last-will topic.
func (t Topics) Status() string {
	return t.Feedback("status")
}
