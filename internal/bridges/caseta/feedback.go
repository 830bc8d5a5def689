package caseta

import (
	"encoding/json"
	"errors"

	"github.com/osterwood/lutron-caseta/internal/infrastructure/mqtt"
)

// FeedbackPublisher publishes device state under the feedback prefix.
// It implements device.Publisher.
type FeedbackPublisher struct {
	client  MQTTClient
	topics  mqtt.Topics
	qos     byte
	retain  bool
	json    bool
	logger  Logger
	metrics Metrics
}

// NewFeedbackPublisher creates a publisher for topics under topics.FeedbackPrefix.
// With jsonOut set, state is published on the prefix itself as {"<name>": value}
// instead of one topic per name.
func NewFeedbackPublisher(client MQTTClient, topics mqtt.Topics, qos byte, retain, jsonOut bool) *FeedbackPublisher {
	return &FeedbackPublisher{
		client:  client,
		topics:  topics,
		qos:     qos,
		retain:  retain,
		json:    jsonOut,
		logger:  noopLogger{},
		metrics: noopMetrics{},
	}
}

// Publish sends payload to <feedback>/<name>. Failures are logged and
// counted; a disconnected broker is not an error worth more than a debug line.
func (p *FeedbackPublisher) Publish(name, payload string) {
	if p.json {
		p.publish(p.topics.FeedbackPrefix, jsonFeedback(name, payload), p.retain)
		return
	}
	p.publish(p.topics.Feedback(name), payload, p.retain)
}

// PublishStatus publishes the retained bridge status.
func (p *FeedbackPublisher) PublishStatus(status string) {
	p.publish(p.topics.Status(), status, true)
}

func (p *FeedbackPublisher) publish(topic, payload string, retain bool) {
	err := p.client.Publish(topic, []byte(payload), p.qos, retain)
	if err == nil {
		p.metrics.FeedbackPublished()
		return
	}
	p.metrics.FeedbackDropped()
	if errors.Is(err, mqtt.ErrNotConnected) {
		p.logger.Debug("feedback dropped, broker disconnected", "topic", topic)
		return
	}
	p.logger.Warn("feedback publish failed", "topic", topic, "error", err)
}

// jsonFeedback wraps payload as {"<name>": value}. Payloads that are valid
// JSON are embedded as-is, anything else as a string.
func jsonFeedback(name, payload string) string {
	var value any = payload
	if json.Valid([]byte(payload)) {
		value = json.RawMessage(payload)
	}
	data, err := json.Marshal(map[string]any{name: value})
	if err != nil {
		return payload
	}
	return string(data)
}
