//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/osterwood/lutron-caseta/internal/infrastructure/config"
)

// Integration tests against a live broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		Topics: config.MQTTTopicsConfig{Root: "lutron-it"},
	}
}

func connectOrFail(t *testing.T, clientID string) *Client {
	t.Helper()
	client, err := Connect(integrationConfig(clientID))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_ConnectAndClose(t *testing.T) {
	client, err := Connect(integrationConfig("caseta-int-connect"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client := connectOrFail(t, "caseta-int-sub-track")
	topics := client.Topics()

	patterns := []string{
		topics.Commands(),
		topics.Feedback("#"),
	}
	handler := func(topic string, payload []byte) error { return nil }

	for _, p := range patterns {
		if err := client.Subscribe(p, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", p, err)
		}
	}
	if client.SubscriptionCount() != len(patterns) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(patterns))
	}

	if err := client.Unsubscribe(patterns[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(patterns[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", patterns[0])
	}
}

func TestIntegration_CommandRoundtrip(t *testing.T) {
	pub := connectOrFail(t, "caseta-int-pub")
	sub := connectOrFail(t, "caseta-int-sub")
	topics := sub.Topics()

	type message struct{ topic, payload string }
	received := make(chan message, 4)
	var once sync.Once

	err := sub.Subscribe(topics.Commands(), 1, func(topic string, p []byte) error {
		once.Do(func() { received <- message{topic, string(p)} })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	want := message{topics.Command("set_value", "kitchen"), "75"}
	if err := pub.PublishString(want.topic, want.payload, 1, false); err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case got := <-received:
		if got != want {
			t.Errorf("received %+v, want %+v", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for command")
	}
}
