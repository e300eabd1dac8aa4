// Package stream moves generated records over MQTT and turns the resulting
// event stream into windowed aggregates and anomaly flags.
package stream

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/adkhan/fleet-analytics/internal/config"
	"github.com/adkhan/fleet-analytics/internal/models"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	// QoSAtLeastOnce is the delivery level for every fleet topic; the store
	// upserts, so duplicates are harmless.
	QoSAtLeastOnce = 1
)

// NewMQTTClient connects to the broker named by MQTT_BROKER (default
// tcp://localhost:1883), authenticating with MQTT_USERNAME and MQTT_PASSWORD
// when set. The client id gets a random suffix so parallel processes do not
// evict each other's sessions.
func NewMQTTClient(clientPrefix string) (mqtt.Client, error) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("%s-%s", clientPrefix, uuid.NewString()[:8])).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if user := os.Getenv("MQTT_USERNAME"); user != "" {
		opts.SetUsername(user)
		opts.SetPassword(os.Getenv("MQTT_PASSWORD"))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return client, nil
}

// Publisher publishes generated records to their topics at QoS 1.
type Publisher struct {
	client mqtt.Client
	topics config.Topics
}

// NewPublisher wraps a connected client.
func NewPublisher(client mqtt.Client, topics config.Topics) *Publisher {
	return &Publisher{client: client, topics: topics}
}

// PublishTelemetry sends one telemetry event.
func (p *Publisher) PublishTelemetry(ev models.TelemetryEvent) error {
	return p.publish(p.topics.Telemetry, ev)
}

// PublishIncident sends one incident record.
func (p *Publisher) PublishIncident(inc models.Incident) error {
	return p.publish(p.topics.Incidents, inc)
}

// PublishDelivery sends one delivery record.
func (p *Publisher) PublishDelivery(del models.Delivery) error {
	return p.publish(p.topics.Deliveries, del)
}

func (p *Publisher) publish(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal for %s: %w", topic, err)
	}
	token := p.client.Publish(topic, QoSAtLeastOnce, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes in-flight messages and disconnects.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
