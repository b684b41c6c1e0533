package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"plant-rover/internal/mqtt"
)

// MQTTPublisher publishes each report as JSON on a single topic.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// NewMQTTPublisher creates a publisher writing to topic.
func NewMQTTPublisher(client mqtt.Client, topic string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, qos: qos}
}

// Publish implements Publisher.
func (p *MQTTPublisher) Publish(ctx context.Context, r Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := mqtt.Wait(ctx, p.client.Publish(p.topic, p.qos, false, payload)); err != nil {
		return fmt.Errorf("failed to publish report to %s: %w", p.topic, err)
	}
	return nil
}
