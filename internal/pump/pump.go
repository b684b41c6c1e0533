// Package pump delivers water.
package pump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"plant-rover/internal/mqtt"
)

// ErrInvalidAmount is returned for negative or non-finite amounts.
var ErrInvalidAmount = errors.New("invalid water amount")

func checkAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	return nil
}

// Command is the MQTT pump payload.
type Command struct {
	Plant  int     `json:"plant"`
	Amount float64 `json:"amount"`
}

// MQTTPump asks a networked pump controller to deliver water.
type MQTTPump struct {
	client mqtt.Client
	topic  string
	qos    byte
	log    *zap.Logger
}

// NewMQTTPump creates a pump that publishes commands on topic.
func NewMQTTPump(client mqtt.Client, topic string, qos byte, log *zap.Logger) *MQTTPump {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTTPump{client: client, topic: topic, qos: qos, log: log.Named("pump")}
}

// Water implements rover.Pump.
func (p *MQTTPump) Water(ctx context.Context, amount float64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	payload, err := json.Marshal(Command{Plant: PlantFromContext(ctx), Amount: amount})
	if err != nil {
		return err
	}
	if err := mqtt.Wait(ctx, p.client.Publish(p.topic, p.qos, false, payload)); err != nil {
		return fmt.Errorf("pump command: %w", err)
	}
	p.log.Info("watering", zap.Float64("amount", amount))
	return nil
}

// DryRun logs what it would have watered.
type DryRun struct {
	Log *zap.Logger
}

// Water implements rover.Pump.
func (d DryRun) Water(ctx context.Context, amount float64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if d.Log != nil {
		d.Log.Info("dry run: would water", zap.Int("plant", PlantFromContext(ctx)), zap.Float64("amount", amount))
	}
	return nil
}

type plantKey struct{}

// WithPlant tags ctx with the plant being watered.
func WithPlant(ctx context.Context, plant int) context.Context {
	return context.WithValue(ctx, plantKey{}, plant)
}

// PlantFromContext returns the plant set by WithPlant, or 0.
func PlantFromContext(ctx context.Context) int {
	v, _ := ctx.Value(plantKey{}).(int)
	return v
}
