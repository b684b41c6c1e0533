// Package sensor reads soil moisture.
package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats/scalar"

	"plant-rover/internal/mqtt"
)

// FullScale is the ADS1115's maximum positive single-ended count.
const FullScale = 32767

// ErrBadReading is returned for payloads that carry no usable value.
var ErrBadReading = errors.New("bad moisture reading")

// CountsToPercent converts a raw ADS1115 count to percent, rounded to two
// decimals and clamped to 0-100.
func CountsToPercent(count int) float64 {
	pct := float64(count) / FullScale * 100
	pct = max(0, min(100, pct))
	return scalar.Round(pct, 2)
}

// Fixed always reports the same moisture.
type Fixed float64

// ReadMoisture implements rover.MoistureSensor.
func (f Fixed) ReadMoisture(context.Context) (float64, error) {
	return float64(f), nil
}

// MQTTConfig configures the MQTT moisture probe.
type MQTTConfig struct {
	// Topic the probe publishes readings on.
	Topic string `mapstructure:"topic"`
	// RequestTopic, if set, is published to before waiting to trigger a
	// fresh reading.
	RequestTopic string `mapstructure:"request_topic"`
	QoS          byte   `mapstructure:"qos"`
}

// MQTTMoisture waits for the next reading from a remote probe.
//
// Accepted payloads are {"raw": <count>}, {"moisture": <percent>} or a bare
// number in percent.
type MQTTMoisture struct {
	client mqtt.Client
	cfg    MQTTConfig
	log    *zap.Logger

	// one reader at a time; the probe answers one request at a time
	mu sync.Mutex
}

// NewMQTTMoisture creates the sensor.
func NewMQTTMoisture(client mqtt.Client, cfg MQTTConfig, log *zap.Logger) *MQTTMoisture {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTTMoisture{client: client, cfg: cfg, log: log.Named("moisture")}
}

type result struct {
	value float64
	err   error
}

// ReadMoisture subscribes, optionally triggers the probe, and returns the
// first reading to arrive or ctx's error.
func (s *MQTTMoisture) ReadMoisture(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan result, 1)
	handler := func(_ paho.Client, msg paho.Message) {
		v, err := ParsePayload(msg.Payload())
		select {
		case ch <- result{v, err}:
		default:
		}
	}

	if err := mqtt.Wait(ctx, s.client.Subscribe(s.cfg.Topic, s.cfg.QoS, handler)); err != nil {
		return 0, fmt.Errorf("subscribe %s: %w", s.cfg.Topic, err)
	}
	defer s.client.Unsubscribe(s.cfg.Topic)

	if s.cfg.RequestTopic != "" {
		if err := mqtt.Wait(ctx, s.client.Publish(s.cfg.RequestTopic, s.cfg.QoS, false, []byte("read"))); err != nil {
			return 0, fmt.Errorf("request reading: %w", err)
		}
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return 0, r.err
		}
		s.log.Debug("moisture reading", zap.Float64("percent", r.value))
		return r.value, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ParsePayload decodes a probe payload into percent.
func ParsePayload(payload []byte) (float64, error) {
	text := strings.TrimSpace(string(payload))
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return checkPercent(v)
	}

	var body struct {
		Raw      *int     `json:"raw"`
		Moisture *float64 `json:"moisture"`
	}
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadReading, err)
	}
	switch {
	case body.Raw != nil:
		return CountsToPercent(*body.Raw), nil
	case body.Moisture != nil:
		return checkPercent(*body.Moisture)
	}
	return 0, fmt.Errorf("%w: no raw or moisture field", ErrBadReading)
}

func checkPercent(v float64) (float64, error) {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return 0, fmt.Errorf("%w: %v outside 0-100", ErrBadReading, v)
	}
	return scalar.Round(v, 2), nil
}
