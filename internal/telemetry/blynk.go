package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// BlynkConfig configures the Blynk HTTP API publisher.
type BlynkConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Server  string        `mapstructure:"server"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Virtual pins written by Blynk.
const (
	PinMoisture     = 0
	PinSpecies      = 1
	PinWaterContent = 2
	PinWaterNeeded  = 3
)

// Blynk writes a report to virtual pins, one update call per pin. Pins with
// no value (unknown water content, skipped irrigation) are not written.
type Blynk struct {
	cfg    BlynkConfig
	client *http.Client
	log    *zap.Logger
}

// NewBlynk creates a Blynk publisher.
func NewBlynk(cfg BlynkConfig, log *zap.Logger) (*Blynk, error) {
	if cfg.Token == "" {
		return nil, errors.New("blynk: auth token not configured")
	}
	if cfg.Server == "" {
		cfg.Server = "blynk.cloud"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Blynk{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: log.Named("blynk")}, nil
}

type pinValue struct {
	pin   int
	value string
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Publish implements Publisher. Every pin is attempted; failures are joined.
func (b *Blynk) Publish(ctx context.Context, r Report) error {
	pins := []pinValue{
		{PinMoisture, formatFloat(r.Moisture)},
		{PinSpecies, r.Species},
	}
	if r.WaterContent != nil {
		pins = append(pins, pinValue{PinWaterContent, formatFloat(*r.WaterContent)})
	}
	if r.WaterNeeded != nil {
		pins = append(pins, pinValue{PinWaterNeeded, formatFloat(*r.WaterNeeded)})
	}

	var errs []error
	for _, p := range pins {
		if err := b.update(ctx, p.pin, p.value); err != nil {
			b.log.Warn("pin update failed", zap.Int("pin", p.pin), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Blynk) update(ctx context.Context, pin int, value string) error {
	q := url.Values{}
	q.Set("token", b.cfg.Token)
	q.Set("v"+strconv.Itoa(pin), value)
	u := "https://" + b.cfg.Server + "/external/api/update?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("blynk v%d: %w", pin, err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("blynk v%d: %w", pin, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("blynk v%d: unexpected status %d", pin, resp.StatusCode)
	}
	return nil
}
