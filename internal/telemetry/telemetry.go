// Package telemetry reports per-plant visit results to dashboards.
package telemetry

import (
	"context"
	"errors"
	"time"
)

// Report is what the rover learned at one plant.
type Report struct {
	Plant        int       `json:"plant"`
	Species      string    `json:"species"`
	Moisture     float64   `json:"moisture"`
	WaterContent *float64  `json:"water_content"`
	WaterNeeded  *float64  `json:"water_needed"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	Skipped      string    `json:"skipped,omitempty"`
	Time         time.Time `json:"time"`
}

// Publisher sends a report somewhere.
type Publisher interface {
	Publish(ctx context.Context, r Report) error
}

// Multi fans a report out to every publisher. All publishers are tried; the
// returned error joins every failure.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, r Report) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards reports.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Report) error { return nil }
