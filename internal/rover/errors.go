package rover

import (
	"errors"
	"fmt"
)

// Stage names the part of a visit that failed.
type Stage string

const (
	StageMove       Stage = "move"
	StageCamera     Stage = "camera"
	StageDetection  Stage = "detection"
	StageMoisture   Stage = "moisture"
	StageWeather    Stage = "weather"
	StageIrrigation Stage = "irrigation"
	StagePump       Stage = "pump"
	StageTelemetry  Stage = "telemetry"
)

// ErrSkipped marks a visit that finished without watering because the
// amount could not be computed safely (unknown leaf water content, no target).
var ErrSkipped = errors.New("irrigation skipped")

// VisitError is a per-plant failure. Run logs it and moves on.
type VisitError struct {
	Plant int
	Stage Stage
	Err   error
}

func (e *VisitError) Error() string {
	return fmt.Sprintf("plant %d: %s: %v", e.Plant, e.Stage, e.Err)
}

func (e *VisitError) Unwrap() error {
	return e.Err
}

func visitErr(plant int, stage Stage, err error) *VisitError {
	return &VisitError{Plant: plant, Stage: stage, Err: err}
}
