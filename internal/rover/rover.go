// Package rover drives plant visits: it captures a leaf, reads the soil,
// checks the weather, decides how much to water and reports what it did.
package rover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"plant-rover/internal/archive"
	"plant-rover/internal/irrigation"
	"plant-rover/internal/leaf"
	"plant-rover/internal/metrics"
	"plant-rover/internal/pump"
	"plant-rover/internal/species"
	"plant-rover/internal/telemetry"
	"plant-rover/internal/weather"
)

// Camera captures a BGR frame. The caller owns the returned Mat.
type Camera interface {
	Capture(ctx context.Context) (gocv.Mat, error)
}

// MoistureSensor reads soil moisture in percent.
type MoistureSensor interface {
	ReadMoisture(ctx context.Context) (float64, error)
}

// WeatherSource provides current weather and the rain forecast.
type WeatherSource interface {
	Conditions(ctx context.Context) (weather.Conditions, error)
}

// Pump delivers an amount of water to the current plant.
type Pump interface {
	Water(ctx context.Context, amount float64) error
}

// Mover positions the rover at a plant. Movement itself is hardware
// specific and optional.
type Mover interface {
	MoveTo(ctx context.Context, plant int) error
}

// Archiver stores an annotated frame and its record.
type Archiver interface {
	Save(frame gocv.Mat, rec *archive.Record) (string, error)
}

// Options tune a run.
type Options struct {
	// Number of plants on the route, visited as 1..Plants.
	Plants int `mapstructure:"plants"`

	// Upper bound on one visit, including every collaborator call.
	VisitTimeout time.Duration `mapstructure:"visit_timeout"`

	// Target used for species with no configured target. Nil skips them.
	DefaultTarget *float64 `mapstructure:"default_target"`
}

// Deps are the rover's collaborators. Mover and Archive are optional.
type Deps struct {
	Camera     Camera
	Moisture   MoistureSensor
	Weather    WeatherSource
	Pump       Pump
	Publisher  telemetry.Publisher
	Mover      Mover
	Archive    Archiver
	Catalog    *species.Holder
	Detector   *leaf.Detector
	Calculator *irrigation.Calculator
	Metrics    *metrics.Metrics
	Log        *zap.Logger
}

// Rover runs visits.
type Rover struct {
	deps Deps
	opts Options
	log  *zap.Logger
}

// New checks the required collaborators and returns a rover.
func New(deps Deps, opts Options) (*Rover, error) {
	switch {
	case deps.Camera == nil:
		return nil, errors.New("rover: camera required")
	case deps.Moisture == nil:
		return nil, errors.New("rover: moisture sensor required")
	case deps.Weather == nil:
		return nil, errors.New("rover: weather source required")
	case deps.Pump == nil:
		return nil, errors.New("rover: pump required")
	case deps.Catalog == nil || deps.Catalog.Load() == nil:
		return nil, errors.New("rover: species catalog required")
	case deps.Detector == nil:
		return nil, errors.New("rover: detector required")
	case deps.Calculator == nil:
		return nil, errors.New("rover: calculator required")
	}
	if deps.Publisher == nil {
		deps.Publisher = telemetry.Nop{}
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if opts.VisitTimeout <= 0 {
		opts.VisitTimeout = 30 * time.Second
	}
	return &Rover{deps: deps, opts: opts, log: deps.Log.Named("rover")}, nil
}

// Outcome is the result of one visit.
type Outcome struct {
	Plant     int
	Detection leaf.DetectionResult
	Moisture  float64
	Weather   weather.Conditions

	// Amount is nil when irrigation was skipped.
	Amount  *float64
	Watered bool

	// Skipped wraps ErrSkipped with the reason when no amount was computed.
	Skipped error
}

// sense is the output of the vision/moisture fork.
type sense struct {
	frame     gocv.Mat
	detection leaf.DetectionResult
	moisture  float64
}

// Visit runs the full pipeline for one plant. Any collaborator failure is
// returned as a *VisitError. A plant whose water content or target is
// unknown is not watered but is still reported; Outcome.Skipped says why.
func (r *Rover) Visit(ctx context.Context, plant int) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.VisitTimeout)
	defer cancel()

	log := r.log.With(zap.Int("plant", plant))
	out := Outcome{Plant: plant}

	// one snapshot for the whole visit
	cat := r.deps.Catalog.Load()

	if r.deps.Mover != nil {
		if err := r.deps.Mover.MoveTo(ctx, plant); err != nil {
			return out, visitErr(plant, StageMove, err)
		}
	}

	s, err := r.sense(ctx, plant, cat)
	defer s.frame.Close()
	if err != nil {
		return out, err
	}
	out.Detection = s.detection
	out.Moisture = s.moisture

	cond, err := r.deps.Weather.Conditions(ctx)
	if err != nil {
		return out, visitErr(plant, StageWeather, err)
	}
	out.Weather = cond

	amount, skip, err := r.decide(s, cond, cat)
	if err != nil {
		return out, visitErr(plant, StageIrrigation, err)
	}
	out.Amount, out.Skipped = amount, skip

	if amount != nil {
		r.deps.Metrics.RecordIrrigation(*amount)
		if *amount > 0 {
			if err := r.deps.Pump.Water(pump.WithPlant(ctx, plant), *amount); err != nil {
				return out, visitErr(plant, StagePump, err)
			}
			out.Watered = true
		}
	}

	rep := report(out)
	if err := r.deps.Publisher.Publish(ctx, rep); err != nil {
		return out, visitErr(plant, StageTelemetry, err)
	}

	if r.deps.Archive != nil {
		if path, err := r.deps.Archive.Save(s.frame, archive.New(plant, s.detection, rep)); err != nil {
			log.Warn("failed to archive capture", zap.Error(err))
		} else {
			log.Debug("capture archived", zap.String("path", path))
		}
	}

	fields := []zap.Field{
		zap.String("species", s.detection.Species),
		zap.Float64("moisture", s.moisture),
	}
	if s.detection.WaterContent != nil {
		fields = append(fields, zap.Float64("water_content", *s.detection.WaterContent))
	}
	if amount != nil {
		fields = append(fields, zap.Float64("amount", *amount))
	}
	if skip != nil {
		fields = append(fields, zap.NamedError("skipped", skip))
	}
	log.Info("visit complete", fields...)
	return out, nil
}

// sense captures and analyses a frame while the soil probe is read. Both
// tasks must succeed.
func (r *Rover) sense(ctx context.Context, plant int, cat *species.Catalog) (sense, error) {
	var s sense
	s.frame = gocv.NewMat()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		frame, err := r.deps.Camera.Capture(gctx)
		if err != nil {
			frame.Close()
			return visitErr(plant, StageCamera, err)
		}
		s.frame.Close()
		s.frame = frame

		start := time.Now()
		det, err := r.deps.Detector.Detect(&s.frame, cat)
		if err != nil {
			return visitErr(plant, StageDetection, err)
		}
		r.deps.Metrics.RecordDetection(det.Species, time.Since(start))
		s.detection = det
		return nil
	})

	g.Go(func() error {
		m, err := r.deps.Moisture.ReadMoisture(gctx)
		if err != nil {
			return visitErr(plant, StageMoisture, err)
		}
		s.moisture = m
		return nil
	})

	err := g.Wait()
	return s, err
}

// decide computes the amount. A nil amount with a non-nil skip means the
// plant must not be watered.
func (r *Rover) decide(s sense, cond weather.Conditions, cat *species.Catalog) (amount *float64, skip error, err error) {
	det := s.detection
	if !det.HasWaterContent() {
		return nil, fmt.Errorf("%w: %w", ErrSkipped, irrigation.ErrWaterContentUnknown), nil
	}

	target, ok := cat.Targets.Lookup(det.Species)
	if !ok {
		if r.opts.DefaultTarget == nil {
			return nil, fmt.Errorf("%w: no target for species %q", ErrSkipped, det.Species), nil
		}
		target = *r.opts.DefaultTarget
	}

	v, err := r.deps.Calculator.Compute(irrigation.Inputs{
		Species:      det.Species,
		Moisture:     s.moisture,
		Temperature:  cond.Temperature,
		Humidity:     cond.Humidity,
		Rain:         cond.Rain,
		WaterContent: det.WaterContent,
		Target:       target,
	})
	if err != nil {
		return nil, nil, err
	}
	return &v, nil, nil
}

func report(o Outcome) telemetry.Report {
	rep := telemetry.Report{
		Plant:        o.Plant,
		Species:      o.Detection.Species,
		Moisture:     o.Moisture,
		WaterContent: o.Detection.WaterContent,
		WaterNeeded:  o.Amount,
		Temperature:  o.Weather.Temperature,
		Humidity:     o.Weather.Humidity,
		Time:         time.Now(),
	}
	if o.Skipped != nil {
		rep.Skipped = o.Skipped.Error()
	}
	return rep
}
