package rover

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
	"gocv.io/x/gocv"

	"plant-rover/internal/archive"
	"plant-rover/internal/irrigation"
	"plant-rover/internal/leaf"
	"plant-rover/internal/metrics"
	"plant-rover/internal/pump"
	"plant-rover/internal/species"
	"plant-rover/internal/telemetry"
	"plant-rover/internal/template"
	"plant-rover/internal/weather"
	"plant-rover/pkg/colorutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCamera struct {
	mu    sync.Mutex
	calls int
	leaf  bool
	errOn map[int]error
}

func (c *fakeCamera) Capture(ctx context.Context) (gocv.Mat, error) {
	c.mu.Lock()
	c.calls++
	err := c.errOn[c.calls]
	c.mu.Unlock()
	if err != nil {
		return gocv.NewMat(), err
	}

	m := gocv.NewMatWithSize(120, 120, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(0, 0, 0, 0))
	if c.leaf {
		gocv.Rectangle(&m, image.Rect(20, 20, 80, 80), color.RGBA{G: 255, A: 255}, -1)
	}
	return m, nil
}

type sensorFunc func(ctx context.Context) (float64, error)

func (f sensorFunc) ReadMoisture(ctx context.Context) (float64, error) { return f(ctx) }

func fixedMoisture(v float64) sensorFunc {
	return func(context.Context) (float64, error) { return v, nil }
}

type fakePump struct {
	mu      sync.Mutex
	amounts map[int]float64
	err     error
}

func (p *fakePump) Water(ctx context.Context, amount float64) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.amounts == nil {
		p.amounts = map[int]float64{}
	}
	p.amounts[pump.PlantFromContext(ctx)] = amount
	return nil
}

type fakePublisher struct {
	reports []telemetry.Report
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, r telemetry.Report) error {
	p.reports = append(p.reports, r)
	return p.err
}

type fakeArchive struct {
	records []*archive.Record
	err     error
}

func (a *fakeArchive) Save(_ gocv.Mat, rec *archive.Record) (string, error) {
	a.records = append(a.records, rec)
	return "capture.json", a.err
}

type fixture struct {
	camera    *fakeCamera
	pump      *fakePump
	publisher *fakePublisher
	archive   *fakeArchive
	deps      Deps
	opts      Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	profiles, err := species.NewProfiles(species.ColorProfile{
		Species: "basil",
		Lower:   colorutil.HSV{H: 50, S: 100, V: 100},
		Upper:   colorutil.HSV{H: 70, S: 255, V: 255},
	})
	require.NoError(t, err)
	water, err := species.NewWaterModels(map[string]species.WaterModel{"basil": {A: 0.5, B: 0.1, C: 10}})
	require.NoError(t, err)
	targets, err := species.NewTargets(map[string]float64{"basil": 80})
	require.NoError(t, err)

	bgr := make([]byte, 8*8*3)
	for i := 1; i < len(bgr); i += 3 {
		bgr[i] = 255
	}
	tmpl, err := template.New("basil", 8, 8, bgr)
	require.NoError(t, err)

	cat := &species.Catalog{
		Profiles:  profiles,
		Water:     water,
		Targets:   targets,
		Templates: template.NewStore(tmpl),
	}

	calc, err := irrigation.NewCalculator(irrigation.DefaultParams())
	require.NoError(t, err)

	f := &fixture{
		camera:    &fakeCamera{leaf: true},
		pump:      &fakePump{},
		publisher: &fakePublisher{},
		archive:   &fakeArchive{},
		opts:      Options{Plants: 3, VisitTimeout: time.Second},
	}
	f.deps = Deps{
		Camera:     f.camera,
		Moisture:   fixedMoisture(40),
		Weather:    weather.Static{Temperature: 30, Humidity: 50},
		Pump:       f.pump,
		Publisher:  f.publisher,
		Archive:    f.archive,
		Catalog:    species.NewHolder(cat),
		Detector:   leaf.NewDetector(leaf.DefaultParams(), nil, nil),
		Calculator: calc,
		Log:        zaptest.NewLogger(t),
	}
	return f
}

func (f *fixture) rover(t *testing.T) *Rover {
	t.Helper()
	r, err := New(f.deps, f.opts)
	require.NoError(t, err)
	return r
}

func TestVisitWatersPlant(t *testing.T) {
	f := newFixture(t)

	out, err := f.rover(t).Visit(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "basil", out.Detection.Species)
	require.NotNil(t, out.Detection.WaterContent)
	assert.InDelta(t, 65.5, *out.Detection.WaterContent, 0.001)
	require.NotNil(t, out.Amount)
	assert.Equal(t, 65.0, *out.Amount)
	assert.True(t, out.Watered)
	assert.Nil(t, out.Skipped)

	assert.Equal(t, map[int]float64{1: 65}, f.pump.amounts)

	require.Len(t, f.publisher.reports, 1)
	rep := f.publisher.reports[0]
	assert.Equal(t, 1, rep.Plant)
	assert.Equal(t, "basil", rep.Species)
	assert.Equal(t, 40.0, rep.Moisture)
	require.NotNil(t, rep.WaterNeeded)
	assert.Equal(t, 65.0, *rep.WaterNeeded)

	require.Len(t, f.archive.records, 1)
	assert.Equal(t, 1, f.archive.records[0].Plant)
}

func TestVisitNoLeafSkipsIrrigationButReports(t *testing.T) {
	f := newFixture(t)
	f.camera.leaf = false

	out, err := f.rover(t).Visit(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, leaf.UnknownSpecies, out.Detection.Species)
	assert.Nil(t, out.Detection.WaterContent)
	assert.Nil(t, out.Amount)
	require.Error(t, out.Skipped)
	assert.ErrorIs(t, out.Skipped, ErrSkipped)
	assert.ErrorIs(t, out.Skipped, irrigation.ErrWaterContentUnknown)

	assert.Empty(t, f.pump.amounts)
	require.Len(t, f.publisher.reports, 1)
	assert.Equal(t, leaf.UnknownSpecies, f.publisher.reports[0].Species)
	assert.NotEmpty(t, f.publisher.reports[0].Skipped)
}

func TestVisitMissingTarget(t *testing.T) {
	f := newFixture(t)
	cat := *f.deps.Catalog.Load()
	cat.Targets, _ = species.NewTargets(nil)
	f.deps.Catalog = species.NewHolder(&cat)

	out, err := f.rover(t).Visit(context.Background(), 1)
	require.NoError(t, err)
	assert.ErrorIs(t, out.Skipped, ErrSkipped)
	assert.Empty(t, f.pump.amounts)

	def := 80.0
	f.opts.DefaultTarget = &def
	out, err = f.rover(t).Visit(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, out.Amount)
	assert.Equal(t, 65.0, *out.Amount)
}

func TestVisitNoWaterNeeded(t *testing.T) {
	f := newFixture(t)
	f.deps.Moisture = fixedMoisture(100)
	f.deps.Weather = weather.Static{Temperature: 10, Humidity: 90, Rain: irrigation.Rain{50, 50, 50, 50}}

	out, err := f.rover(t).Visit(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, out.Amount)
	assert.Equal(t, 0.0, *out.Amount)
	assert.False(t, out.Watered)
	assert.Empty(t, f.pump.amounts)
}

func TestVisitErrorsCarryStage(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		setup func(f *fixture)
		stage Stage
	}{
		{"camera", func(f *fixture) { f.camera.errOn = map[int]error{1: boom} }, StageCamera},
		{"moisture", func(f *fixture) {
			f.deps.Moisture = sensorFunc(func(context.Context) (float64, error) { return 0, boom })
		}, StageMoisture},
		{"weather", func(f *fixture) { f.deps.Weather = failingWeather{boom} }, StageWeather},
		{"irrigation", func(f *fixture) { f.deps.Moisture = fixedMoisture(150) }, StageIrrigation},
		{"pump", func(f *fixture) { f.pump.err = boom }, StagePump},
		{"telemetry", func(f *fixture) { f.publisher.err = boom }, StageTelemetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			_, err := f.rover(t).Visit(context.Background(), 1)
			require.Error(t, err)

			var ve *VisitError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.stage, ve.Stage)
			assert.Equal(t, 1, ve.Plant)
		})
	}
}

func TestVisitTelemetryFailureAfterWatering(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("dashboard down")

	_, err := f.rover(t).Visit(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, map[int]float64{1: 65}, f.pump.amounts)
}

func TestVisitArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.archive.err = errors.New("disk full")

	_, err := f.rover(t).Visit(context.Background(), 1)
	require.NoError(t, err)
}

func TestVisitTimeout(t *testing.T) {
	f := newFixture(t)
	f.opts.VisitTimeout = 20 * time.Millisecond
	f.deps.Moisture = sensorFunc(func(ctx context.Context) (float64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	_, err := f.rover(t).Visit(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var ve *VisitError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, StageMoisture, ve.Stage)
	assert.Empty(t, f.pump.amounts)
}

func TestVisitSensorFailureCancelsVision(t *testing.T) {
	f := newFixture(t)
	f.deps.Camera = blockingCamera{}
	f.deps.Moisture = sensorFunc(func(context.Context) (float64, error) {
		return 0, errors.New("probe stuck")
	})

	start := time.Now()
	_, err := f.rover(t).Visit(context.Background(), 1)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRunContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	f.camera.errOn = map[int]error{2: errors.New("lens cap on")}
	m, err := metrics.New()
	require.NoError(t, err)
	f.deps.Metrics = m

	sum, err := f.rover(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Visited)
	assert.Equal(t, 2, sum.Watered)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Errors, 1)

	var ve *VisitError
	require.ErrorAs(t, sum.Errors[0], &ve)
	assert.Equal(t, 2, ve.Plant)
	assert.Equal(t, StageCamera, ve.Stage)

	assert.Equal(t, map[int]float64{1: 65, 3: 65}, f.pump.amounts)
	assert.Len(t, f.publisher.reports, 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := f.rover(t).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, sum.Visited)
}

func TestNewRequiresCollaborators(t *testing.T) {
	f := newFixture(t)
	f.deps.Pump = nil
	_, err := New(f.deps, f.opts)
	require.Error(t, err)

	f = newFixture(t)
	f.deps.Catalog = species.NewHolder(nil)
	_, err = New(f.deps, f.opts)
	require.Error(t, err)
}

type failingWeather struct{ err error }

func (w failingWeather) Conditions(context.Context) (weather.Conditions, error) {
	return weather.Conditions{}, w.err
}

type blockingCamera struct{}

func (blockingCamera) Capture(ctx context.Context) (gocv.Mat, error) {
	<-ctx.Done()
	return gocv.NewMat(), ctx.Err()
}
