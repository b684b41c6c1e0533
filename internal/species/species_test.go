package species

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"plant-rover/pkg/colorutil"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeTemplate(t *testing.T, dir, name string) {
	t.Helper()
	m := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			m.SetRGBA(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, m))
}

func TestLoadProfilesKeepsFileOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hsv.json", `{
		"mint":  [[40, 50, 50], [80, 255, 255]],
		"basil": [[35, 60, 40], [85, 255, 255]],
		"aloe":  [[30, 20, 20], [90, 200, 200]]
	}`)

	p, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"mint", "basil", "aloe"}, p.Order())

	basil, ok := p.Get("basil")
	require.True(t, ok)
	assert.Equal(t, colorutil.HSV{H: 35, S: 60, V: 40}, basil.Lower)
	assert.Equal(t, colorutil.HSV{H: 85, S: 255, V: 255}, basil.Upper)
	assert.True(t, basil.Matchable())
}

func TestLoadProfilesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hsv.yaml", "rose:\n  - [0, 50, 50]\n  - [10, 255, 255]\nfern:\n  - [40, 40, 40]\n  - [70, 255, 255]\n")

	p, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"rose", "fern"}, p.Order())
}

func TestLoadProfilesAcceptsInvertedBounds(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hsv.json", `{"odd": [[90, 255, 255], [10, 0, 0]]}`)

	p, err := LoadProfiles(path)
	require.NoError(t, err)
	odd, ok := p.Get("odd")
	require.True(t, ok)
	assert.False(t, odd.Matchable())
}

func TestLoadProfilesRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"two channels":   `{"basil": [[35, 60], [85, 255, 255]]}`,
		"one bound":      `{"basil": [[35, 60, 40]]}`,
		"out of range":   `{"basil": [[35, 60, 40], [85, 256, 255]]}`,
		"negative":       `{"basil": [[-1, 60, 40], [85, 255, 255]]}`,
		"not a mapping":  `[1, 2, 3]`,
		"duplicate":      `{"basil": [[1,1,1],[2,2,2]], "basil": [[1,1,1],[2,2,2]]}`,
		"empty document": ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "hsv.json", body)
			_, err := LoadProfiles(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidStore))
		})
	}
}

func TestLoadProfilesMissingFile(t *testing.T) {
	_, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, ErrInvalidStore)
}

func TestLoadWaterModels(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "water.json", `{"basil": [0.5, -0.1, 20], "mint": [0, 0, 42]}`)

	w, err := LoadWaterModels(path)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Len())

	m, ok := w.Get("basil")
	require.True(t, ok)
	assert.InDelta(t, 0.5*60+(-0.1)*200+20, m.Apply(60, 200), 1e-9)

	_, ok = w.Get("rose")
	assert.False(t, ok)

	bad := writeFile(t, dir, "bad.json", `{"basil": [0.5, 20]}`)
	_, err = LoadWaterModels(bad)
	require.ErrorIs(t, err, ErrInvalidStore)
}

func TestLoadTargets(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "targets.json", `{"basil": 70, "mint": 55.5}`)

	tg, err := LoadTargets(path)
	require.NoError(t, err)
	v, ok := tg.Lookup("mint")
	require.True(t, ok)
	assert.Equal(t, 55.5, v)

	_, ok = tg.Lookup("aloe")
	assert.False(t, ok)

	bad := writeFile(t, dir, "bad.json", `{"basil": "lots"}`)
	_, err = LoadTargets(bad)
	require.ErrorIs(t, err, ErrInvalidStore)
}

func TestNewStoresRejectNonFinite(t *testing.T) {
	_, err := NewWaterModels(map[string]WaterModel{"basil": {A: math.NaN()}})
	require.ErrorIs(t, err, ErrInvalidStore)

	_, err = NewTargets(map[string]float64{"basil": math.Inf(1)})
	require.ErrorIs(t, err, ErrInvalidStore)

	_, err = NewProfiles(ColorProfile{Species: ""})
	require.ErrorIs(t, err, ErrInvalidStore)
}

func TestNilStoresAreEmpty(t *testing.T) {
	var p *Profiles
	var w *WaterModels
	var tg *Targets

	assert.Equal(t, 0, p.Len())
	assert.Nil(t, p.Order())
	_, ok := w.Get("basil")
	assert.False(t, ok)
	_, ok = tg.Lookup("basil")
	assert.False(t, ok)
}

type fixture struct {
	dir   string
	paths Paths
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	tdir := filepath.Join(dir, "templates")
	require.NoError(t, os.Mkdir(tdir, 0o755))
	writeTemplate(t, tdir, "basil.png")

	return fixture{
		dir: dir,
		paths: Paths{
			Profiles:    writeFile(t, dir, "hsv.json", `{"basil": [[35, 60, 40], [85, 255, 255]], "mint": [[40, 50, 50], [80, 255, 255]]}`),
			WaterModels: writeFile(t, dir, "water.json", `{"basil": [0.1, 0.1, 10]}`),
			Targets:     writeFile(t, dir, "targets.json", `{"basil": 70}`),
			Templates:   tdir,
		},
	}
}

func TestLoadCatalog(t *testing.T) {
	f := newFixture(t)

	cat, err := LoadCatalog(context.Background(), f.paths, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 2, cat.Profiles.Len())
	assert.Equal(t, 1, cat.Water.Len())
	assert.Equal(t, 1, cat.Targets.Len())
	assert.Equal(t, []string{"basil"}, cat.Templates.Species())
	assert.False(t, cat.LoadedAt.IsZero())
}

func TestLoadCatalogFailsOnAnyStore(t *testing.T) {
	f := newFixture(t)
	f.paths.WaterModels = writeFile(t, f.dir, "water.json", `{"basil": [1]}`)

	_, err := LoadCatalog(context.Background(), f.paths, nil)
	require.ErrorIs(t, err, ErrInvalidStore)

	f = newFixture(t)
	f.paths.Templates = filepath.Join(f.dir, "nope")
	_, err = LoadCatalog(context.Background(), f.paths, nil)
	require.Error(t, err)
}

func TestHolderSwap(t *testing.T) {
	a := &Catalog{}
	b := &Catalog{}

	h := NewHolder(a)
	assert.Same(t, a, h.Load())
	assert.Same(t, a, h.Swap(b))
	assert.Same(t, b, h.Load())
}

func TestWatcherReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	ctx := context.Background()
	cat, err := LoadCatalog(ctx, f.paths, nil)
	require.NoError(t, err)

	h := NewHolder(cat)
	w := NewWatcher(f.paths, h, time.Hour, zaptest.NewLogger(t))

	assert.False(t, w.Check(ctx))

	writeFile(t, f.dir, "targets.json", `{"basil": 70, "mint": 60}`)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(f.paths.Targets, future, future))

	var reloaded *Catalog
	w.OnReload(func(c *Catalog) { reloaded = c })

	assert.True(t, w.Check(ctx))
	assert.NotSame(t, cat, h.Load())
	assert.Same(t, reloaded, h.Load())
	assert.Equal(t, 2, h.Load().Targets.Len())

	assert.False(t, w.Check(ctx))
}

func TestWatcherKeepsCatalogOnBadReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat, err := LoadCatalog(ctx, f.paths, nil)
	require.NoError(t, err)

	h := NewHolder(cat)
	w := NewWatcher(f.paths, h, time.Hour, nil)

	writeFile(t, f.dir, "hsv.json", `{"basil": [[1, 2], [3, 4]]}`)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(f.paths.Profiles, future, future))

	assert.False(t, w.Check(ctx))
	assert.Same(t, cat, h.Load())
}

func TestWatcherStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	h := NewHolder(&Catalog{})
	w := NewWatcher(f.paths, h, 10*time.Millisecond, nil)

	w.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	w.Stop()
}

func TestFitWaterModel(t *testing.T) {
	want := WaterModel{A: 0.4, B: -0.05, C: 12}
	var samples []Sample
	for _, hs := range [][2]float64{{40, 100}, {55, 180}, {62, 90}, {70, 240}, {48, 130}} {
		samples = append(samples, Sample{Hue: hs[0], Saturation: hs[1], WaterContent: want.Apply(hs[0], hs[1])})
	}

	got, err := FitWaterModel(samples)
	require.NoError(t, err)
	assert.InDelta(t, want.A, got.A, 1e-6)
	assert.InDelta(t, want.B, got.B, 1e-6)
	assert.InDelta(t, want.C, got.C, 1e-6)
}

func TestFitWaterModelNeedsSamples(t *testing.T) {
	_, err := FitWaterModel([]Sample{{1, 2, 3}, {4, 5, 6}})
	require.ErrorIs(t, err, ErrNotEnoughSamples)
}

func TestProfileFromSampleClamps(t *testing.T) {
	p := ProfileFromSample("basil",
		colorutil.HSV{H: 175, S: 10, V: 250},
		colorutil.HSV{H: 10, S: 40, V: 40})

	assert.Equal(t, "basil", p.Species)
	assert.Equal(t, colorutil.HSV{H: 165, S: 0, V: 210}, p.Lower)
	assert.Equal(t, colorutil.HSV{H: 179, S: 50, V: 255}, p.Upper)
	assert.True(t, p.Matchable())
}

func TestWriteStoresRoundTrip(t *testing.T) {
	dir := t.TempDir()

	profiles := []ColorProfile{
		{Species: "mint", Lower: colorutil.HSV{H: 40, S: 50, V: 50}, Upper: colorutil.HSV{H: 80, S: 255, V: 255}},
		{Species: "basil", Lower: colorutil.HSV{H: 35, S: 60, V: 40}, Upper: colorutil.HSV{H: 85, S: 255, V: 255}},
	}
	hsvPath := filepath.Join(dir, "hsv.json")
	require.NoError(t, WriteProfiles(hsvPath, profiles))

	p, err := LoadProfiles(hsvPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"mint", "basil"}, p.Order())
	assert.Equal(t, profiles, p.All())

	models := map[string]WaterModel{"mint": {A: 0.5, B: -0.1, C: 20}, "basil": {C: 42}}
	waterPath := filepath.Join(dir, "water.json")
	require.NoError(t, WriteWaterModels(waterPath, models))

	w, err := LoadWaterModels(waterPath)
	require.NoError(t, err)
	assert.Equal(t, models, w.All())
}
