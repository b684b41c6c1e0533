package cmd

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := RootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeImage(t *testing.T, path string, size int, leaf image.Rectangle) {
	t.Helper()
	m := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	defer m.Close()
	m.SetTo(gocv.NewScalar(0, 0, 0, 0))
	gocv.Rectangle(&m, leaf, color.RGBA{G: 255, A: 255}, -1)
	require.True(t, gocv.IMWrite(path, m))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "plant-rover")
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	require.NoError(t, os.Mkdir(filepath.Join(dir, "templates"), 0o755))
	writeImage(t, filepath.Join(dir, "templates", "basil.png"), 8, image.Rect(0, 0, 8, 8))
	frame := filepath.Join(dir, "leaf.png")
	writeImage(t, frame, 120, image.Rect(20, 20, 80, 80))

	cfg := write("config.yaml", `
log: {mode: debug, level: error}
stores:
  profiles: `+write("hsv.json", `{"basil": [[50, 100, 100], [70, 255, 255]]}`)+`
  water_models: `+write("water.json", `{"basil": [0.5, 0.1, 10]}`)+`
  targets: `+write("targets.json", `{"basil": 80}`)+`
  templates: `+filepath.Join(dir, "templates")+`
`)
	annotated := filepath.Join(dir, "annotated.png")

	out, err := execute(t, "detect", "--config", cfg, "--env", "", "--out", annotated, frame)
	require.NoError(t, err)

	var res struct {
		Species      string   `json:"species"`
		WaterContent *float64 `json:"water_content"`
		Found        bool     `json:"found"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "basil", res.Species)
	assert.True(t, res.Found)
	require.NotNil(t, res.WaterContent)
	assert.InDelta(t, 65.5, *res.WaterContent, 0.001)

	assert.FileExists(t, annotated)
}

func TestDetectRequiresImage(t *testing.T) {
	_, err := execute(t, "detect")
	require.Error(t, err)
}

func TestExplicitConfigMustExist(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
