package leaf

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"

	"plant-rover/internal/template"
)

// Identifier names the species shown in a cropped leaf image. Lower scores
// are better; +Inf means no candidate could be scored.
type Identifier interface {
	Identify(crop gocv.Mat, templates *template.Store) (species string, score float64, err error)
}

// TemplateMatcher identifies a leaf by the reference template with the lowest
// mean squared error against the crop.
type TemplateMatcher struct{}

// Identify resizes every template to the crop and compares all three color
// channels. Ties keep the earlier template. With no templates it returns
// UnknownSpecies and +Inf.
func (TemplateMatcher) Identify(crop gocv.Mat, templates *template.Store) (string, float64, error) {
	if crop.Empty() {
		return UnknownSpecies, math.Inf(1), ErrEmptyFrame
	}

	want := asFloats(contiguousBytes(crop))
	size := image.Pt(crop.Cols(), crop.Rows())

	best, bestScore := UnknownSpecies, math.Inf(1)
	for _, t := range templates.Templates() {
		score, err := templateMSE(t, size, want)
		if err != nil {
			return UnknownSpecies, math.Inf(1), fmt.Errorf("template %s: %w", t.Species, err)
		}
		if score < bestScore {
			best, bestScore = t.Species, score
		}
	}
	return best, bestScore, nil
}

func templateMSE(t template.Template, size image.Point, want []float64) (float64, error) {
	ref, err := t.Mat()
	if err != nil {
		return 0, err
	}
	defer ref.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(ref, &resized, size, 0, 0, gocv.InterpolationLinear)

	got := asFloats(resized.ToBytes())
	if len(got) != len(want) {
		return 0, fmt.Errorf("resized template has %d values, crop has %d", len(got), len(want))
	}
	return MSE(got, want), nil
}

// MSE is the mean squared difference between two equal-length vectors.
func MSE(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	d := floats.Distance(a, b, 2)
	return d * d / float64(len(a))
}

// contiguousBytes returns a Mat's packed pixel data. Region views are not
// continuous, so the data is always copied out through a clone.
func contiguousBytes(m gocv.Mat) []byte {
	c := m.Clone()
	defer c.Close()
	return c.ToBytes()
}

func asFloats(b []byte) []float64 {
	out := make([]float64, len(b))
	for i, v := range b {
		out[i] = float64(v)
	}
	return out
}
