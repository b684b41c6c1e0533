package species

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"plant-rover/pkg/colorutil"
)

// ErrNotEnoughSamples is returned when a fit has fewer samples than unknowns.
var ErrNotEnoughSamples = errors.New("need at least 3 calibration samples")

// Sample is one calibration measurement: the mean leaf hue and saturation and
// the water content measured in the lab.
type Sample struct {
	Hue          float64
	Saturation   float64
	WaterContent float64
}

// FitWaterModel fits water = A*hue + B*saturation + C to the samples by
// least squares.
func FitWaterModel(samples []Sample) (WaterModel, error) {
	n := len(samples)
	if n < 3 {
		return WaterModel{}, ErrNotEnoughSamples
	}

	A := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i, s := range samples {
		if !finite(s.Hue, s.Saturation, s.WaterContent) {
			return WaterModel{}, fmt.Errorf("sample %d is not finite", i)
		}
		A.Set(i, 0, s.Hue)
		A.Set(i, 1, s.Saturation)
		A.Set(i, 2, 1)
		b.SetVec(i, s.WaterContent)
	}

	var qr mat.QR
	qr.Factorize(A)

	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return WaterModel{}, fmt.Errorf("least squares fit failed: %w", err)
	}

	m := WaterModel{A: x.AtVec(0), B: x.AtVec(1), C: x.AtVec(2)}
	if !finite(m.A, m.B, m.C) {
		return WaterModel{}, errors.New("least squares fit is degenerate; vary hue and saturation across samples")
	}
	return m, nil
}

// ProfileFromSample derives a color profile centred on a sampled HSV color,
// widening hue by tol.H and saturation and value by tol.S and tol.V. Bounds
// are clamped to the OpenCV HSV ranges.
func ProfileFromSample(name string, sample, tol colorutil.HSV) ColorProfile {
	h, s, v := sample.Floats()
	th, ts, tv := tol.Floats()

	clampH := func(x float64) uint8 {
		if x > 179 {
			return 179
		}
		return colorutil.Clamp8(x)
	}

	return ColorProfile{
		Species: name,
		Lower: colorutil.HSV{
			H: clampH(h - th),
			S: colorutil.Clamp8(s - ts),
			V: colorutil.Clamp8(v - tv),
		},
		Upper: colorutil.HSV{
			H: clampH(h + th),
			S: colorutil.Clamp8(s + ts),
			V: colorutil.Clamp8(v + tv),
		},
	}
}
