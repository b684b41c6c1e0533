package species

import (
	"fmt"
	"math"
)

// WaterModel is a linear water-content model:
// water = A*hue + B*saturation + C, with hue and saturation in OpenCV units.
type WaterModel struct {
	A, B, C float64
}

// Apply evaluates the model.
func (m WaterModel) Apply(hue, saturation float64) float64 {
	return m.A*hue + m.B*saturation + m.C
}

// WaterModels maps species to their calibrated water model.
type WaterModels struct {
	m map[string]WaterModel
}

// NewWaterModels copies models into a read-only store.
func NewWaterModels(models map[string]WaterModel) (*WaterModels, error) {
	out := &WaterModels{m: make(map[string]WaterModel, len(models))}
	for name, model := range models {
		if !finite(model.A, model.B, model.C) {
			return nil, fmt.Errorf("%w: water model for %q has non-finite coefficients", ErrInvalidStore, name)
		}
		out.m[name] = model
	}
	return out, nil
}

// Get returns the model for a species. There is no default model: a missing
// species means its water content is unknown.
func (w *WaterModels) Get(species string) (WaterModel, bool) {
	if w == nil {
		return WaterModel{}, false
	}
	m, ok := w.m[species]
	return m, ok
}

// Len returns the number of models.
func (w *WaterModels) Len() int {
	if w == nil {
		return 0
	}
	return len(w.m)
}

// All returns a copy of every model.
func (w *WaterModels) All() map[string]WaterModel {
	out := make(map[string]WaterModel, w.Len())
	if w != nil {
		for name, m := range w.m {
			out[name] = m
		}
	}
	return out
}

// Targets maps species to their baseline target water percentage.
type Targets struct {
	m map[string]float64
}

// NewTargets copies targets into a read-only store.
func NewTargets(targets map[string]float64) (*Targets, error) {
	out := &Targets{m: make(map[string]float64, len(targets))}
	for name, v := range targets {
		if !finite(v) {
			return nil, fmt.Errorf("%w: target for %q is not finite", ErrInvalidStore, name)
		}
		out.m[name] = v
	}
	return out, nil
}

// Lookup returns the target for a species. The fallback policy for unknown
// species belongs to the caller.
func (t *Targets) Lookup(species string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	v, ok := t.m[species]
	return v, ok
}

// Len returns the number of targets.
func (t *Targets) Len() int {
	if t == nil {
		return 0
	}
	return len(t.m)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
