// Package leaf finds leaves in camera frames, identifies their species and
// estimates their water content.
package leaf

import (
	"encoding/json"
	"image"
	"math"

	"plant-rover/internal/species"
	"plant-rover/pkg/geometry"
)

// UnknownSpecies is reported when no leaf or no template could be matched.
const UnknownSpecies = "Unknown"

// Region is one candidate leaf: an external contour found in a species'
// color mask.
type Region struct {
	Species string
	Profile species.ColorProfile
	Contour []image.Point
	Bounds  geometry.RectInt
	Area    float64
}

// DetectionResult is the outcome of running the pipeline on one frame.
type DetectionResult struct {
	Species      string           `json:"species"`
	Score        float64          `json:"score"`
	WaterContent *float64         `json:"water_content"`
	BoundingBox  geometry.RectInt `json:"bounding_box"`
	Found        bool             `json:"found"`
}

// Unknown is the result for a frame with no leaf in it.
func Unknown() DetectionResult {
	return DetectionResult{Species: UnknownSpecies, Score: math.Inf(1)}
}

// HasWaterContent reports whether the water content was estimated.
func (r DetectionResult) HasWaterContent() bool {
	return r.WaterContent != nil
}

// MarshalJSON encodes an infinite score as null.
func (r DetectionResult) MarshalJSON() ([]byte, error) {
	type plain DetectionResult
	out := struct {
		plain
		Score *float64 `json:"score"`
	}{plain: plain(r)}
	if !math.IsInf(r.Score, 0) && !math.IsNaN(r.Score) {
		s := r.Score
		out.Score = &s
	}
	return json.Marshal(out)
}
