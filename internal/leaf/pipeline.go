package leaf

import (
	"fmt"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"plant-rover/internal/species"
)

// Detector runs segmentation, selection, identification and water-content
// estimation on a frame.
type Detector struct {
	params     Params
	identifier Identifier
	log        *zap.Logger
}

// NewDetector creates a detector. A nil identifier selects TemplateMatcher.
func NewDetector(params Params, identifier Identifier, log *zap.Logger) *Detector {
	if identifier == nil {
		identifier = TemplateMatcher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{params: params, identifier: identifier, log: log.Named("detector")}
}

// Params returns the detector's parameters.
func (d *Detector) Params() Params {
	return d.params
}

// Detect analyses frame against the catalog. A frame with no candidate leaf
// yields Unknown() and is left unannotated. When annotation is enabled the
// bounding box and label are drawn onto frame in place.
func (d *Detector) Detect(frame *gocv.Mat, cat *species.Catalog) (DetectionResult, error) {
	regions, err := Segment(*frame, cat.Profiles, d.params)
	if err != nil {
		return Unknown(), err
	}

	region, ok := Select(regions, cat.Profiles.Order())
	if !ok {
		d.log.Debug("no leaf region in frame")
		return Unknown(), nil
	}

	crop := frame.Region(region.Bounds.Rectangle())
	name, score, err := d.identifier.Identify(crop, cat.Templates)
	crop.Close()
	if err != nil {
		return Unknown(), fmt.Errorf("identify leaf: %w", err)
	}

	res := DetectionResult{
		Species:     name,
		Score:       score,
		BoundingBox: region.Bounds,
		Found:       true,
	}
	if name != UnknownSpecies {
		res.WaterContent = EstimateWaterContent(*frame, region, name, cat.Water)
	}

	d.log.Debug("leaf detected",
		zap.String("segmented_as", region.Species),
		zap.String("species", name),
		zap.Float64("score", score),
		zap.Float64("area", region.Area),
		zap.Bool("water_known", res.WaterContent != nil))

	if d.params.Annotate {
		Annotate(frame, res)
	}
	return res, nil
}
