package leaf

// Params tunes the detection pipeline.
type Params struct {
	// Contours smaller than this many pixels are noise.
	MinContourArea float64 `mapstructure:"min_contour_area"`

	// Draw the bounding box and label on the frame after detection.
	Annotate bool `mapstructure:"annotate"`
}

// DefaultParams returns the parameters the rover ships with.
func DefaultParams() Params {
	return Params{
		MinContourArea: 1000,
		Annotate:       true,
	}
}

// WithMinContourArea returns a copy of p with a different area threshold.
func (p Params) WithMinContourArea(area float64) Params {
	if area >= 0 {
		p.MinContourArea = area
	}
	return p
}

// WithAnnotate returns a copy of p with annotation switched on or off.
func (p Params) WithAnnotate(on bool) Params {
	p.Annotate = on
	return p
}
