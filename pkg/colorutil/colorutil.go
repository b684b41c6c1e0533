// Package colorutil provides shared color utilities for the plant rover.
package colorutil

import (
	"fmt"
	"image/color"
	"math"
)

// Green is the overlay color for annotated frames.
var Green = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// HSV is a color in OpenCV's 8-bit HSV convention: H 0-179, S 0-255, V 0-255.
type HSV struct {
	H, S, V uint8
}

// HSVFromSlice builds an HSV from a 3-element slice, rejecting any other
// length or a component outside 0-255.
func HSVFromSlice(vals []int) (HSV, error) {
	if len(vals) != 3 {
		return HSV{}, fmt.Errorf("hsv triple must have 3 channels, got %d", len(vals))
	}
	for i, v := range vals {
		if v < 0 || v > 255 {
			return HSV{}, fmt.Errorf("hsv channel %d out of range: %d", i, v)
		}
	}
	return HSV{H: uint8(vals[0]), S: uint8(vals[1]), V: uint8(vals[2])}, nil
}

// LessOrEqual reports whether every channel of c is <= the matching channel of o.
func (c HSV) LessOrEqual(o HSV) bool {
	return c.H <= o.H && c.S <= o.S && c.V <= o.V
}

// Floats returns the channels as float64 values.
func (c HSV) Floats() (h, s, v float64) {
	return float64(c.H), float64(c.S), float64(c.V)
}

func (c HSV) String() string {
	return fmt.Sprintf("[%d %d %d]", c.H, c.S, c.V)
}

// Clamp8 clamps v into 0-255 and rounds it to the nearest integer.
func Clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}
