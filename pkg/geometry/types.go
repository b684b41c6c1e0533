// Package geometry provides basic geometric types used throughout the application.
package geometry

import "image"

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromRectangle converts an image.Rectangle to a RectInt.
func FromRectangle(r image.Rectangle) RectInt {
	r = r.Canon()
	return RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rectangle converts back to an image.Rectangle.
func (r RectInt) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Area returns Width*Height.
func (r RectInt) Area() int {
	return r.Width * r.Height
}

// Empty reports whether the rectangle has no area.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Clip returns r clipped to bounds.
func (r RectInt) Clip(bounds image.Rectangle) RectInt {
	return FromRectangle(r.Rectangle().Intersect(bounds))
}
