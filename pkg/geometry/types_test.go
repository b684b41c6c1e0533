package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectIntRoundTrip(t *testing.T) {
	r := FromRectangle(image.Rect(10, 20, 40, 60))
	assert.Equal(t, RectInt{X: 10, Y: 20, Width: 30, Height: 40}, r)
	assert.Equal(t, image.Rect(10, 20, 40, 60), r.Rectangle())
	assert.Equal(t, 1200, r.Area())
	assert.False(t, r.Empty())
}

func TestRectIntClip(t *testing.T) {
	r := RectInt{X: -5, Y: -5, Width: 20, Height: 20}
	clipped := r.Clip(image.Rect(0, 0, 10, 10))
	assert.Equal(t, RectInt{X: 0, Y: 0, Width: 10, Height: 10}, clipped)

	outside := RectInt{X: 50, Y: 50, Width: 5, Height: 5}.Clip(image.Rect(0, 0, 10, 10))
	assert.True(t, outside.Empty())
}
