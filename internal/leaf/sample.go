package leaf

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"plant-rover/pkg/colorutil"
)

// SampleHSV returns the mean HSV color of rect in a BGR frame. It is used to
// seed a color profile from a hand-picked leaf patch.
func SampleHSV(frame gocv.Mat, rect image.Rectangle) (colorutil.HSV, error) {
	rect = rect.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if rect.Empty() {
		return colorutil.HSV{}, fmt.Errorf("sample rectangle is outside the %dx%d frame", frame.Cols(), frame.Rows())
	}

	view := frame.Region(rect)
	defer view.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(view, &hsv, gocv.ColorBGRToHSV)

	px := contiguousBytes(hsv)
	n := len(px) / 3
	var sum [3]float64
	for i := 0; i < n; i++ {
		sum[0] += float64(px[i*3])
		sum[1] += float64(px[i*3+1])
		sum[2] += float64(px[i*3+2])
	}
	return colorutil.HSV{
		H: colorutil.Clamp8(sum[0] / float64(n)),
		S: colorutil.Clamp8(sum[1] / float64(n)),
		V: colorutil.Clamp8(sum[2] / float64(n)),
	}, nil
}
