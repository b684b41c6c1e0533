package leaf

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats/scalar"

	"plant-rover/internal/species"
)

// regionMask builds the region's own mask over its bounding box: pixels that
// pass the species' color range and lie inside the filled contour.
func regionMask(hsvCrop gocv.Mat, r Region) gocv.Mat {
	inRange := gocv.NewMat()
	defer inRange.Close()
	colorMask(hsvCrop, r.Profile, &inRange)

	shape := gocv.NewMatWithSize(hsvCrop.Rows(), hsvCrop.Cols(), gocv.MatTypeCV8U)
	defer shape.Close()
	shape.SetTo(gocv.NewScalar(0, 0, 0, 0))

	if len(r.Contour) > 0 {
		local := make([]image.Point, len(r.Contour))
		for i, pt := range r.Contour {
			local[i] = image.Pt(pt.X-r.Bounds.X, pt.Y-r.Bounds.Y)
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{local})
		gocv.FillPoly(&shape, pv, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		pv.Close()
	}

	mask := gocv.NewMat()
	gocv.BitwiseAnd(inRange, shape, &mask)
	return mask
}

// MeanHueSaturation returns the mean hue and saturation of the region's
// masked pixels, in OpenCV units. ok is false when the mask is empty.
func MeanHueSaturation(frame gocv.Mat, r Region) (hue, sat float64, ok bool) {
	bounds := r.Bounds.Clip(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if bounds.Empty() {
		return 0, 0, false
	}
	r.Bounds = bounds

	view := frame.Region(bounds.Rectangle())
	defer view.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(view, &hsv, gocv.ColorBGRToHSV)

	mask := regionMask(hsv, r)
	defer mask.Close()

	px := contiguousBytes(hsv)
	m := contiguousBytes(mask)

	var sumH, sumS float64
	var n int
	for i, on := range m {
		if on == 0 {
			continue
		}
		sumH += float64(px[i*3])
		sumS += float64(px[i*3+1])
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return sumH / float64(n), sumS / float64(n), true
}

// EstimateWaterContent applies the species' water model to the region's mean
// hue and saturation. It returns nil when the species has no model or the
// region has no masked pixels.
func EstimateWaterContent(frame gocv.Mat, r Region, name string, models *species.WaterModels) *float64 {
	model, ok := models.Get(name)
	if !ok {
		return nil
	}
	hue, sat, ok := MeanHueSaturation(frame, r)
	if !ok {
		return nil
	}
	water := scalar.Round(model.Apply(scalar.Round(hue, 2), scalar.Round(sat, 2)), 2)
	return &water
}
