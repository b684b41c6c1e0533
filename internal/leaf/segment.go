package leaf

import (
	"errors"

	"gocv.io/x/gocv"

	"plant-rover/internal/species"
	"plant-rover/pkg/geometry"
)

// ErrEmptyFrame is returned when a frame has no pixels.
var ErrEmptyFrame = errors.New("empty frame")

// hsvBounds returns the InRange scalars for a profile.
func hsvBounds(p species.ColorProfile) (lower, upper gocv.Scalar) {
	lh, ls, lv := p.Lower.Floats()
	uh, us, uv := p.Upper.Floats()
	return gocv.NewScalar(lh, ls, lv, 0), gocv.NewScalar(uh, us, uv, 0)
}

// colorMask writes the profile's InRange mask of an HSV image into dst.
func colorMask(hsv gocv.Mat, p species.ColorProfile, dst *gocv.Mat) {
	lower, upper := hsvBounds(p)
	gocv.InRangeWithScalar(hsv, lower, upper, dst)
}

// Segment finds candidate leaf regions for every profile. The returned map
// has an entry for each profile; a species with no qualifying contour maps
// to an empty slice. A profile whose lower bound exceeds its upper bound in
// any channel never matches.
func Segment(frame gocv.Mat, profiles *species.Profiles, params Params) (map[string][]Region, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()

	out := make(map[string][]Region, profiles.Len())
	for _, p := range profiles.All() {
		out[p.Species] = []Region{}
		if !p.Matchable() {
			continue
		}

		colorMask(hsv, p, &mask)
		if gocv.CountNonZero(mask) == 0 {
			continue
		}

		contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
		for i := 0; i < contours.Size(); i++ {
			c := contours.At(i)
			area := gocv.ContourArea(c)
			if area < params.MinContourArea {
				continue
			}
			out[p.Species] = append(out[p.Species], Region{
				Species: p.Species,
				Profile: p,
				Contour: c.ToPoints(),
				Bounds:  geometry.FromRectangle(gocv.BoundingRect(c)),
				Area:    area,
			})
		}
		contours.Close()
	}
	return out, nil
}

// Select returns the largest region across all species. Species are visited
// in order, and within a species in contour order; on equal areas the first
// region seen wins. ok is false when there are no regions.
func Select(regions map[string][]Region, order []string) (best Region, ok bool) {
	for _, name := range order {
		for _, r := range regions[name] {
			if !ok || r.Area > best.Area {
				best, ok = r, true
			}
		}
	}
	return best, ok
}
