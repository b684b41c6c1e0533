package leaf

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"plant-rover/pkg/colorutil"
)

// Label is the overlay text for a detection, e.g. "basil : 63.20%".
func Label(r DetectionResult) string {
	if r.WaterContent == nil {
		return r.Species + " : unknown"
	}
	return fmt.Sprintf("%s : %.2f%%", r.Species, *r.WaterContent)
}

// Annotate draws the detection's bounding box and label onto frame. Results
// without a leaf leave the frame untouched.
func Annotate(frame *gocv.Mat, r DetectionResult) {
	if !r.Found || r.BoundingBox.Empty() {
		return
	}
	box := r.BoundingBox.Rectangle()
	gocv.Rectangle(frame, box, colorutil.Green, 2)

	org := image.Pt(box.Min.X, box.Min.Y-10)
	if org.Y < 15 {
		org.Y = box.Min.Y + 20
	}
	gocv.PutText(frame, Label(r), org, gocv.FontHersheySimplex, 0.9, colorutil.Green, 2)
}
