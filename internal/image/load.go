// Package image provides image decoding and conversion to OpenCV frames.
package image

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Load decodes the image at path.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// ToBGR converts an image to a packed 8-bit BGR buffer, row-major, the
// layout OpenCV uses for CV_8UC3.
func ToBGR(img image.Image) (data []byte, width, height int) {
	bounds := img.Bounds()
	width, height = bounds.Dx(), bounds.Dy()
	data = make([]byte, width*height*3)

	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// 16-bit to 8-bit, BGR order for OpenCV
			data[i+0] = uint8(b >> 8)
			data[i+1] = uint8(g >> 8)
			data[i+2] = uint8(r >> 8)
			i += 3
		}
	}
	return data, width, height
}

// ToMat converts a Go image to a BGR gocv.Mat. The caller owns the Mat.
func ToMat(img image.Image) (gocv.Mat, error) {
	data, w, h := ToBGR(img)
	if w == 0 || h == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, data)
}

// LoadMat decodes the image at path straight into a BGR gocv.Mat.
func LoadMat(path string) (gocv.Mat, error) {
	img, err := Load(path)
	if err != nil {
		return gocv.NewMat(), err
	}
	return ToMat(img)
}

// SupportedFormats returns the list of supported image file extensions.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
