// Package camera captures frames for the leaf detector.
package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gocv.io/x/gocv"

	img "plant-rover/internal/image"
)

// ErrNoFrame is returned when the device produced no image.
var ErrNoFrame = errors.New("camera returned no frame")

// Config selects and tunes the capture source.
type Config struct {
	// Device is a camera index ("0") or a video/stream URL.
	Device string `mapstructure:"device"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	// Frames read and discarded before each capture so exposure settles.
	Warmup int `mapstructure:"warmup"`
	// Replay, if set, is a directory of still images used instead of a device.
	Replay string `mapstructure:"replay"`
}

// Device reads frames from an OpenCV video source.
type Device struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	warmup int
	closed bool
}

// Open opens the configured device.
func Open(cfg Config) (*Device, error) {
	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %q: %w", cfg.Device, err)
	}
	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	return &Device{vc: vc, warmup: cfg.Warmup}, nil
}

type frameResult struct {
	mat gocv.Mat
	err error
}

// Capture returns the next frame. The caller owns the Mat. If ctx ends first
// the read is abandoned and its frame released when it completes.
func (d *Device) Capture(ctx context.Context) (gocv.Mat, error) {
	return awaitFrame(ctx, d.read, func(m gocv.Mat) { m.Close() })
}

// awaitFrame runs read in the background. A frame that arrives after ctx
// ended goes to release, whether or not the read failed.
func awaitFrame(ctx context.Context, read func() frameResult, release func(gocv.Mat)) (gocv.Mat, error) {
	ch := make(chan frameResult, 1)
	go func() {
		ch <- read()
	}()

	select {
	case r := <-ch:
		return r.mat, r.err
	case <-ctx.Done():
		go func() {
			release((<-ch).mat)
		}()
		return gocv.NewMat(), ctx.Err()
	}
}

func (d *Device) read() frameResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return frameResult{gocv.NewMat(), errors.New("camera closed")}
	}

	m := gocv.NewMat()
	for i := 0; i <= d.warmup; i++ {
		if !d.vc.Read(&m) {
			m.Close()
			return frameResult{gocv.NewMat(), ErrNoFrame}
		}
	}
	if m.Empty() {
		m.Close()
		return frameResult{gocv.NewMat(), ErrNoFrame}
	}
	return frameResult{mat: m}
}

// Close releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.vc.Close()
}

// Replay serves still images from disk in name order, cycling when it runs
// out. It stands in for the camera on the bench.
type Replay struct {
	mu    sync.Mutex
	files []string
	next  int
}

// NewReplay lists the supported images in dir.
func NewReplay(dir string) (*Replay, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && img.IsSupportedFormat(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("replay: no images in %s", dir)
	}
	sort.Strings(files)
	return &Replay{files: files}, nil
}

// Still always serves the same image.
func Still(path string) *Replay {
	return &Replay{files: []string{path}}
}

// Capture implements rover.Camera.
func (r *Replay) Capture(ctx context.Context) (gocv.Mat, error) {
	if err := ctx.Err(); err != nil {
		return gocv.NewMat(), err
	}
	r.mu.Lock()
	path := r.files[r.next%len(r.files)]
	r.next++
	r.mu.Unlock()

	return img.LoadMat(path)
}
