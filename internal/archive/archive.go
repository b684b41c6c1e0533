// Package archive saves annotated frames and their visit records to disk.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"plant-rover/internal/leaf"
	"plant-rover/internal/telemetry"
)

// Record is the JSON sidecar written next to each captured frame.
type Record struct {
	Version   int                  `json:"version"`
	Plant     int                  `json:"plant"`
	Captured  time.Time            `json:"captured"`
	ImagePath string               `json:"image,omitempty"`
	Detection leaf.DetectionResult `json:"detection"`
	Report    telemetry.Report     `json:"report"`
}

// New creates a record for a visit.
func New(plant int, det leaf.DetectionResult, rep telemetry.Report) *Record {
	return &Record{
		Version:   1,
		Plant:     plant,
		Captured:  time.Now(),
		Detection: det,
		Report:    rep,
	}
}

// Load reads a record sidecar.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save writes the record as indented JSON.
func (r *Record) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SetImage stores imagePath relative to the record file.
func (r *Record) SetImage(recordPath, imagePath string) {
	rel, err := filepath.Rel(filepath.Dir(recordPath), imagePath)
	if err != nil {
		r.ImagePath = imagePath
	} else {
		r.ImagePath = rel
	}
}

// GetImagePath returns the absolute path to the frame.
func (r *Record) GetImagePath(recordPath string) string {
	if r.ImagePath == "" {
		return ""
	}
	if filepath.IsAbs(r.ImagePath) {
		return r.ImagePath
	}
	return filepath.Join(filepath.Dir(recordPath), r.ImagePath)
}

// Archive writes frames and records into a directory.
type Archive struct {
	dir string
}

// Open creates dir if needed.
func Open(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return &Archive{dir: dir}, nil
}

// Dir returns the archive directory.
func (a *Archive) Dir() string {
	return a.dir
}

// Save writes frame as captured_frame_<unix>.png and rec as the matching
// .json sidecar. It returns the sidecar path. Plants visited within the same
// second are told apart by a plant suffix.
func (a *Archive) Save(frame gocv.Mat, rec *Record) (string, error) {
	base := fmt.Sprintf("captured_frame_%d", rec.Captured.Unix())
	if _, err := os.Stat(filepath.Join(a.dir, base+".png")); err == nil {
		base = fmt.Sprintf("%s_p%d", base, rec.Plant)
	}
	imgPath := filepath.Join(a.dir, base+".png")
	recPath := filepath.Join(a.dir, base+".json")

	if !frame.Empty() {
		if !gocv.IMWrite(imgPath, frame) {
			return "", fmt.Errorf("archive: failed to write %s", imgPath)
		}
		rec.SetImage(recPath, imgPath)
	}
	if err := rec.Save(recPath); err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	return recPath, nil
}
