// Package template holds the reference leaf images used for species matching.
package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	img "plant-rover/internal/image"
)

// Template is one species' reference image, stored as packed BGR bytes so the
// store owns no OpenCV memory and can be shared freely between goroutines.
type Template struct {
	Species string
	Width   int
	Height  int
	data    []byte
}

// New builds a template from packed BGR bytes. The slice is copied.
func New(species string, width, height int, bgr []byte) (Template, error) {
	if width <= 0 || height <= 0 {
		return Template{}, fmt.Errorf("template %q: invalid size %dx%d", species, width, height)
	}
	if len(bgr) != width*height*3 {
		return Template{}, fmt.Errorf("template %q: got %d bytes, want %d", species, len(bgr), width*height*3)
	}
	data := make([]byte, len(bgr))
	copy(data, bgr)
	return Template{Species: species, Width: width, Height: height, data: data}, nil
}

// Mat returns a fresh BGR Mat holding the template. The caller owns it.
func (t Template) Mat() (gocv.Mat, error) {
	return gocv.NewMatFromBytes(t.Height, t.Width, gocv.MatTypeCV8UC3, t.data)
}

// Store is an ordered, read-only set of templates.
type Store struct {
	templates []Template
}

// NewStore builds a store. Order is kept for tie-breaks; a repeated species
// keeps its first template.
func NewStore(templates ...Template) *Store {
	s := &Store{templates: make([]Template, 0, len(templates))}
	seen := make(map[string]bool, len(templates))
	for _, t := range templates {
		if seen[t.Species] {
			continue
		}
		seen[t.Species] = true
		s.templates = append(s.templates, t)
	}
	return s
}

// Len returns the number of templates.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.templates)
}

// Templates returns the templates in store order.
func (s *Store) Templates() []Template {
	if s == nil {
		return nil
	}
	out := make([]Template, len(s.templates))
	copy(out, s.templates)
	return out
}

// Species returns the species names in store order.
func (s *Store) Species() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.templates))
	for i, t := range s.templates {
		names[i] = t.Species
	}
	return names
}

// Load reads one template per image file in dir, using the file stem as the
// species name. Files are decoded concurrently; the resulting order is the
// directory's lexical order. Unsupported or undecodable files are skipped with
// a warning. Only an unreadable directory is an error.
func Load(ctx context.Context, dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("templates")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !img.IsSupportedFormat(e.Name()) {
			log.Warn("skipping unsupported template file", zap.String("file", e.Name()))
			continue
		}
		files = append(files, e.Name())
	}

	loaded := make([]*Template, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := loadOne(filepath.Join(dir, name))
			if err != nil {
				log.Warn("skipping unreadable template", zap.String("file", name), zap.Error(err))
				return nil
			}
			loaded[i] = &t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	templates := make([]Template, 0, len(loaded))
	for _, t := range loaded {
		if t != nil {
			templates = append(templates, *t)
		}
	}

	log.Info("templates loaded", zap.Int("count", len(templates)), zap.Int("skipped", len(files)-len(templates)))
	return NewStore(templates...), nil
}

func loadOne(path string) (Template, error) {
	decoded, err := img.Load(path)
	if err != nil {
		return Template{}, err
	}
	data, w, h := img.ToBGR(decoded)
	species := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return New(species, w, h, data)
}
