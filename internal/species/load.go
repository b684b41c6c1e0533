package species

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"plant-rover/pkg/colorutil"
)

// entry is one key/value pair of a store file, in file order.
type entry struct {
	name  string
	value *yaml.Node
}

// readOrdered parses a JSON or YAML mapping keyed by species name and returns
// its entries in the order they appear in the file.
func readOrdered(path string) ([]entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStore, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidStore, path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: %s: empty file", ErrInvalidStore, path)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: expected a mapping of species names", ErrInvalidStore, path)
	}

	seen := make(map[string]bool, len(root.Content)/2)
	entries := make([]entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		if name == "" {
			return nil, fmt.Errorf("%w: %s: line %d: empty species name", ErrInvalidStore, path, root.Content[i].Line)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %s: duplicate species %q", ErrInvalidStore, path, name)
		}
		seen[name] = true
		entries = append(entries, entry{name: name, value: root.Content[i+1]})
	}
	return entries, nil
}

// LoadProfiles reads a color profile file:
//
//	{"basil": [[35, 60, 40], [85, 255, 255]], ...}
//
// Each species maps to a lower and an upper HSV triple. A wrong channel count
// or a value outside 0-255 is a configuration error. lower > upper is
// accepted; such a profile simply never matches.
func LoadProfiles(path string) (*Profiles, error) {
	entries, err := readOrdered(path)
	if err != nil {
		return nil, err
	}

	profiles := make([]ColorProfile, 0, len(entries))
	for _, e := range entries {
		var bounds [][]int
		if err := e.value.Decode(&bounds); err != nil {
			return nil, fmt.Errorf("%w: %s: species %q: %v", ErrInvalidStore, path, e.name, err)
		}
		if len(bounds) != 2 {
			return nil, fmt.Errorf("%w: %s: species %q: want [lower, upper], got %d bounds",
				ErrInvalidStore, path, e.name, len(bounds))
		}
		lower, err := colorutil.HSVFromSlice(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: species %q lower bound: %v", ErrInvalidStore, path, e.name, err)
		}
		upper, err := colorutil.HSVFromSlice(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: species %q upper bound: %v", ErrInvalidStore, path, e.name, err)
		}
		profiles = append(profiles, ColorProfile{Species: e.name, Lower: lower, Upper: upper})
	}

	return NewProfiles(profiles...)
}

// LoadWaterModels reads a water model file: {"basil": [a, b, c], ...}.
func LoadWaterModels(path string) (*WaterModels, error) {
	entries, err := readOrdered(path)
	if err != nil {
		return nil, err
	}

	models := make(map[string]WaterModel, len(entries))
	for _, e := range entries {
		var coeffs []float64
		if err := e.value.Decode(&coeffs); err != nil {
			return nil, fmt.Errorf("%w: %s: species %q: %v", ErrInvalidStore, path, e.name, err)
		}
		if len(coeffs) != 3 {
			return nil, fmt.Errorf("%w: %s: species %q: want 3 coefficients, got %d",
				ErrInvalidStore, path, e.name, len(coeffs))
		}
		models[e.name] = WaterModel{A: coeffs[0], B: coeffs[1], C: coeffs[2]}
	}

	return NewWaterModels(models)
}

// LoadTargets reads a species target file: {"basil": 70, ...}.
func LoadTargets(path string) (*Targets, error) {
	entries, err := readOrdered(path)
	if err != nil {
		return nil, err
	}

	targets := make(map[string]float64, len(entries))
	for _, e := range entries {
		var v float64
		if err := e.value.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: %s: species %q: %v", ErrInvalidStore, path, e.name, err)
		}
		targets[e.name] = v
	}

	return NewTargets(targets)
}
