package species

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// WriteProfiles writes profiles in order, in the format LoadProfiles reads.
func WriteProfiles(path string, profiles []ColorProfile) error {
	names := make([]string, len(profiles))
	values := make([]any, len(profiles))
	for i, p := range profiles {
		names[i] = p.Species
		values[i] = [2][3]int{
			{int(p.Lower.H), int(p.Lower.S), int(p.Lower.V)},
			{int(p.Upper.H), int(p.Upper.S), int(p.Upper.V)},
		}
	}
	return writeOrdered(path, names, values)
}

// WriteWaterModels writes models sorted by species name, in the format
// LoadWaterModels reads.
func WriteWaterModels(path string, models map[string]WaterModel) error {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]any, len(names))
	for i, name := range names {
		m := models[name]
		values[i] = [3]float64{m.A, m.B, m.C}
	}
	return writeOrdered(path, names, values)
}

// writeOrdered writes a JSON object with one species per line. encoding/json
// sorts map keys, so the object is assembled by hand to keep names in order.
func writeOrdered(path string, names []string, values []any) error {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, name := range names {
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		val, err := json.Marshal(values[i])
		if err != nil {
			return fmt.Errorf("species %q: %w", name, err)
		}
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
	}
	buf.WriteString("\n}\n")

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
