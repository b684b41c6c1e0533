package species

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"plant-rover/internal/template"
)

// Paths locates the four calibration stores on disk.
type Paths struct {
	Profiles    string `mapstructure:"profiles"`
	WaterModels string `mapstructure:"water_models"`
	Targets     string `mapstructure:"targets"`
	Templates   string `mapstructure:"templates"`
}

// Catalog bundles every per-species store the detection and irrigation
// pipelines read. A Catalog is never mutated; reloads build a new one.
type Catalog struct {
	Profiles  *Profiles
	Water     *WaterModels
	Targets   *Targets
	Templates *template.Store
	LoadedAt  time.Time
}

// LoadCatalog reads all stores. Any store failing to load fails the whole
// catalog. Species that are only partially configured are logged but kept.
func LoadCatalog(ctx context.Context, paths Paths, log *zap.Logger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}

	profiles, err := LoadProfiles(paths.Profiles)
	if err != nil {
		return nil, fmt.Errorf("color profiles: %w", err)
	}
	water, err := LoadWaterModels(paths.WaterModels)
	if err != nil {
		return nil, fmt.Errorf("water models: %w", err)
	}
	targets, err := LoadTargets(paths.Targets)
	if err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}
	templates, err := template.Load(ctx, paths.Templates, log)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}

	cat := &Catalog{
		Profiles:  profiles,
		Water:     water,
		Targets:   targets,
		Templates: templates,
		LoadedAt:  time.Now(),
	}
	cat.warnIncomplete(log)

	log.Info("species catalog loaded",
		zap.Int("profiles", profiles.Len()),
		zap.Int("water_models", water.Len()),
		zap.Int("targets", targets.Len()),
		zap.Int("templates", templates.Len()))
	return cat, nil
}

func (c *Catalog) warnIncomplete(log *zap.Logger) {
	hasTemplate := make(map[string]bool, c.Templates.Len())
	for _, name := range c.Templates.Species() {
		hasTemplate[name] = true
	}
	for _, name := range c.Profiles.Order() {
		var missing []string
		if !hasTemplate[name] {
			missing = append(missing, "template")
		}
		if _, ok := c.Water.Get(name); !ok {
			missing = append(missing, "water_model")
		}
		if _, ok := c.Targets.Lookup(name); !ok {
			missing = append(missing, "target")
		}
		if len(missing) > 0 {
			log.Warn("species is partially configured", zap.String("species", name), zap.Strings("missing", missing))
		}
	}
}
