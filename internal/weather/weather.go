// Package weather fetches current conditions and the short-range rain
// forecast used by the irrigation calculator.
package weather

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"plant-rover/internal/irrigation"
)

// ErrNoAPIKey is returned when a provider needs an API key and has none.
var ErrNoAPIKey = errors.New("weather API key not configured")

// Conditions is a weather snapshot.
type Conditions struct {
	Temperature float64         `json:"temperature"`
	Humidity    float64         `json:"humidity"`
	WindSpeed   float64         `json:"wind_speed"`
	Condition   string          `json:"condition"`
	Description string          `json:"description"`
	Rain        irrigation.Rain `json:"rain"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// Source provides weather conditions.
type Source interface {
	Conditions(ctx context.Context) (Conditions, error)
}

// Static is a fixed weather snapshot, useful for bench runs without network.
type Static Conditions

// Conditions returns the snapshot.
func (s Static) Conditions(context.Context) (Conditions, error) {
	return Conditions(s), nil
}

const cacheKey = "conditions"

// Cached serves a Source's conditions from memory for ttl, so a run over many
// plants makes one upstream request.
type Cached struct {
	src   Source
	cache *cache.Cache
	log   *zap.Logger
}

// NewCached wraps src. Expired entries are checked on read; there is no
// background janitor.
func NewCached(src Source, ttl time.Duration, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{
		src:   src,
		cache: cache.New(ttl, 0),
		log:   log.Named("weather"),
	}
}

// Conditions returns cached conditions or fetches fresh ones. Fetch errors
// are not cached.
func (c *Cached) Conditions(ctx context.Context) (Conditions, error) {
	if v, ok := c.cache.Get(cacheKey); ok {
		if cond, ok := v.(Conditions); ok {
			return cond, nil
		}
	}

	cond, err := c.src.Conditions(ctx)
	if err != nil {
		return Conditions{}, err
	}
	c.cache.SetDefault(cacheKey, cond)

	c.log.Info("weather updated",
		zap.Float64("temperature", cond.Temperature),
		zap.Float64("humidity", cond.Humidity),
		zap.String("condition", cond.Condition),
		zap.Float64s("rain", cond.Rain[:]))
	return cond, nil
}

// Invalidate drops the cached snapshot.
func (c *Cached) Invalidate() {
	c.cache.Delete(cacheKey)
}
