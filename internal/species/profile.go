// Package species holds the per-species calibration stores: HSV color
// profiles, water-content models and irrigation targets.
//
// Stores are immutable once built. Loaders return fresh values and callers
// share them by pointer; nothing in this package mutates a store after
// construction.
package species

import (
	"errors"
	"fmt"

	"plant-rover/pkg/colorutil"
)

// ErrInvalidStore is wrapped by every store loading or construction failure.
var ErrInvalidStore = errors.New("invalid species store")

// ColorProfile is the HSV range that segments one species' leaves.
type ColorProfile struct {
	Species string
	Lower   colorutil.HSV
	Upper   colorutil.HSV
}

// Matchable reports whether Lower <= Upper in every channel. A profile that
// is not matchable never produces regions.
func (p ColorProfile) Matchable() bool {
	return p.Lower.LessOrEqual(p.Upper)
}

// Profiles is an ordered, read-only set of color profiles. Order is the order
// the profiles were declared in and is used for every tie-break.
type Profiles struct {
	list  []ColorProfile
	index map[string]int
}

// NewProfiles builds a profile set. Species names must be unique and non-empty.
func NewProfiles(profiles ...ColorProfile) (*Profiles, error) {
	p := &Profiles{
		list:  make([]ColorProfile, 0, len(profiles)),
		index: make(map[string]int, len(profiles)),
	}
	for _, prof := range profiles {
		if prof.Species == "" {
			return nil, fmt.Errorf("%w: empty species name", ErrInvalidStore)
		}
		if _, dup := p.index[prof.Species]; dup {
			return nil, fmt.Errorf("%w: duplicate species %q", ErrInvalidStore, prof.Species)
		}
		p.index[prof.Species] = len(p.list)
		p.list = append(p.list, prof)
	}
	return p, nil
}

// Len returns the number of profiles.
func (p *Profiles) Len() int {
	if p == nil {
		return 0
	}
	return len(p.list)
}

// All returns the profiles in declaration order. The slice is a copy.
func (p *Profiles) All() []ColorProfile {
	if p == nil {
		return nil
	}
	out := make([]ColorProfile, len(p.list))
	copy(out, p.list)
	return out
}

// Order returns the species names in declaration order.
func (p *Profiles) Order() []string {
	if p == nil {
		return nil
	}
	names := make([]string, len(p.list))
	for i, prof := range p.list {
		names[i] = prof.Species
	}
	return names
}

// Get returns the profile for a species.
func (p *Profiles) Get(species string) (ColorProfile, bool) {
	if p == nil {
		return ColorProfile{}, false
	}
	i, ok := p.index[species]
	if !ok {
		return ColorProfile{}, false
	}
	return p.list[i], true
}
