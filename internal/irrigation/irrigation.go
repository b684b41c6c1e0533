// Package irrigation turns leaf, soil and weather readings into an amount of
// water to give a plant.
package irrigation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

var (
	// ErrWaterContentUnknown is returned when the leaf water content could not
	// be estimated. Callers must skip irrigation rather than assume a value.
	ErrWaterContentUnknown = errors.New("leaf water content unknown")

	// ErrInvalidInput is returned for non-finite or out-of-range readings.
	ErrInvalidInput = errors.New("invalid irrigation input")

	// ErrInvalidParams is returned by Validate.
	ErrInvalidParams = errors.New("invalid irrigation parameters")
)

// Horizons are the rain forecast horizons in hours, in Rain index order.
var Horizons = [4]int{3, 6, 9, 12}

// Rain holds rainfall in mm for the 3h, 6h, 9h and 12h horizons.
type Rain [4]float64

// Params are the tunable factors of the irrigation formula.
type Params struct {
	// Decay per horizon. Later rain is discounted more in hot, dry weather.
	Decay          [4]float64 `mapstructure:"decay"`
	MoistureFactor float64    `mapstructure:"moisture_factor"`
	TempFactor     float64    `mapstructure:"temp_factor"`
	HumidityFactor float64    `mapstructure:"humidity_factor"`
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		Decay:          [4]float64{0.25, 0.5, 0.75, 1.0},
		MoistureFactor: 0.5,
		TempFactor:     1.0,
		HumidityFactor: 0.5,
	}
}

// Validate checks that all factors are finite and non-negative and that the
// decays do not decrease with the horizon.
func (p Params) Validate() error {
	vals := append(p.Decay[:], p.MoistureFactor, p.TempFactor, p.HumidityFactor)
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: factors must be finite and non-negative", ErrInvalidParams)
		}
	}
	for i := 1; i < len(p.Decay); i++ {
		if p.Decay[i] < p.Decay[i-1] {
			return fmt.Errorf("%w: decay must not decrease with horizon", ErrInvalidParams)
		}
	}
	return nil
}

// Inputs are everything the calculator needs for one plant.
type Inputs struct {
	Species string

	// Soil moisture, percent.
	Moisture float64

	// Temperature in °C and relative humidity in percent.
	Temperature float64
	Humidity    float64

	Rain Rain

	// Leaf water content in percent; nil when it could not be estimated.
	WaterContent *float64

	// Baseline water target for the species, percent.
	Target float64
}

func (in Inputs) validate() error {
	if in.WaterContent == nil {
		return ErrWaterContentUnknown
	}
	check := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidInput, name)
		}
		return nil
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"moisture", in.Moisture},
		{"temperature", in.Temperature},
		{"humidity", in.Humidity},
		{"water content", *in.WaterContent},
		{"target", in.Target},
	} {
		if err := check(f.name, f.v); err != nil {
			return err
		}
	}
	for i, r := range in.Rain {
		if err := check(fmt.Sprintf("rain %dh", Horizons[i]), r); err != nil {
			return err
		}
		if r < 0 {
			return fmt.Errorf("%w: rain %dh is negative", ErrInvalidInput, Horizons[i])
		}
	}
	if in.Moisture < 0 || in.Moisture > 100 {
		return fmt.Errorf("%w: moisture %.2f outside 0-100", ErrInvalidInput, in.Moisture)
	}
	if in.Humidity < 0 || in.Humidity > 100 {
		return fmt.Errorf("%w: humidity %.2f outside 0-100", ErrInvalidInput, in.Humidity)
	}
	return nil
}

// Calculator computes irrigation amounts.
type Calculator struct {
	params Params
}

// NewCalculator validates params and returns a calculator.
func NewCalculator(params Params) (*Calculator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{params: params}, nil
}

// Params returns the calculator's parameters.
func (c *Calculator) Params() Params {
	return c.params
}

// RainWeights returns the per-horizon weights max(0, 1 - T*decay/(H+1)).
func (c *Calculator) RainWeights(temperature, humidity float64) [4]float64 {
	var w [4]float64
	for i, d := range c.params.Decay {
		w[i] = math.Max(0, 1-temperature*d/(humidity+1))
	}
	return w
}

// EffectiveRainfall is the decay-weighted sum of the forecast rain.
func (c *Calculator) EffectiveRainfall(temperature, humidity float64, rain Rain) float64 {
	w := c.RainWeights(temperature, humidity)
	return floats.Dot(w[:], rain[:])
}

// Evapotranspiration is T*temp_factor - H*humidity_factor. It is negative in
// cold, humid weather, which raises the amount.
func (c *Calculator) Evapotranspiration(temperature, humidity float64) float64 {
	return temperature*c.params.TempFactor - humidity*c.params.HumidityFactor
}

// Compute returns max(0, target - (R + M) + E) rounded to two decimals, where
// R is the effective rainfall, M the weighted soil moisture and E the
// evapotranspiration term.
func (c *Calculator) Compute(in Inputs) (float64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}

	r := c.EffectiveRainfall(in.Temperature, in.Humidity, in.Rain)
	m := in.Moisture * c.params.MoistureFactor
	e := c.Evapotranspiration(in.Temperature, in.Humidity)

	amount := math.Max(0, in.Target-(r+m)+e)
	return scalar.Round(amount, 2), nil
}
