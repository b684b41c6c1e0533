// Package conf loads the rover configuration from a YAML file, ROVER_*
// environment variables and a .env file of secrets.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"plant-rover/internal/camera"
	"plant-rover/internal/irrigation"
	"plant-rover/internal/leaf"
	"plant-rover/internal/mqtt"
	"plant-rover/internal/rover"
	"plant-rover/internal/sensor"
	"plant-rover/internal/species"
	"plant-rover/internal/telemetry"
	"plant-rover/internal/weather"
)

// Sources for moisture readings and weather.
const (
	SensorMQTT  = "mqtt"
	SensorFixed = "fixed"

	WeatherOpenWeather = "openweather"
	WeatherStatic      = "static"
)

type Config struct {
	Log        LogConfig             `mapstructure:"log"`
	Stores     StoresConfig          `mapstructure:"stores"`
	Detection  leaf.Params           `mapstructure:"detection"`
	Irrigation irrigation.Params     `mapstructure:"irrigation"`
	Rover      rover.Options         `mapstructure:"rover"`
	Camera     camera.Config         `mapstructure:"camera"`
	Sensor     SensorConfig          `mapstructure:"sensor"`
	Weather    WeatherConfig         `mapstructure:"weather"`
	Blynk      telemetry.BlynkConfig `mapstructure:"blynk"`
	MQTT       mqtt.Config           `mapstructure:"mqtt"`
	Pump       PumpConfig            `mapstructure:"pump"`
	Metrics    MetricsConfig         `mapstructure:"metrics"`
	Archive    ArchiveConfig         `mapstructure:"archive"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

type StoresConfig struct {
	species.Paths `mapstructure:",squash"`

	// Zero disables reloading.
	ReloadInterval time.Duration `mapstructure:"reload_interval"`
}

type SensorConfig struct {
	Source string            `mapstructure:"source"`
	Fixed  float64           `mapstructure:"fixed"`
	MQTT   sensor.MQTTConfig `mapstructure:"mqtt"`
}

type WeatherConfig struct {
	weather.OpenWeatherConfig `mapstructure:",squash"`

	Provider string        `mapstructure:"provider"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Static   StaticWeather `mapstructure:"static"`
}

// StaticWeather is used when no weather service is configured.
type StaticWeather struct {
	Temperature float64    `mapstructure:"temperature"`
	Humidity    float64    `mapstructure:"humidity"`
	Rain        [4]float64 `mapstructure:"rain"`
}

// Conditions converts the static section into a weather source.
func (s StaticWeather) Conditions() weather.Static {
	return weather.Static{
		Temperature: s.Temperature,
		Humidity:    s.Humidity,
		Rain:        irrigation.Rain(s.Rain),
	}
}

type PumpConfig struct {
	DryRun bool   `mapstructure:"dry_run"`
	Topic  string `mapstructure:"topic"`
	QoS    byte   `mapstructure:"qos"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// Load reads and validates the configuration.
func Load(configPath, envFile string) (*Config, error) {
	cfg, err := Read(configPath, envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Read reads configPath (optional) over the defaults, then applies ROVER_*
// environment overrides and the secrets in envFile (optional). Variables
// already set in the environment win over the .env file. The result is not
// validated.
func Read(configPath, envFile string) (*Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("ROVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindSecrets(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-section consistency. Collaborator constructors
// validate their own sections again when they are built.
func (c *Config) Validate() error {
	var errs []error

	if c.Rover.Plants <= 0 {
		errs = append(errs, fmt.Errorf("rover.plants must be positive, got %d", c.Rover.Plants))
	}
	if err := c.Irrigation.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Detection.MinContourArea < 0 {
		errs = append(errs, errors.New("detection.min_contour_area must not be negative"))
	}

	switch c.Sensor.Source {
	case SensorFixed:
		if c.Sensor.Fixed < 0 || c.Sensor.Fixed > 100 {
			errs = append(errs, fmt.Errorf("sensor.fixed must be within 0..100, got %g", c.Sensor.Fixed))
		}
	case SensorMQTT:
		if !c.MQTT.Enabled {
			errs = append(errs, errors.New("sensor.source mqtt requires mqtt.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sensor.source %q", c.Sensor.Source))
	}

	switch c.Weather.Provider {
	case WeatherOpenWeather:
		if c.Weather.APIKey == "" {
			errs = append(errs, errors.New("weather.provider openweather requires OPENWEATHER_API_KEY"))
		}
	case WeatherStatic:
	default:
		errs = append(errs, fmt.Errorf("unknown weather.provider %q", c.Weather.Provider))
	}

	if !c.Pump.DryRun && !c.MQTT.Enabled {
		errs = append(errs, errors.New("pump requires mqtt.enabled unless pump.dry_run is set"))
	}
	if c.Blynk.Enabled && c.Blynk.Token == "" {
		errs = append(errs, errors.New("blynk.enabled requires BLYNK_AUTH_TOKEN"))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.enabled requires mqtt.broker"))
	}
	if c.Archive.Enabled && c.Archive.Dir == "" {
		errs = append(errs, errors.New("archive.enabled requires archive.dir"))
	}

	return errors.Join(errs...)
}
