package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// secret maps a config key to the plain environment variable holding it.
type secret struct {
	ConfigKey string
	EnvVar    string
}

var secrets = []secret{
	{"weather.api_key", "OPENWEATHER_API_KEY"},
	{"blynk.token", "BLYNK_AUTH_TOKEN"},
	{"mqtt.password", "MQTT_PASSWORD"},
}

// loadDotEnv loads envFile into the process environment. A missing file is
// not an error.
func loadDotEnv(envFile string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return nil
}

// bindSecrets binds each secret to both its plain name and its ROVER_* name.
// The plain name takes precedence.
func bindSecrets(v *viper.Viper) error {
	for _, s := range secrets {
		if err := v.BindEnv(s.ConfigKey, s.EnvVar, envName(s.ConfigKey)); err != nil {
			return fmt.Errorf("failed to bind %s: %w", s.EnvVar, err)
		}
	}
	return nil
}

func envName(key string) string {
	return "ROVER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
