package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultEndpoint is the OpenWeatherMap API base URL.
const DefaultEndpoint = "https://api.openweathermap.org/data/2.5"

// OpenWeatherConfig configures the OpenWeatherMap client. Either City or
// both Latitude and Longitude must be set.
type OpenWeatherConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Endpoint  string        `mapstructure:"endpoint"`
	City      string        `mapstructure:"city"`
	Latitude  float64       `mapstructure:"latitude"`
	Longitude float64       `mapstructure:"longitude"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// OpenWeather reads current weather and the 3-hourly forecast.
type OpenWeather struct {
	cfg    OpenWeatherConfig
	client *http.Client
}

// NewOpenWeather creates a client.
func NewOpenWeather(cfg OpenWeatherConfig) (*OpenWeather, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.City == "" && cfg.Latitude == 0 && cfg.Longitude == 0 {
		return nil, fmt.Errorf("openweather: city or coordinates required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &OpenWeather{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

type currentResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Rain struct {
			ThreeHour float64 `json:"3h"`
		} `json:"rain"`
	} `json:"list"`
}

// Conditions fetches current weather and the rain forecast for the next
// four 3-hour buckets. Missing rain data counts as 0 mm.
func (o *OpenWeather) Conditions(ctx context.Context) (Conditions, error) {
	var cur currentResponse
	if err := o.get(ctx, "weather", &cur); err != nil {
		return Conditions{}, err
	}
	if len(cur.Weather) == 0 {
		return Conditions{}, fmt.Errorf("openweather: no weather conditions in response")
	}

	var fc forecastResponse
	if err := o.get(ctx, "forecast", &fc); err != nil {
		return Conditions{}, err
	}

	cond := Conditions{
		Temperature: cur.Main.Temp,
		Humidity:    cur.Main.Humidity,
		WindSpeed:   cur.Wind.Speed,
		Condition:   cur.Weather[0].Main,
		Description: cur.Weather[0].Description,
		FetchedAt:   time.Now(),
	}
	for i := 0; i < len(cond.Rain) && i < len(fc.List); i++ {
		cond.Rain[i] = fc.List[i].Rain.ThreeHour
	}
	return cond, nil
}

func (o *OpenWeather) get(ctx context.Context, path string, out any) error {
	q := url.Values{}
	q.Set("appid", o.cfg.APIKey)
	q.Set("units", "metric")
	if o.cfg.City != "" {
		q.Set("q", o.cfg.City)
	} else {
		q.Set("lat", strconv.FormatFloat(o.cfg.Latitude, 'f', 3, 64))
		q.Set("lon", strconv.FormatFloat(o.cfg.Longitude, 'f', 3, 64))
	}

	u := o.cfg.Endpoint + "/" + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("openweather: creating request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("openweather %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openweather %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openweather %s: reading body: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("openweather %s: decoding body: %w", path, err)
	}
	return nil
}
