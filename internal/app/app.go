// Package app assembles the rover's collaborators from configuration and
// owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"plant-rover/internal/archive"
	"plant-rover/internal/camera"
	"plant-rover/internal/conf"
	"plant-rover/internal/irrigation"
	"plant-rover/internal/leaf"
	"plant-rover/internal/metrics"
	"plant-rover/internal/mqtt"
	"plant-rover/internal/pump"
	"plant-rover/internal/rover"
	"plant-rover/internal/sensor"
	"plant-rover/internal/species"
	"plant-rover/internal/telemetry"
	"plant-rover/internal/weather"
)

// App holds everything a run needs. Close releases it in reverse order.
type App struct {
	Config   *conf.Config
	Log      *zap.Logger
	Catalog  *species.Holder
	Watcher  *species.Watcher
	Detector *leaf.Detector
	Metrics  *metrics.Metrics
	Rover    *rover.Rover

	closers []func()
}

// LoadCatalog loads the species stores named in cfg.
func LoadCatalog(ctx context.Context, cfg *conf.Config, log *zap.Logger) (*species.Holder, error) {
	cat, err := species.LoadCatalog(ctx, cfg.Stores.Paths, log)
	if err != nil {
		return nil, err
	}
	return species.NewHolder(cat), nil
}

// New builds the rover and its collaborators. Optional pieces (MQTT, Blynk,
// archive, metrics, store reload) are only built when enabled. On error
// anything already opened is closed.
func New(ctx context.Context, cfg *conf.Config, log *zap.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.Catalog, err = LoadCatalog(ctx, cfg, log); err != nil {
		return nil, err
	}
	if cfg.Stores.ReloadInterval > 0 {
		a.Watcher = species.NewWatcher(cfg.Stores.Paths, a.Catalog, cfg.Stores.ReloadInterval, log)
	}

	if cfg.Metrics.Enabled {
		if a.Metrics, err = metrics.New(); err != nil {
			return nil, err
		}
	}

	a.Detector = leaf.NewDetector(cfg.Detection, leaf.TemplateMatcher{}, log)
	calc, err := irrigation.NewCalculator(cfg.Irrigation)
	if err != nil {
		return nil, err
	}

	var client paho.Client
	if cfg.MQTT.Enabled {
		cctx, cancel := context.WithTimeout(ctx, cfg.MQTT.ConnectTimeout)
		client, err = mqtt.Connect(cctx, cfg.MQTT, log)
		cancel()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { mqtt.Disconnect(client) })
	}

	cam, err := a.camera()
	if err != nil {
		return nil, err
	}
	ws, err := weatherSource(cfg, log)
	if err != nil {
		return nil, err
	}

	deps := rover.Deps{
		Camera:     cam,
		Moisture:   moistureSensor(cfg, client, log),
		Weather:    ws,
		Pump:       waterPump(cfg, client, log),
		Catalog:    a.Catalog,
		Detector:   a.Detector,
		Calculator: calc,
		Metrics:    a.Metrics,
		Log:        log,
	}
	if deps.Publisher, err = publishers(cfg, client, log); err != nil {
		return nil, err
	}
	if cfg.Archive.Enabled {
		arc, err := archive.Open(cfg.Archive.Dir)
		if err != nil {
			return nil, err
		}
		deps.Archive = arc
	}

	if a.Rover, err = rover.New(deps, cfg.Rover); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) camera() (rover.Camera, error) {
	if a.Config.Camera.Replay != "" {
		a.Log.Info("replaying stills", zap.String("dir", a.Config.Camera.Replay))
		return camera.NewReplay(a.Config.Camera.Replay)
	}
	dev, err := camera.Open(a.Config.Camera)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := dev.Close(); err != nil {
			a.Log.Warn("failed to close camera", zap.Error(err))
		}
	})
	return dev, nil
}

func moistureSensor(cfg *conf.Config, client paho.Client, log *zap.Logger) rover.MoistureSensor {
	if cfg.Sensor.Source == conf.SensorMQTT && client != nil {
		return sensor.NewMQTTMoisture(client, cfg.Sensor.MQTT, log)
	}
	return sensor.Fixed(cfg.Sensor.Fixed)
}

func weatherSource(cfg *conf.Config, log *zap.Logger) (rover.WeatherSource, error) {
	switch cfg.Weather.Provider {
	case conf.WeatherOpenWeather:
		ow, err := weather.NewOpenWeather(cfg.Weather.OpenWeatherConfig)
		if err != nil {
			return nil, err
		}
		return weather.NewCached(ow, cfg.Weather.CacheTTL, log), nil
	case conf.WeatherStatic:
		return cfg.Weather.Static.Conditions(), nil
	}
	return nil, fmt.Errorf("unknown weather provider %q", cfg.Weather.Provider)
}

func waterPump(cfg *conf.Config, client paho.Client, log *zap.Logger) rover.Pump {
	if cfg.Pump.DryRun || client == nil {
		return pump.DryRun{Log: log}
	}
	return pump.NewMQTTPump(client, cfg.Pump.Topic, cfg.Pump.QoS, log)
}

func publishers(cfg *conf.Config, client paho.Client, log *zap.Logger) (telemetry.Publisher, error) {
	var pubs telemetry.Multi
	if cfg.Blynk.Enabled {
		b, err := telemetry.NewBlynk(cfg.Blynk, log)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, b)
	}
	if client != nil {
		pubs = append(pubs, telemetry.NewMQTTPublisher(client, cfg.MQTT.Topic("report"), cfg.MQTT.QoS))
	}
	if len(pubs) == 0 {
		return telemetry.Nop{}, nil
	}
	return pubs, nil
}

// ServeMetrics serves /metrics until ctx ends. It does nothing when metrics
// are disabled.
func (a *App) ServeMetrics(ctx context.Context) error {
	if a.Metrics == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	srv := &http.Server{
		Addr:              a.Config.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("metrics listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close stops the watcher and releases devices and connections.
func (a *App) Close() {
	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
