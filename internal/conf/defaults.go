package conf

import (
	"time"

	"github.com/spf13/viper"

	"plant-rover/internal/irrigation"
	"plant-rover/internal/leaf"
	"plant-rover/internal/logger"
	"plant-rover/internal/weather"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.mode", logger.ModeRelease)
	v.SetDefault("log.level", "")

	v.SetDefault("stores.profiles", "config/hsv.json")
	v.SetDefault("stores.water_models", "config/water_models.json")
	v.SetDefault("stores.targets", "config/targets.json")
	v.SetDefault("stores.templates", "templates")
	v.SetDefault("stores.reload_interval", 10*time.Second)

	det := leaf.DefaultParams()
	v.SetDefault("detection.min_contour_area", det.MinContourArea)
	v.SetDefault("detection.annotate", det.Annotate)

	irr := irrigation.DefaultParams()
	v.SetDefault("irrigation.decay", irr.Decay[:])
	v.SetDefault("irrigation.moisture_factor", irr.MoistureFactor)
	v.SetDefault("irrigation.temp_factor", irr.TempFactor)
	v.SetDefault("irrigation.humidity_factor", irr.HumidityFactor)

	v.SetDefault("rover.plants", 1)
	v.SetDefault("rover.visit_timeout", 30*time.Second)

	v.SetDefault("camera.device", "0")
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.warmup", 5)
	v.SetDefault("camera.replay", "")

	v.SetDefault("sensor.source", SensorMQTT)
	v.SetDefault("sensor.fixed", 50.0)
	v.SetDefault("sensor.mqtt.topic", "rover/moisture")
	v.SetDefault("sensor.mqtt.request_topic", "rover/moisture/read")
	v.SetDefault("sensor.mqtt.qos", 1)

	v.SetDefault("weather.provider", WeatherOpenWeather)
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.endpoint", weather.DefaultEndpoint)
	v.SetDefault("weather.city", "")
	v.SetDefault("weather.latitude", 0.0)
	v.SetDefault("weather.longitude", 0.0)
	v.SetDefault("weather.timeout", 10*time.Second)
	v.SetDefault("weather.cache_ttl", 30*time.Minute)
	v.SetDefault("weather.static.temperature", 20.0)
	v.SetDefault("weather.static.humidity", 50.0)
	v.SetDefault("weather.static.rain", []float64{0, 0, 0, 0})

	v.SetDefault("blynk.enabled", false)
	v.SetDefault("blynk.server", "blynk.cloud")
	v.SetDefault("blynk.token", "")
	v.SetDefault("blynk.timeout", 10*time.Second)

	v.SetDefault("mqtt.enabled", true)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "plant-rover")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "rover")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connect_timeout", 10*time.Second)

	v.SetDefault("pump.dry_run", false)
	v.SetDefault("pump.topic", "rover/pump")
	v.SetDefault("pump.qos", 1)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9110")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.dir", "captures")
}
