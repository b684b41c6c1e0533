// Package mqtt manages the broker connection shared by the MQTT telemetry
// publisher, moisture sensor and pump.
package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Config holds broker settings.
type Config struct {
	Enabled        bool          `mapstructure:"enabled"`
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	TopicPrefix    string        `mapstructure:"topic_prefix"`
	QoS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// Topic joins the configured prefix and suffix.
func (c Config) Topic(suffix string) string {
	if c.TopicPrefix == "" {
		return suffix
	}
	return c.TopicPrefix + "/" + suffix
}

// Client is the subset of paho.Client the rover uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
}

// Connect dials the broker with auto-reconnect enabled.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (paho.Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt: broker not configured")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("mqtt")

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info("connected", zap.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn("connection lost", zap.Error(err))
	})

	client := paho.NewClient(opts)
	if err := Wait(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return client, nil
}

// Wait blocks until the token completes or ctx is done.
func Wait(ctx context.Context, tok paho.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect closes the connection, allowing 250ms for in-flight work.
func Disconnect(c paho.Client) {
	if c != nil && c.IsConnected() {
		c.Disconnect(250)
	}
}
