// Package mqtttest provides an in-memory MQTT client for tests.
package mqtttest

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Token is a completed paho.Token.
type Token struct {
	err  error
	done chan struct{}
}

// NewToken returns a completed token carrying err.
func NewToken(err error) *Token {
	t := &Token{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *Token) Wait() bool                     { return true }
func (t *Token) WaitTimeout(time.Duration) bool { return true }
func (t *Token) Done() <-chan struct{}          { return t.done }
func (t *Token) Error() error                   { return t.err }

// Message is a published message.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// message adapts a Message to paho.Message for subscriber callbacks.
type message struct{ m Message }

func (w message) Duplicate() bool   { return false }
func (w message) Qos() byte         { return w.m.QoS }
func (w message) Retained() bool    { return w.m.Retained }
func (w message) Topic() string     { return w.m.Topic }
func (w message) MessageID() uint16 { return 0 }
func (w message) Payload() []byte   { return w.m.Payload }
func (w message) Ack()              {}

// Client records publishes and routes them to exact-topic subscribers.
type Client struct {
	mu        sync.Mutex
	published []Message
	handlers  map[string]paho.MessageHandler

	// PublishErr, when set, fails every publish.
	PublishErr error

	// OnPublish is called after a publish is recorded, outside the lock.
	OnPublish func(Message)
}

// NewClient returns an empty fake client.
func NewClient() *Client {
	return &Client{handlers: make(map[string]paho.MessageHandler)}
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	}
	m := Message{Topic: topic, QoS: qos, Retained: retained, Payload: data}

	c.mu.Lock()
	if c.PublishErr != nil {
		err := c.PublishErr
		c.mu.Unlock()
		return NewToken(err)
	}
	c.published = append(c.published, m)
	h := c.handlers[topic]
	hook := c.OnPublish
	c.mu.Unlock()

	if h != nil {
		h(nil, message{m})
	}
	if hook != nil {
		hook(m)
	}
	return NewToken(nil)
}

func (c *Client) Subscribe(topic string, _ byte, callback paho.MessageHandler) paho.Token {
	c.mu.Lock()
	c.handlers[topic] = callback
	c.mu.Unlock()
	return NewToken(nil)
}

func (c *Client) Unsubscribe(topics ...string) paho.Token {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.handlers, t)
	}
	c.mu.Unlock()
	return NewToken(nil)
}

// Deliver sends payload to the subscriber of topic, as if a remote device
// had published it. It reports whether anyone was subscribed.
func (c *Client) Deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	h := c.handlers[topic]
	c.mu.Unlock()
	if h == nil {
		return false
	}
	h(nil, message{Message{Topic: topic, Payload: payload}})
	return true
}

// Subscribed reports whether topic has a handler.
func (c *Client) Subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handlers[topic]
	return ok
}

// Published returns a copy of all recorded messages.
func (c *Client) Published() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.published))
	copy(out, c.published)
	return out
}
