// Package remote subscribes to the clock's MQTT control topics and turns
// well-formed payloads into events on the internal bus. Malformed payloads
// are logged and dropped; delivery problems are the broker client's
// concern.
package remote

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"libdb.so/ledclock/internal/events"
)

// Config configures the MQTT control client.
type Config struct {
	// Broker is the broker URL, e.g. tcp://broker.local:1883.
	Broker string
	// ClientID identifies this clock on the broker.
	ClientID string
	// BrightnessTopic carries integer payloads 0-255.
	BrightnessTopic string
	// PowerTopic carries on/off payloads.
	PowerTopic string
}

// Client bridges the MQTT topics to the event bus.
type Client struct {
	cfg    Config
	bus    *events.Bus
	logger *slog.Logger
	mqtt   mqtt.Client
}

// NewClient creates the control client. It does not connect yet.
func NewClient(cfg Config, bus *events.Bus, logger *slog.Logger) *Client {
	c := &Client{cfg: cfg, bus: bus, logger: logger}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(c.onConnect)
	c.mqtt = mqtt.NewClient(opts)

	return c
}

// Run connects to the broker and services the subscriptions until the
// context is canceled. A broker that is down at boot is retried in the
// background; the clock keeps rendering without its remote control.
func (c *Client) Run(ctx context.Context) error {
	tok := c.mqtt.Connect()
	select {
	case <-tok.Done():
		// With connect retry enabled this only fails on unusable options,
		// not on an unreachable broker.
		if err := tok.Error(); err != nil {
			return errors.Wrapf(err, "failed to connect to broker %q", c.cfg.Broker)
		}
	case <-ctx.Done():
		c.mqtt.Disconnect(0)
		return ctx.Err()
	}

	<-ctx.Done()
	c.mqtt.Disconnect(250)
	return ctx.Err()
}

// onConnect resubscribes on every (re)connection.
func (c *Client) onConnect(client mqtt.Client) {
	c.logger.Info("connected to control broker", "broker", c.cfg.Broker)

	if tok := client.Subscribe(c.cfg.BrightnessTopic, 0, c.handleBrightness); tok.Wait() && tok.Error() != nil {
		c.logger.Error("failed to subscribe",
			"topic", c.cfg.BrightnessTopic,
			"error", tok.Error())
	}
	if tok := client.Subscribe(c.cfg.PowerTopic, 0, c.handlePower); tok.Wait() && tok.Error() != nil {
		c.logger.Error("failed to subscribe",
			"topic", c.cfg.PowerTopic,
			"error", tok.Error())
	}
}

func (c *Client) handleBrightness(_ mqtt.Client, msg mqtt.Message) {
	level, err := ParseBrightness(string(msg.Payload()))
	if err != nil {
		c.logger.Warn("ignoring malformed brightness payload",
			"topic", msg.Topic(),
			"payload", string(msg.Payload()),
			"error", err)
		return
	}
	c.logger.Debug("brightness signal", "level", level)
	c.bus.PublishBrightness(events.BrightnessEvent{Level: level})
}

func (c *Client) handlePower(_ mqtt.Client, msg mqtt.Message) {
	on, err := ParsePower(string(msg.Payload()))
	if err != nil {
		c.logger.Warn("ignoring malformed power payload",
			"topic", msg.Topic(),
			"payload", string(msg.Payload()),
			"error", err)
		return
	}
	c.logger.Debug("power signal", "on", on)
	c.bus.PublishPower(events.PowerEvent{On: on})
}

// ParseBrightness parses an integer payload 0-255.
func ParseBrightness(payload string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(payload), 10, 8)
	if err != nil {
		return 0, errors.Wrap(err, "brightness must be an integer 0-255")
	}
	return uint8(v), nil
}

// ParsePower parses an on/off payload. Accepted spellings are ON/OFF,
// 1/0 and true/false, case-insensitive.
func ParsePower(payload string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(payload)) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, errors.Errorf("unrecognized power payload %q", payload)
	}
}
