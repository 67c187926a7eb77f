package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"ucraft/trafficlogger/pkg/traffic"
)

// deliveryTimeout bounds how long a background goroutine waits on a publish
// token before giving up on reporting its outcome.
const deliveryTimeout = 30 * time.Second

// MQTTConfig contains configuration for the MQTT dispatcher.
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	QoS            int
	TopicPrefix    string
	ConnectTimeout time.Duration
}

// mqttClient is the part of mqtt.Client the dispatcher uses.
type mqttClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTDispatcher publishes messages to an MQTT broker. The message key is
// not part of MQTT; ordering relies on the broker's per-topic order.
type MQTTDispatcher struct {
	client mqttClient
	qos    byte
	prefix string
	logger *slog.Logger
}

// NewMQTTDispatcher connects to the broker and waits up to ConnectTimeout.
func NewMQTTDispatcher(cfg MQTTConfig) (*MQTTDispatcher, error) {
	if cfg.QoS < 0 || cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid qos %d", cfg.QoS)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	logger := slog.Default().With("component", "traffic.publish.mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetConnectTimeout(timeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect to %s timed out after %s", cfg.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}

	logger.Info("mqtt dispatcher initialized", "broker", cfg.Broker, "qos", cfg.QoS)
	return newMQTTDispatcher(client, byte(cfg.QoS), cfg.TopicPrefix), nil
}

func newMQTTDispatcher(client mqttClient, qos byte, prefix string) *MQTTDispatcher {
	return &MQTTDispatcher{
		client: client,
		qos:    qos,
		prefix: prefix,
		logger: slog.Default().With("component", "traffic.publish.mqtt"),
	}
}

// Name implements traffic.Dispatcher.
func (d *MQTTDispatcher) Name() string { return "mqtt" }

// Dispatch publishes without waiting for the broker. Failures surfaced by
// the token later are logged.
func (d *MQTTDispatcher) Dispatch(ctx context.Context, msg traffic.Message) error {
	if !d.client.IsConnectionOpen() {
		return errors.New("mqtt connection is not open")
	}

	topic := d.prefix + msg.Topic
	token := d.client.Publish(topic, d.qos, false, msg.Body)

	go func() {
		if !token.WaitTimeout(deliveryTimeout) {
			d.logger.Warn("mqtt delivery not confirmed", "topic", topic, "key", msg.Key)
			return
		}
		if err := token.Error(); err != nil {
			d.logger.Error("mqtt delivery failed", "topic", topic, "key", msg.Key, "error", err)
		}
	}()

	return nil
}

// Ping reports whether the connection is open.
func (d *MQTTDispatcher) Ping(context.Context) error {
	if !d.client.IsConnectionOpen() {
		return errors.New("mqtt connection is not open")
	}
	return nil
}

// Close disconnects, allowing in-flight work 250ms to finish.
func (d *MQTTDispatcher) Close() error {
	d.client.Disconnect(250)
	return nil
}
