package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ucraft/trafficlogger/pkg/config"
	"ucraft/trafficlogger/pkg/traffic"
)

// LogDispatcher writes each message to the structured log.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher logging through logger, or the default logger.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger.With("component", "traffic.publish.log")}
}

// Name implements traffic.Dispatcher.
func (d *LogDispatcher) Name() string { return "log" }

// Dispatch logs the message at info level.
func (d *LogDispatcher) Dispatch(ctx context.Context, msg traffic.Message) error {
	d.logger.InfoContext(ctx, "traffic message",
		"topic", msg.Topic,
		"key", msg.Key,
		"body", string(msg.Body),
	)
	return nil
}

// Close implements traffic.Dispatcher.
func (d *LogDispatcher) Close() error { return nil }

// MemoryDispatcher keeps messages in process.
// This implementation is intended for testing only.
type MemoryDispatcher struct {
	mu       sync.Mutex
	messages []traffic.Message
	failErr  error
}

// NewMemoryDispatcher creates an empty in-memory dispatcher.
func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{}
}

// Name implements traffic.Dispatcher.
func (d *MemoryDispatcher) Name() string { return "memory" }

// Dispatch appends the message.
func (d *MemoryDispatcher) Dispatch(ctx context.Context, msg traffic.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.messages = append(d.messages, msg)
	return nil
}

// FailWith makes every subsequent Dispatch fail with err. Pass nil to recover.
func (d *MemoryDispatcher) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failErr = err
}

// Messages returns a copy of the dispatched messages in order.
func (d *MemoryDispatcher) Messages() []traffic.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]traffic.Message(nil), d.messages...)
}

// Close implements traffic.Dispatcher.
func (d *MemoryDispatcher) Close() error { return nil }

// NewDispatcher creates the dispatcher selected by cfg.Dispatcher.
func NewDispatcher(cfg *config.PublisherConfig) (traffic.Dispatcher, error) {
	switch cfg.Dispatcher {
	case "kafka":
		d, err := NewKafkaDispatcher(KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			ClientID:     cfg.Kafka.ClientID,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			RequiredAcks: cfg.Kafka.RequiredAcks,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	case "mqtt":
		d, err := NewMQTTDispatcher(MQTTConfig{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			QoS:            cfg.MQTT.QoS,
			TopicPrefix:    cfg.MQTT.TopicPrefix,
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	case "log":
		return NewLogDispatcher(nil), nil
	case "memory":
		return NewMemoryDispatcher(), nil
	default:
		return nil, fmt.Errorf("unknown dispatcher %q", cfg.Dispatcher)
	}
}
