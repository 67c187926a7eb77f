package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"ucraft/trafficlogger/pkg/traffic"
)

// KafkaConfig contains configuration for the Kafka dispatcher.
type KafkaConfig struct {
	Brokers      []string
	ClientID     string
	BatchTimeout time.Duration

	// RequiredAcks is one of "none", "one" or "all".
	RequiredAcks string
}

// messageWriter is the part of *kafka.Writer the dispatcher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher produces messages with an asynchronous kafka-go writer.
// WriteMessages returns once the message is queued; delivery errors arrive
// through the writer's completion callback and are logged.
type KafkaDispatcher struct {
	writer  messageWriter
	brokers []string
	failed  atomic.Int64
	logger  *slog.Logger
}

// NewKafkaDispatcher creates an async writer for the configured brokers.
// The writer has no fixed topic; every message names its own.
func NewKafkaDispatcher(cfg KafkaConfig) (*KafkaDispatcher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}

	acks, err := requiredAcks(cfg.RequiredAcks)
	if err != nil {
		return nil, err
	}

	d := &KafkaDispatcher{
		brokers: cfg.Brokers,
		logger:  slog.Default().With("component", "traffic.publish.kafka"),
	}

	d.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: acks,
		Async:        true,
		Completion:   d.complete,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}

	d.logger.Info("kafka dispatcher initialized",
		"brokers", cfg.Brokers,
		"required_acks", cfg.RequiredAcks,
	)
	return d, nil
}

// Name implements traffic.Dispatcher.
func (d *KafkaDispatcher) Name() string { return "kafka" }

// Dispatch queues the message.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, msg traffic.Message) error {
	return d.writer.WriteMessages(ctx, kafka.Message{
		Topic: msg.Topic,
		Key:   []byte(msg.Key),
		Value: msg.Body,
	})
}

// Failed returns the number of messages the brokers rejected so far.
func (d *KafkaDispatcher) Failed() int64 {
	return d.failed.Load()
}

// Ping dials the first reachable broker.
func (d *KafkaDispatcher) Ping(ctx context.Context) error {
	var lastErr error
	for _, broker := range d.brokers {
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn.Close()
		}
		lastErr = err
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

// Close flushes pending messages and closes the writer.
func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

func (d *KafkaDispatcher) complete(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	d.failed.Add(int64(len(messages)))
	for _, m := range messages {
		d.logger.Error("kafka delivery failed",
			"topic", m.Topic,
			"key", string(m.Key),
			"error", err,
		)
	}
}

func requiredAcks(name string) (kafka.RequiredAcks, error) {
	switch name {
	case "", "none":
		return kafka.RequireNone, nil
	case "one":
		return kafka.RequireOne, nil
	case "all":
		return kafka.RequireAll, nil
	default:
		return 0, fmt.Errorf("invalid required acks %q", name)
	}
}
