package publish

import (
	"context"
	"time"

	"ucraft/trafficlogger/pkg/traffic"
)

// KeyLayout formats the message key from the record creation time.
const KeyLayout = time.RFC3339

// Publisher builds one message per record and hands it to a dispatcher.
type Publisher struct {
	topic      string
	dispatcher traffic.Dispatcher
	body       BodyBuilder
}

// New creates a publisher for topic. A nil body builder means LocatorBody.
func New(topic string, dispatcher traffic.Dispatcher, body BodyBuilder) *Publisher {
	if body == nil {
		body = LocatorBody
	}
	return &Publisher{
		topic:      topic,
		dispatcher: dispatcher,
		body:       body,
	}
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string { return p.topic }

// Dispatcher returns the underlying dispatcher.
func (p *Publisher) Dispatcher() traffic.Dispatcher { return p.dispatcher }

// Build returns the message for an entry without dispatching it.
func (p *Publisher) Build(entry traffic.Entry, locator string) (traffic.Message, error) {
	body, err := p.body(entry, locator)
	if err != nil {
		return traffic.Message{}, traffic.NewPublishError(p.dispatcher.Name(), p.topic, err)
	}
	return traffic.Message{
		Topic: p.topic,
		Key:   entry.CreatedAt.Format(KeyLayout),
		Body:  body,
	}, nil
}

// Publish builds and dispatches the message for an entry.
func (p *Publisher) Publish(ctx context.Context, entry traffic.Entry, locator string) error {
	msg, err := p.Build(entry, locator)
	if err != nil {
		return err
	}
	if err := p.dispatcher.Dispatch(ctx, msg); err != nil {
		return traffic.NewPublishError(p.dispatcher.Name(), p.topic, err)
	}
	return nil
}

// Close closes the dispatcher.
func (p *Publisher) Close() error {
	return p.dispatcher.Close()
}
