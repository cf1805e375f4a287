package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	awspkg "github.com/nathangtg/coffee-single-tenant-sub000/pkg/aws"
)

// Event is a domain event. Key groups related events (the order id) so
// partitioned transports keep them in order.
type Event struct {
	Type    string
	Key     string
	Payload interface{}
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// SNSPublisher sends each event as a JSON message to one topic.
type SNSPublisher struct {
	client   awspkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client awspkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.Type, err)
	}
	return p.client.Publish(ctx, p.topicArn, evt.Type, body)
}

func (p *SNSPublisher) Close() error { return nil }

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by Event.Key, with the event type in a
// header.
type KafkaPublisher struct {
	writer kafkaWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.Type, err)
	}
	msg := kafka.Message{
		Key:     []byte(evt.Key),
		Value:   body,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(evt.Type)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s to %s: %w", evt.Type, p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// Fanout publishes to every publisher and joins their errors.
type Fanout struct {
	publishers []Publisher
	logger     *zap.Logger
}

func NewFanout(logger *zap.Logger, pubs ...Publisher) *Fanout {
	return &Fanout{publishers: pubs, logger: logger}
}

func (f *Fanout) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		f.logger.Debug("event published", zap.String("event_type", evt.Type), zap.String("key", evt.Key))
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, p := range f.publishers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
