// Package kafka publishes run events to a Kafka topic, keyed by project id
// so every event of a project lands on the same partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/factory/pkg/eventstream"
	"github.com/papercomputeco/factory/pkg/logger"
)

// DefaultTopic is used when Config.Topic is empty.
const DefaultTopic = "factory.runs"

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// Writer replaces the kafka.Writer built from Brokers when set.
	Writer MessageWriter

	Logger *slog.Logger
}

// Publisher writes RunEvents as JSON messages.
type Publisher struct {
	writer MessageWriter
	topic  string
	logger *slog.Logger
}

// NewPublisher creates a Kafka publisher. Connections are made lazily by
// the writer on first publish.
func NewPublisher(c Config) (*Publisher, error) {
	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	w := c.Writer
	if w == nil {
		if len(c.Brokers) == 0 {
			return nil, errors.New("kafka publisher requires at least one broker")
		}
		w = &kafkago.Writer{
			Addr:                   kafkago.TCP(c.Brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		}
	}

	return &Publisher{writer: w, topic: topic, logger: log}, nil
}

// Topic returns the topic events are written to.
func (p *Publisher) Topic() string {
	return p.topic
}

// PublishRun writes event to the topic.
func (p *Publisher) PublishRun(ctx context.Context, event *eventstream.RunEvent) error {
	if event == nil {
		return eventstream.ErrNilRunEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling run event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.ProjectID),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(event.SchemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing run event %s: %w", event.EventID, err)
	}

	p.logger.Debug("run event published",
		"topic", p.topic,
		"project_id", event.ProjectID,
		"run_id", event.RunID,
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
