// Package kafka provides the consumer client, backed by segmentio/kafka-go,
// that feeds post-change events to the incremental indexer. Message payloads
// are decoded by the handler via DecodeJSON.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/forumbase/postsearch/pkg/config"
	"github.com/forumbase/postsearch/pkg/logger"
)

// fetchErrorBackoff spaces out retries when the broker is unreachable, so a
// dead broker does not turn the consume loop into a busy loop.
const fetchErrorBackoff = time.Second

// MessageHandler processes one message. A returned error leaves the message
// uncommitted; it will be redelivered after a rebalance or restart.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer reads one topic within a consumer group and dispatches each
// message to its handler, committing offsets only after the handler
// succeeds (at-least-once delivery).
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	logger  *slog.Logger
}

// NewConsumer creates a Consumer for the given topic and handler.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1e3,
			MaxBytes:    10e6,
			StartOffset: kafka.LastOffset,
		}),
		handler: handler,
		logger:  logger.WithComponent("kafka-consumer").With("topic", topic),
	}
}

// Start runs the consume loop until ctx is cancelled, then closes the
// reader. Fetch failures are logged and retried with a fixed backoff.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch failed", "error", err)
			select {
			case <-time.After(fetchErrorBackoff):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("handler failed, message left uncommitted",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("offset commit failed",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Close closes the underlying reader; safe to call if Start never ran.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message payload into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		return out, fmt.Errorf("decoding kafka message: %w", err)
	}
	return out, nil
}
