// Package consumer reads post-change events from Kafka and reindexes the
// referenced posts in update mode, keeping the search index in step with the
// forum between full rebuilds.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forumbase/postsearch/internal/store"
	"github.com/forumbase/postsearch/pkg/kafka"
	"github.com/forumbase/postsearch/pkg/logger"
)

// PostEvent is the payload the forum application publishes whenever a post
// is created or edited.
type PostEvent struct {
	UIDs []string `json:"uids"`
}

// PostSource loads post records for reindexing.
type PostSource interface {
	PostsByUID(ctx context.Context, uids []string) ([]store.Post, error)
}

// Writer applies a batch of posts to the index.
type Writer interface {
	IndexPosts(ctx context.Context, posts []store.Post, createNew bool) error
}

// IndexConsumer wraps a Kafka consumer to drive incremental indexing.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   logger.WithComponent("index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that loads the posts named in
// each event and reindexes them in update mode. Posts that were deleted (or
// never existed) load as nothing, so the event is a no-op for them; their
// stale documents are cleared by the next full rebuild.
func HandleMessage(source PostSource, writer Writer) kafka.MessageHandler {
	log := logger.WithComponent("index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[PostEvent](value)
		if err != nil {
			log.Error("failed to decode post event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if len(event.UIDs) == 0 {
			return nil
		}

		posts, err := source.PostsByUID(ctx, event.UIDs)
		if err != nil {
			return fmt.Errorf("loading posts for event: %w", err)
		}
		if len(posts) == 0 {
			log.Debug("no live posts for event", "uids", event.UIDs)
			return nil
		}

		if err := writer.IndexPosts(ctx, posts, false); err != nil {
			return fmt.Errorf("reindexing %d posts: %w", len(posts), err)
		}
		log.Info("posts reindexed", "count", len(posts))
		return nil
	}
}
