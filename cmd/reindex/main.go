// Command reindex rebuilds or updates the post search index from the
// relational post store in one batch run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/forumbase/postsearch/internal/indexer"
	"github.com/forumbase/postsearch/internal/searcher/cache"
	"github.com/forumbase/postsearch/internal/store"
	"github.com/forumbase/postsearch/pkg/config"
	"github.com/forumbase/postsearch/pkg/logger"
	"github.com/forumbase/postsearch/pkg/postgres"
	pkgredis "github.com/forumbase/postsearch/pkg/redis"
	"github.com/forumbase/postsearch/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	rebuild := flag.Bool("rebuild", false, "create a brand-new index instead of updating in place")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting reindex",
		"index", cfg.Index.Path(),
		"rebuild", *rebuild,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to post store", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	posts, err := store.New(pg.DB).Posts(ctx)
	if err != nil {
		slog.Error("failed to load posts", "error", err)
		os.Exit(1)
	}
	slog.Info("posts loaded", "count", len(posts))

	ix := indexer.New(cfg.Index, nil)
	err = resilience.Retry(ctx, "index-posts", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		return ix.IndexPosts(ctx, posts, *rebuild)
	})
	if err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}

	// Committed results may invalidate cached queries; best effort only.
	if redisClient, err := pkgredis.NewClient(cfg.Redis); err != nil {
		slog.Warn("redis unavailable, skipping cache invalidation", "error", err)
	} else {
		defer redisClient.Close()
		if err := cache.New(redisClient, cfg.Redis, nil).Invalidate(ctx); err != nil {
			slog.Warn("cache invalidation failed", "error", err)
		}
	}

	slog.Info("reindex complete", "posts", len(posts))
}
