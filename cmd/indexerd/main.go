// Command indexerd keeps the post search index in step with the forum: it
// consumes post-change events from Kafka, reindexes the affected posts in
// update mode, and serves Prometheus metrics and health probes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forumbase/postsearch/internal/indexer"
	"github.com/forumbase/postsearch/internal/indexer/consumer"
	"github.com/forumbase/postsearch/internal/searcher/cache"
	"github.com/forumbase/postsearch/internal/store"
	"github.com/forumbase/postsearch/pkg/config"
	"github.com/forumbase/postsearch/pkg/health"
	"github.com/forumbase/postsearch/pkg/kafka"
	"github.com/forumbase/postsearch/pkg/logger"
	"github.com/forumbase/postsearch/pkg/metrics"
	"github.com/forumbase/postsearch/pkg/postgres"
	pkgredis "github.com/forumbase/postsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexerd",
		"index", cfg.Index.Path(),
		"topic", cfg.Kafka.Topics.PostChanged,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to post store", "error", err)
		os.Exit(1)
	}
	defer pg.Close()
	posts := store.New(pg.DB)

	m := metrics.New()
	ix := indexer.New(cfg.Index, m)

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, cache invalidation disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis, m)
	}

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := pg.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if !indexer.Exists(cfg.Index.Dir, cfg.Index.Name) {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index not built yet"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port, func(mux *http.ServeMux) {
			mux.HandleFunc("GET /health/live", checker.LiveHandler())
			mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
		})
	}

	writer := &invalidatingWriter{indexer: ix, cache: queryCache}
	handler := consumer.HandleMessage(posts, writer)
	indexConsumer := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.PostChanged, handler))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return indexConsumer.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if shutdownMetrics != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdownMetrics(shutdownCtx)
		}
		return nil
	})

	slog.Info("indexerd ready, consuming",
		"topic", cfg.Kafka.Topics.PostChanged,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("indexerd error", "error", err)
		os.Exit(1)
	}
	slog.Info("indexerd stopped")
}

// invalidatingWriter commits a reindex batch and then drops any cached query
// results that could now be stale.
type invalidatingWriter struct {
	indexer *indexer.Indexer
	cache   *cache.QueryCache
}

func (w *invalidatingWriter) IndexPosts(ctx context.Context, posts []store.Post, createNew bool) error {
	if err := w.indexer.IndexPosts(ctx, posts, createNew); err != nil {
		return err
	}
	if w.cache != nil {
		if err := w.cache.Invalidate(ctx); err != nil {
			slog.Warn("cache invalidation failed", "error", err)
		}
	}
	return nil
}
