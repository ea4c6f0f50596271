package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/forumbase/postsearch/internal/indexer/schema"
	"github.com/forumbase/postsearch/internal/store"
	"github.com/forumbase/postsearch/pkg/config"
	pserrors "github.com/forumbase/postsearch/pkg/errors"
	"github.com/forumbase/postsearch/pkg/logger"
	"github.com/forumbase/postsearch/pkg/metrics"
)

const defaultProgressStep = 500

// Indexer builds and updates the post index. Writers are exclusive and
// serialized: a second concurrent IndexPosts call on the same Indexer blocks
// until the first run commits or fails.
type Indexer struct {
	cfg     config.IndexConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
	mu      sync.Mutex
}

// New creates an Indexer for the configured index location. m may be nil to
// disable metrics.
func New(cfg config.IndexConfig, m *metrics.Metrics) *Indexer {
	return &Indexer{
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("indexer"),
	}
}

// IndexPosts creates or updates the search index from the given posts.
//
// When createNew is true, or no index exists yet, a fresh index is created;
// otherwise the existing index is opened for update and every post goes
// through delete-before-reindex, guaranteeing at most one live document per
// post UID after commit. Posts in deleted state and posts without a root are
// never indexed. All adds and deletes accumulate in a single batch that
// commits atomically at the end: either the whole run becomes visible or
// none of it does.
func (ix *Indexer) IndexPosts(ctx context.Context, posts []store.Post, createNew bool) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	start := time.Now()
	updating := Exists(ix.cfg.Dir, ix.cfg.Name) && !createNew

	var (
		idx bleve.Index
		err error
	)
	if updating {
		idx, err = Open(ix.cfg.Dir, ix.cfg.Name)
	} else {
		idx, err = Create(ix.cfg.Dir, ix.cfg.Name)
	}
	if err != nil {
		return err
	}
	defer idx.Close()

	ix.logger.Info("indexing run started",
		"posts", len(posts),
		"updating", updating,
		"index", IndexPath(ix.cfg.Dir, ix.cfg.Name),
	)

	step := ix.cfg.ProgressStep
	if step <= 0 {
		step = defaultProgressStep
	}

	batch := idx.NewBatch()
	var indexed, removed, skipped int
	for i, post := range posts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("indexing run aborted: %w", err)
		}
		if post.Status == store.StatusDeleted {
			skipped++
			ix.countSkip("deleted")
			continue
		}
		// Posts without a root are artifacts of partial imports; they are
		// skipped here, not surfaced as errors.
		if !post.HasRoot() {
			skipped++
			ix.countSkip("missing_root")
			continue
		}
		if updating {
			n, err := ix.deleteExisting(idx, batch, post.UID)
			if err != nil {
				return err
			}
			removed += n
		}
		if err := batch.Index(post.UID, FromPost(post)); err != nil {
			return fmt.Errorf("adding post %s to batch: %w", post.UID, err)
		}
		indexed++
		if (i+1)%step == 0 {
			ix.logger.Info("indexing progress",
				"posts", i+1,
				"elapsed", time.Since(start).Round(100*time.Millisecond),
			)
		}
	}

	if ix.metrics != nil {
		ix.metrics.IndexBatchSize.Observe(float64(batch.Size()))
	}
	if err := idx.Batch(batch); err != nil {
		ix.countCommit("error")
		return pserrors.Wrap(pserrors.ErrCommitFailed, err)
	}
	ix.countCommit("ok")
	if ix.metrics != nil {
		ix.metrics.PostsIndexedTotal.Add(float64(indexed))
		ix.metrics.PostsDeletedTotal.Add(float64(removed))
		ix.metrics.IndexBatchDuration.Observe(time.Since(start).Seconds())
	}

	ix.logger.Info("indexing run committed",
		"indexed", indexed,
		"reindexed", removed,
		"skipped", skipped,
		"elapsed", time.Since(start).Round(100*time.Millisecond),
	)
	return nil
}

// deleteExisting removes any currently-indexed document with the given uid
// from the pending batch, returning how many were deleted. Zero matches is
// the normal brand-new-post case. More than one means the at-most-one-per-UID
// invariant is already broken, and the whole batch is aborted rather than
// papered over. The engine has no native upsert by key, so this explicit
// delete step is what makes reindexing idempotent.
func (ix *Indexer) deleteExisting(idx bleve.Index, batch *bleve.Batch, uid string) (int, error) {
	query := bleve.NewTermQuery(uid)
	query.SetField(schema.UIDField)
	req := bleve.NewSearchRequestOptions(query, 2, 0, false)

	res, err := idx.Search(req)
	if err != nil {
		return 0, fmt.Errorf("looking up indexed document for uid %s: %w", uid, err)
	}
	switch len(res.Hits) {
	case 0:
		return 0, nil
	case 1:
		batch.Delete(res.Hits[0].ID)
		return 1, nil
	default:
		return 0, pserrors.Wrapf(pserrors.ErrStaleDocument, "uid %s has %d documents", uid, len(res.Hits))
	}
}

func (ix *Indexer) countSkip(reason string) {
	if ix.metrics != nil {
		ix.metrics.PostsSkippedTotal.WithLabelValues(reason).Inc()
	}
}

func (ix *Indexer) countCommit(status string) {
	if ix.metrics != nil {
		ix.metrics.IndexCommitsTotal.WithLabelValues(status).Inc()
	}
}
