package indexer_test

import (
	"context"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forumbase/postsearch/internal/indexer"
	"github.com/forumbase/postsearch/internal/indexer/schema"
	"github.com/forumbase/postsearch/internal/store"
	"github.com/forumbase/postsearch/pkg/config"
	pserrors "github.com/forumbase/postsearch/pkg/errors"
)

func testConfig(t *testing.T) config.IndexConfig {
	t.Helper()
	return config.IndexConfig{Dir: t.TempDir(), Name: "posts"}
}

func post(uid, content string) store.Post {
	return store.Post{
		UID:          uid,
		Type:         "Question",
		Title:        "title of " + uid,
		Content:      content,
		TagVal:       "testing",
		Rank:         1,
		LasteditDate: time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC),
		TopLevel:     true,
		Status:       store.StatusOpen,
		RootUID:      uid,
		Author:       store.Author{Name: "Test Author", UID: "u1"},
	}
}

func docCount(t *testing.T, cfg config.IndexConfig) uint64 {
	t.Helper()
	idx, err := indexer.OpenReadOnly(cfg.Dir, cfg.Name)
	require.NoError(t, err)
	defer idx.Close()
	n, err := idx.DocCount()
	require.NoError(t, err)
	return n
}

func uidHits(t *testing.T, cfg config.IndexConfig, uid string) int {
	t.Helper()
	idx, err := indexer.OpenReadOnly(cfg.Dir, cfg.Name)
	require.NoError(t, err)
	defer idx.Close()

	q := bleve.NewTermQuery(uid)
	q.SetField(schema.UIDField)
	res, err := idx.Search(bleve.NewSearchRequestOptions(q, 10, 0, false))
	require.NoError(t, err)
	return len(res.Hits)
}

func contentHits(t *testing.T, cfg config.IndexConfig, term string) int {
	t.Helper()
	idx, err := indexer.OpenReadOnly(cfg.Dir, cfg.Name)
	require.NoError(t, err)
	defer idx.Close()

	q := bleve.NewMatchQuery(term)
	q.SetField("content")
	res, err := idx.Search(bleve.NewSearchRequestOptions(q, 10, 0, false))
	require.NoError(t, err)
	return len(res.Hits)
}

func TestIndexPosts_CreatesFreshIndex(t *testing.T) {
	cfg := testConfig(t)
	ix := indexer.New(cfg, nil)

	posts := []store.Post{post("p1", "alpha genome assembly"), post("p2", "variant calling pipeline")}
	require.NoError(t, ix.IndexPosts(context.Background(), posts, false))

	assert.True(t, indexer.Exists(cfg.Dir, cfg.Name))
	assert.EqualValues(t, 2, docCount(t, cfg))
	assert.Equal(t, 1, contentHits(t, cfg, "genome"))
}

func TestIndexPosts_ReindexIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	ix := indexer.New(cfg, nil)
	posts := []store.Post{post("p1", "alpha genome assembly")}

	require.NoError(t, ix.IndexPosts(context.Background(), posts, false))
	require.NoError(t, ix.IndexPosts(context.Background(), posts, false))
	require.NoError(t, ix.IndexPosts(context.Background(), posts, false))

	assert.EqualValues(t, 1, docCount(t, cfg))
	assert.Equal(t, 1, uidHits(t, cfg, "p1"))
}

func TestIndexPosts_DeleteBeforeReindex(t *testing.T) {
	cfg := testConfig(t)
	ix := indexer.New(cfg, nil)

	require.NoError(t, ix.IndexPosts(context.Background(), []store.Post{post("p1", "alpha")}, false))
	require.NoError(t, ix.IndexPosts(context.Background(), []store.Post{post("p1", "beta")}, false))

	assert.Equal(t, 1, uidHits(t, cfg, "p1"), "exactly one live document per uid")
	assert.Equal(t, 0, contentHits(t, cfg, "alpha"), "old content must no longer match")
	assert.Equal(t, 1, contentHits(t, cfg, "beta"))
}

func TestIndexPosts_RebuildReplacesIndex(t *testing.T) {
	cfg := testConfig(t)
	ix := indexer.New(cfg, nil)

	require.NoError(t, ix.IndexPosts(context.Background(), []store.Post{post("p1", "alpha"), post("p2", "beta")}, false))
	require.NoError(t, ix.IndexPosts(context.Background(), []store.Post{post("p3", "gamma")}, true))

	assert.EqualValues(t, 1, docCount(t, cfg))
	assert.Equal(t, 0, uidHits(t, cfg, "p1"))
	assert.Equal(t, 1, uidHits(t, cfg, "p3"))
}

func TestIndexPosts_SkipsDeletedPosts(t *testing.T) {
	cfg := testConfig(t)
	ix := indexer.New(cfg, nil)

	deleted := post("p2", "spam content")
	deleted.Status = store.StatusDeleted
	posts := []store.Post{post("p1", "alpha"), deleted}

	require.NoError(t, ix.IndexPosts(context.Background(), posts, false))
	assert.EqualValues(t, 1, docCount(t, cfg))
	assert.Equal(t, 0, uidHits(t, cfg, "p2"))

	// Still excluded when the run repeats in update mode.
	require.NoError(t, ix.IndexPosts(context.Background(), posts, false))
	assert.Equal(t, 0, uidHits(t, cfg, "p2"))
}

func TestIndexPosts_SkipsPostsWithoutRoot(t *testing.T) {
	cfg := testConfig(t)
	ix := indexer.New(cfg, nil)

	orphan := post("p2", "orphaned answer")
	orphan.RootUID = ""
	posts := []store.Post{post("p1", "alpha"), orphan}

	require.NoError(t, ix.IndexPosts(context.Background(), posts, false))
	assert.EqualValues(t, 1, docCount(t, cfg))
	assert.Equal(t, 0, uidHits(t, cfg, "p2"))
}

func TestIndexPosts_DuplicateUIDAbortsBatch(t *testing.T) {
	cfg := testConfig(t)

	// Corrupt index: two live documents carry the same uid field. The
	// at-most-one-per-uid invariant only holds when documents are keyed by
	// uid, so seed them under distinct engine IDs directly.
	idx, err := indexer.Create(cfg.Dir, cfg.Name)
	require.NoError(t, err)
	dup := post("p1", "alpha")
	require.NoError(t, idx.Index("a", indexer.FromPost(dup)))
	require.NoError(t, idx.Index("b", indexer.FromPost(dup)))
	require.NoError(t, idx.Close())

	ix := indexer.New(cfg, nil)
	err = ix.IndexPosts(context.Background(), []store.Post{post("p1", "beta")}, false)
	require.ErrorIs(t, err, pserrors.ErrStaleDocument)

	// The aborted batch committed nothing: old documents intact, new
	// content absent.
	assert.EqualValues(t, 2, docCount(t, cfg))
	assert.Equal(t, 0, contentHits(t, cfg, "beta"))
	assert.Equal(t, 2, contentHits(t, cfg, "alpha"))
}

func TestIndexPosts_AbortedRunCommitsNothing(t *testing.T) {
	cfg := testConfig(t)
	ix := indexer.New(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ix.IndexPosts(ctx, []store.Post{post("p1", "alpha"), post("p2", "beta")}, false)
	require.Error(t, err)

	// The index was created but no document from the batch is visible.
	require.True(t, indexer.Exists(cfg.Dir, cfg.Name))
	assert.EqualValues(t, 0, docCount(t, cfg))
}

func TestOpenReadOnly_MissingIndex(t *testing.T) {
	cfg := testConfig(t)
	_, err := indexer.OpenReadOnly(cfg.Dir, cfg.Name)
	require.Error(t, err)
}
