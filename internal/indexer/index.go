// Package indexer maintains the durable full-text index of forum posts:
// it creates or opens the index, maps post records to documents, performs
// delete-before-reindex for updates, and commits each run as one atomic
// batch.
package indexer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"

	"github.com/forumbase/postsearch/internal/indexer/schema"
	pserrors "github.com/forumbase/postsearch/pkg/errors"
)

// metaFile is written by the engine at index creation; its presence is the
// existence check for a named index.
const metaFile = "index_meta.json"

// IndexPath returns the directory holding the named index.
func IndexPath(dir, name string) string {
	return filepath.Join(dir, name)
}

// Exists reports whether an index with the given name exists under dir.
func Exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(IndexPath(dir, name), metaFile))
	return err == nil
}

// Create builds a brand-new index bound to the post schema, replacing any
// index already at the target location.
func Create(dir, name string) (bleve.Index, error) {
	path := IndexPath(dir, name)
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("clearing old index at %s: %w", path, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory %s: %w", dir, err)
	}
	im, err := schema.Define().IndexMapping()
	if err != nil {
		return nil, fmt.Errorf("building index mapping: %w", err)
	}
	idx, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("creating index at %s: %w", path, err)
	}
	return idx, nil
}

// Open opens an existing index for update. The index must exist; opening a
// missing or corrupt index is a structural failure, never a silent fallback.
func Open(dir, name string) (bleve.Index, error) {
	path := IndexPath(dir, name)
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index at %s: %w", path, err)
	}
	return idx, nil
}

// OpenReadOnly opens an existing index for querying. Failure is surfaced as
// ErrIndexUnavailable so callers can degrade (skip search) instead of
// crashing.
func OpenReadOnly(dir, name string) (bleve.Index, error) {
	path := IndexPath(dir, name)
	idx, err := bleve.OpenUsing(path, map[string]interface{}{
		"read_only": true,
	})
	if err != nil {
		return nil, pserrors.Wrap(pserrors.ErrIndexUnavailable, err)
	}
	return idx, nil
}
