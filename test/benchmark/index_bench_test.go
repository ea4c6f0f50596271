// Package benchmark contains Go benchmarks for the indexing and search
// pipeline, measuring throughput and allocation behaviour against a real
// on-disk index.
package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/forumbase/postsearch/internal/indexer"
	"github.com/forumbase/postsearch/internal/store"
	"github.com/forumbase/postsearch/pkg/config"
)

func benchPosts(n int) []store.Post {
	edited := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	posts := make([]store.Post, 0, n)
	for i := 0; i < n; i++ {
		uid := fmt.Sprintf("p%d", i)
		posts = append(posts, store.Post{
			UID:          uid,
			Type:         "Question",
			Title:        fmt.Sprintf("Question %d about read alignment", i),
			Content:      "How should paired-end reads be aligned against the reference genome, and which aligner parameters matter most for variant calling accuracy?",
			TagVal:       "alignment variant-calling",
			Rank:         float64(i),
			LasteditDate: edited,
			TopLevel:     true,
			Status:       store.StatusOpen,
			RootUID:      uid,
			Author:       store.Author{Name: "Bench Author", UID: "u1"},
		})
	}
	return posts
}

// BenchmarkIndexPosts measures full-rebuild throughput at a few batch sizes.
func BenchmarkIndexPosts(b *testing.B) {
	for _, size := range []int{100, 1000} {
		b.Run(fmt.Sprintf("posts_%d", size), func(b *testing.B) {
			posts := benchPosts(size)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				cfg := config.IndexConfig{Dir: b.TempDir(), Name: "posts"}
				ix := indexer.New(cfg, nil)
				b.StartTimer()
				if err := ix.IndexPosts(context.Background(), posts, true); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkReindexPosts measures the delete-before-reindex update path, which
// adds a per-post index lookup on top of the plain insert.
func BenchmarkReindexPosts(b *testing.B) {
	cfg := config.IndexConfig{Dir: b.TempDir(), Name: "posts"}
	ix := indexer.New(cfg, nil)
	posts := benchPosts(500)
	if err := ix.IndexPosts(context.Background(), posts, true); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := ix.IndexPosts(context.Background(), posts, false); err != nil {
			b.Fatal(err)
		}
	}
}
