package searcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forumbase/postsearch/internal/indexer"
	"github.com/forumbase/postsearch/internal/searcher"
	"github.com/forumbase/postsearch/internal/searcher/highlight"
	"github.com/forumbase/postsearch/internal/store"
	"github.com/forumbase/postsearch/pkg/config"
	pserrors "github.com/forumbase/postsearch/pkg/errors"
)

var searchCfg = config.SearchConfig{SimilarFeedCount: 30, MaxResults: 100}

func fixturePosts() []store.Post {
	edited := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	return []store.Post{
		{
			UID: "p1", Type: "Question", Title: "Merging BAM files with samtools",
			Content:      "What is the recommended way to merge several BAM files into one?",
			TagVal:       "samtools bam", Rank: 40, LasteditDate: edited,
			TopLevel: true, Status: store.StatusOpen, RootUID: "p1",
			Author: store.Author{Name: "Ada", UID: "u1"},
		},
		{
			UID: "p2", Type: "Answer",
			Content:      "Use samtools merge, it handles sorted BAM inputs directly.",
			TagVal:       "samtools", Rank: 25, LasteditDate: edited,
			TopLevel: false, Status: store.StatusOpen, RootUID: "p1",
			Author: store.Author{Name: "Grace", UID: "u2"},
		},
		{
			UID: "p3", Type: "Question", Title: "Calling variants on hg38",
			Content:      "Which caller do you prefer for germline variants on the hg38 reference?",
			TagVal:       "variant-calling hg38", Rank: 60, LasteditDate: edited,
			TopLevel: true, Status: store.StatusOpen, RootUID: "p3",
			Author: store.Author{Name: "Linus", UID: "u3"},
		},
	}
}

func buildFixtureIndex(t *testing.T) config.IndexConfig {
	t.Helper()
	cfg := config.IndexConfig{Dir: t.TempDir(), Name: "posts"}
	ix := indexer.New(cfg, nil)
	require.NoError(t, ix.IndexPosts(context.Background(), fixturePosts(), true))
	return cfg
}

func TestSearch_ContentDefaultField(t *testing.T) {
	s := searcher.New(buildFixtureIndex(t), searchCfg, nil)

	set, err := s.Search(context.Background(), "samtools merge")
	require.NoError(t, err)
	assert.EqualValues(t, 2, set.Total)
	assert.Equal(t, "samtools merge", set.Query)

	uids := resultUIDs(set)
	assert.ElementsMatch(t, []string{"p1", "p2"}, uids)
}

func TestSearch_StoredFieldsRoundTrip(t *testing.T) {
	s := searcher.New(buildFixtureIndex(t), searchCfg, nil)

	set, err := s.Search(context.Background(), "germline")
	require.NoError(t, err)
	require.Len(t, set.Results, 1)

	r := set.Results[0]
	assert.Equal(t, "p3", r.UID)
	assert.Equal(t, "Calling variants on hg38", r.Title)
	assert.Equal(t, "/p/p3/", r.URL)
	assert.Equal(t, "Question", r.Type)
	assert.Equal(t, "variant-calling hg38", r.Tags)
	assert.True(t, r.TopLevel)
	assert.Equal(t, float64(60), r.Rank)
	assert.Equal(t, "Linus", r.Author)
	assert.Equal(t, "u3", r.AuthorUID)
	assert.Equal(t, "/u/u3/", r.AuthorURL)
	assert.Equal(t, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), r.LasteditDate)
	assert.Greater(t, r.Score, 0.0)
}

func TestSearch_TitleFieldScoping(t *testing.T) {
	s := searcher.New(buildFixtureIndex(t), searchCfg, nil)

	set, err := s.Search(context.Background(), "merging", searcher.WithFields("title"))
	require.NoError(t, err)
	require.Len(t, set.Results, 1)
	assert.Equal(t, "p1", set.Results[0].UID)

	// Title text from a non-toplevel post is never indexed.
	set, err = s.Search(context.Background(), "sorted", searcher.WithFields("title"))
	require.NoError(t, err)
	assert.Empty(t, set.Results)
}

func TestSearch_MultiFieldDisjunction(t *testing.T) {
	s := searcher.New(buildFixtureIndex(t), searchCfg, nil)

	set, err := s.Search(context.Background(), "hg38", searcher.WithFields("title", "content", "tags"))
	require.NoError(t, err)
	require.Len(t, set.Results, 1)
	assert.Equal(t, "p3", set.Results[0].UID)

	// Tag-only token still matches through the tags field.
	set, err = s.Search(context.Background(), "variant-calling", searcher.WithFields("tags"))
	require.NoError(t, err)
	require.Len(t, set.Results, 1)
	assert.Equal(t, "p3", set.Results[0].UID)
}

func TestSearch_AuthorField(t *testing.T) {
	s := searcher.New(buildFixtureIndex(t), searchCfg, nil)

	set, err := s.Search(context.Background(), "grace", searcher.WithFields("author"))
	require.NoError(t, err)
	require.Len(t, set.Results, 1)
	assert.Equal(t, "p2", set.Results[0].UID)
}

func TestSearch_StopwordOnlyQueryMatchesNothing(t *testing.T) {
	s := searcher.New(buildFixtureIndex(t), searchCfg, nil)

	for _, q := range []string{"", "   ", "the and of", "the who where", "WHEN you are"} {
		set, err := s.Search(context.Background(), q)
		require.NoError(t, err, "query %q", q)
		assert.Empty(t, set.Results, "query %q", q)
		assert.EqualValues(t, 0, set.Total, "query %q", q)
	}
}

func TestSearch_InvalidFields(t *testing.T) {
	s := searcher.New(buildFixtureIndex(t), searchCfg, nil)

	_, err := s.Search(context.Background(), "samtools", searcher.WithFields("nope"))
	require.ErrorIs(t, err, pserrors.ErrInvalidFieldSet)

	// uid is stored but not searchable.
	_, err = s.Search(context.Background(), "p1", searcher.WithFields("uid"))
	require.ErrorIs(t, err, pserrors.ErrInvalidFieldSet)
}

func TestSearch_MissingIndex(t *testing.T) {
	cfg := config.IndexConfig{Dir: t.TempDir(), Name: "posts"}
	s := searcher.New(cfg, searchCfg, nil)

	_, err := s.Search(context.Background(), "samtools")
	require.ErrorIs(t, err, pserrors.ErrIndexUnavailable)
}

func TestSearch_LimitAndClamp(t *testing.T) {
	s := searcher.New(buildFixtureIndex(t), searchCfg, nil)

	set, err := s.Search(context.Background(), "samtools merge", searcher.WithLimit(1))
	require.NoError(t, err)
	assert.Len(t, set.Results, 1)
	assert.EqualValues(t, 2, set.Total, "total reflects all matches, not the page")

	// A limit above MaxResults is clamped rather than rejected.
	clamped := searcher.New(buildFixtureIndex(t), config.SearchConfig{SimilarFeedCount: 30, MaxResults: 2}, nil)
	set, err = clamped.Search(context.Background(), "samtools merge bam variants", searcher.WithLimit(1000))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(set.Results), 2)
}

func TestSearch_SortByRank(t *testing.T) {
	s := searcher.New(buildFixtureIndex(t), searchCfg, nil)

	set, err := s.Search(context.Background(), "samtools variants bam",
		searcher.WithFields("content", "tags"),
		searcher.WithSortBy("-rank"),
	)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(set.Results), 2)
	for i := 1; i < len(set.Results); i++ {
		assert.GreaterOrEqual(t, set.Results[i-1].Rank, set.Results[i].Rank)
	}
}

func TestSearch_Highlighting(t *testing.T) {
	s := searcher.New(buildFixtureIndex(t), searchCfg, nil)

	set, err := s.Search(context.Background(), "germline variants")
	require.NoError(t, err)
	require.Len(t, set.Results, 1)

	frags, ok := set.Results[0].Fragments["content"]
	require.True(t, ok, "matched field carries excerpt fragments")
	require.NotEmpty(t, frags)
	for _, frag := range frags {
		assert.LessOrEqual(t, len(frag.Text), highlight.MaxChars)
		require.NotEmpty(t, frag.Spans)
		for _, sp := range frag.Spans {
			assert.Less(t, sp.Start, sp.End)
			assert.LessOrEqual(t, sp.End, len(frag.Text))
		}
	}
}

func resultUIDs(set *searcher.ResultSet) []string {
	uids := make([]string, 0, len(set.Results))
	for _, r := range set.Results {
		uids = append(uids, r.UID)
	}
	return uids
}
