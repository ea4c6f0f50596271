// Package searcher executes multi-field queries against the post index and
// produces ranked results with stored field values and highlighted excerpts.
//
// Matching policy: terms are OR-combined across the requested fields, so a
// document matches if any of its tokenized terms matches any field. An empty
// or stopword-only query matches nothing.
package searcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/forumbase/postsearch/internal/indexer"
	"github.com/forumbase/postsearch/internal/indexer/schema"
	"github.com/forumbase/postsearch/internal/indexer/tokenizer"
	"github.com/forumbase/postsearch/internal/searcher/highlight"
	"github.com/forumbase/postsearch/pkg/config"
	pserrors "github.com/forumbase/postsearch/pkg/errors"
	"github.com/forumbase/postsearch/pkg/logger"
	"github.com/forumbase/postsearch/pkg/metrics"
)

// DefaultFields is the field set searched when the caller names none.
var DefaultFields = []string{"content"}

// Result is one matched post with its stored field values, relevance score,
// and highlighted excerpts keyed by field name.
type Result struct {
	UID          string                          `json:"uid"`
	Title        string                          `json:"title"`
	URL          string                          `json:"url"`
	Type         string                          `json:"type"`
	Content      string                          `json:"content"`
	Tags         string                          `json:"tags"`
	TopLevel     bool                            `json:"is_toplevel"`
	LasteditDate time.Time                       `json:"lastedit_date"`
	Rank         float64                         `json:"rank"`
	Author       string                          `json:"author"`
	AuthorUID    string                          `json:"author_uid"`
	AuthorURL    string                          `json:"author_url"`
	Score        float64                         `json:"score"`
	Fragments    map[string][]highlight.Fragment `json:"fragments,omitempty"`
}

// ResultSet is the ordered outcome of one query.
type ResultSet struct {
	Query   string        `json:"query"`
	Total   uint64        `json:"total"`
	Took    time.Duration `json:"took"`
	Results []Result      `json:"results"`
}

// Option adjusts a single search call.
type Option func(*options)

type options struct {
	fields []string
	limit  int
	sortBy []string
}

// WithFields sets the schema fields the query string is matched against.
func WithFields(fields ...string) Option {
	return func(o *options) {
		if len(fields) > 0 {
			o.fields = fields
		}
	}
}

// WithLimit caps the number of returned results.
func WithLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.limit = limit
		}
	}
}

// WithSortBy orders results by the given sort expressions (e.g. "-rank")
// instead of pure relevance.
func WithSortBy(orders ...string) Option {
	return func(o *options) {
		o.sortBy = orders
	}
}

// Searcher runs queries against one named index.
type Searcher struct {
	cfg     config.IndexConfig
	search  config.SearchConfig
	schema  *schema.Schema
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Searcher for the configured index location. m may be nil to
// disable metrics.
func New(cfg config.IndexConfig, search config.SearchConfig, m *metrics.Metrics) *Searcher {
	return &Searcher{
		cfg:     cfg,
		search:  search,
		schema:  schema.Define(),
		metrics: m,
		logger:  logger.WithComponent("searcher"),
	}
}

// Search matches q against the requested fields and returns up to the limit
// of ranked results. A missing or unreadable index yields
// ErrIndexUnavailable; a field that is not searchable yields
// ErrInvalidFieldSet.
func (s *Searcher) Search(ctx context.Context, q string, opts ...Option) (*ResultSet, error) {
	start := time.Now()
	o := options{
		fields: DefaultFields,
		limit:  s.search.SimilarFeedCount,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if s.search.MaxResults > 0 && o.limit > s.search.MaxResults {
		o.limit = s.search.MaxResults
	}

	if err := s.schema.ValidateFields(o.fields); err != nil {
		s.countQuery("error")
		return nil, err
	}

	// Stopword-only and blank queries match nothing, by policy.
	if len(tokenizer.Tokenize(q)) == 0 {
		s.countQuery("zero_result")
		return &ResultSet{Query: q, Took: time.Since(start), Results: []Result{}}, nil
	}

	idx, err := indexer.OpenReadOnly(s.cfg.Dir, s.cfg.Name)
	if err != nil {
		s.logger.Error("search index unavailable",
			"index", indexer.IndexPath(s.cfg.Dir, s.cfg.Name),
			"error", err,
		)
		s.countQuery("error")
		return nil, err
	}
	defer idx.Close()

	req := bleve.NewSearchRequestOptions(s.buildQuery(q, o.fields), o.limit, 0, false)
	req.Fields = []string{"*"}
	req.IncludeLocations = true
	if len(o.sortBy) > 0 {
		req.SortBy(o.sortBy)
	}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		s.countQuery("error")
		return nil, pserrors.Wrap(pserrors.ErrIndexUnavailable, err)
	}

	set := &ResultSet{
		Query:   q,
		Total:   res.Total,
		Took:    time.Since(start),
		Results: make([]Result, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		set.Results = append(set.Results, s.convertHit(hit.ID, hit.Score, hit.Fields, hit.Locations, o.fields))
	}

	s.observe(set, start)
	s.logger.Debug("query executed",
		"query", q,
		"fields", o.fields,
		"total", res.Total,
		"returned", len(set.Results),
		"took", set.Took,
	)
	return set, nil
}

// buildQuery OR-combines a per-field match query for every requested field.
// Each match query analyzes q with the field's own analyzer, so query terms
// go through the exact pipeline the field was indexed with.
func (s *Searcher) buildQuery(q string, fields []string) query.Query {
	subs := make([]query.Query, 0, len(fields))
	for _, field := range fields {
		mq := bleve.NewMatchQuery(q)
		mq.SetField(field)
		subs = append(subs, mq)
	}
	if len(subs) == 1 {
		return subs[0]
	}
	return bleve.NewDisjunctionQuery(subs...)
}

func (s *Searcher) convertHit(
	id string,
	score float64,
	stored map[string]interface{},
	locations search.FieldTermLocationMap,
	fields []string,
) Result {
	r := Result{
		UID:       id,
		Title:     storedString(stored, "title"),
		URL:       storedString(stored, "url"),
		Type:      storedString(stored, "type"),
		Content:   storedString(stored, "content"),
		Tags:      storedString(stored, "tags"),
		TopLevel:  storedBool(stored, "is_toplevel"),
		Rank:      storedFloat(stored, "rank"),
		Author:    storedString(stored, "author"),
		AuthorUID: storedString(stored, "author_uid"),
		AuthorURL: storedString(stored, "author_url"),
		Score:     score,
	}
	if ts := storedFloat(stored, "lastedit_date"); ts > 0 {
		r.LasteditDate = time.Unix(int64(ts), 0).UTC()
	}

	for _, field := range fields {
		termLocs, ok := locations[field]
		if !ok {
			continue
		}
		text := storedString(stored, field)
		if text == "" {
			continue
		}
		frags := highlight.Build(text, termLocs)
		if len(frags) == 0 {
			continue
		}
		if r.Fragments == nil {
			r.Fragments = make(map[string][]highlight.Fragment)
		}
		r.Fragments[field] = frags
	}
	return r
}

func (s *Searcher) countQuery(outcome string) {
	if s.metrics != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Searcher) observe(set *ResultSet, start time.Time) {
	outcome := "hit"
	if len(set.Results) == 0 {
		outcome = "zero_result"
	}
	s.countQuery(outcome)
	if s.metrics != nil {
		s.metrics.SearchLatency.Observe(time.Since(start).Seconds())
		s.metrics.SearchResultsCount.Observe(float64(len(set.Results)))
	}
}

func storedString(fields map[string]interface{}, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func storedBool(fields map[string]interface{}, name string) bool {
	v, _ := fields[name].(bool)
	return v
}

func storedFloat(fields map[string]interface{}, name string) float64 {
	v, _ := fields[name].(float64)
	return v
}
