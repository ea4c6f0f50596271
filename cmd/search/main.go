// Command search runs a query against the post index and prints ranked,
// excerpted results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/forumbase/postsearch/internal/searcher"
	"github.com/forumbase/postsearch/internal/searcher/cache"
	"github.com/forumbase/postsearch/pkg/config"
	pserrors "github.com/forumbase/postsearch/pkg/errors"
	"github.com/forumbase/postsearch/pkg/logger"
	pkgredis "github.com/forumbase/postsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	fields := flag.String("fields", "content", "comma-separated fields to search")
	limit := flag.Int("limit", 0, "maximum results (0 = configured default)")
	sortBy := flag.String("sort", "", "sort expression, e.g. -rank (default: relevance)")
	noCache := flag.Bool("no-cache", false, "bypass the Redis query cache")
	flag.Parse()

	q := strings.Join(flag.Args(), " ")
	if q == "" {
		fmt.Fprintln(os.Stderr, "usage: search [flags] <query terms>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup("error", "text")

	fieldList := strings.Split(*fields, ",")
	opts := []searcher.Option{
		searcher.WithFields(fieldList...),
	}
	if *limit > 0 {
		opts = append(opts, searcher.WithLimit(*limit))
	}
	if *sortBy != "" {
		opts = append(opts, searcher.WithSortBy(*sortBy))
	}

	ctx := context.Background()
	s := searcher.New(cfg.Index, cfg.Search, nil)
	run := func() (*searcher.ResultSet, error) {
		return s.Search(ctx, q, opts...)
	}

	var (
		set    *searcher.ResultSet
		cached bool
	)
	// Sorted queries bypass the cache: the key does not carry the sort order.
	if !*noCache && *sortBy == "" {
		if redisClient, rerr := pkgredis.NewClient(cfg.Redis); rerr == nil {
			defer redisClient.Close()
			qc := cache.New(redisClient, cfg.Redis, nil)
			set, cached, err = qc.GetOrCompute(ctx, q, fieldList, *limit, run)
		} else {
			set, err = run()
		}
	} else {
		set, err = run()
	}
	if err != nil {
		switch {
		case errors.Is(err, pserrors.ErrIndexUnavailable):
			fmt.Fprintln(os.Stderr, "search unavailable: index missing or unreadable")
		case errors.Is(err, pserrors.ErrInvalidFieldSet):
			fmt.Fprintf(os.Stderr, "invalid fields: %v\n", err)
		default:
			fmt.Fprintf(os.Stderr, "search failed: %v\n", err)
		}
		os.Exit(1)
	}

	source := "index"
	if cached {
		source = "cache"
	}
	fmt.Printf("%d results for %q (showing %d, %s, from %s)\n\n", set.Total, set.Query, len(set.Results), set.Took, source)
	for i, r := range set.Results {
		title := r.Title
		if title == "" {
			title = "(" + strings.ToLower(r.Type) + ")"
		}
		fmt.Printf("%2d. [%.3f] %s  %s\n", i+1, r.Score, title, r.URL)
		fmt.Printf("    by %s, edited %s\n", r.Author, r.LasteditDate.Format("2006-01-02"))
		for field, frags := range r.Fragments {
			for _, frag := range frags {
				fmt.Printf("    %s: …%s…\n", field, frag.Text)
			}
		}
		fmt.Println()
	}
}
