package store

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"

	pserrors "github.com/forumbase/postsearch/pkg/errors"
	"github.com/forumbase/postsearch/pkg/logger"
)

const postColumns = `
	p.uid, p.type, p.title, p.content, p.tag_val, p.rank,
	p.lastedit_date, p.is_toplevel, p.status, p.root_uid,
	a.name, a.uid`

// Store reads posts from PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Store over an open connection pool.
func New(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("post-store"),
	}
}

// Posts returns every non-deleted post with its author profile, ordered by
// UID for deterministic indexing runs.
func (s *Store) Posts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN authors a ON a.id = p.author_id
		WHERE p.status <> $1
		ORDER BY p.uid`,
		int(StatusDeleted),
	)
	if err != nil {
		return nil, pserrors.Wrap(pserrors.ErrPostStore, err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

// PostsByUID returns the non-deleted posts matching the given UIDs, ordered
// by UID. UIDs with no matching row (e.g. since-deleted posts) are simply
// absent from the result.
func (s *Store) PostsByUID(ctx context.Context, uids []string) ([]Post, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN authors a ON a.id = p.author_id
		WHERE p.status <> $1 AND p.uid = ANY($2)
		ORDER BY p.uid`,
		int(StatusDeleted),
		pq.Array(uids),
	)
	if err != nil {
		return nil, pserrors.Wrap(pserrors.ErrPostStore, err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		var (
			p       Post
			status  int
			rootUID sql.NullString
		)
		if err := rows.Scan(
			&p.UID, &p.Type, &p.Title, &p.Content, &p.TagVal, &p.Rank,
			&p.LasteditDate, &p.TopLevel, &status, &rootUID,
			&p.Author.Name, &p.Author.UID,
		); err != nil {
			return nil, pserrors.Wrap(pserrors.ErrPostStore, err)
		}
		p.Status = Status(status)
		if rootUID.Valid {
			p.RootUID = rootUID.String
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, pserrors.Wrap(pserrors.ErrPostStore, err)
	}
	return posts, nil
}
