package indexer

import (
	"github.com/forumbase/postsearch/internal/indexer/schema"
	"github.com/forumbase/postsearch/internal/store"
)

// Document is the indexed representation of one post. The JSON tags are the
// schema field names; the engine walks the struct through them. Documents are
// constructed transiently per post during indexing and never persisted
// outside the index itself.
type Document struct {
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Content      string  `json:"content"`
	Tags         string  `json:"tags"`
	TopLevel     bool    `json:"is_toplevel"`
	LasteditDate float64 `json:"lastedit_date"`
	AuthorUID    string  `json:"author_uid"`
	Rank         float64 `json:"rank"`
	Author       string  `json:"author"`
	AuthorURL    string  `json:"author_url"`
	UID          string  `json:"uid"`
	Type         string  `json:"type"`
}

// BleveType classifies the document for the engine's type-scoped mapping.
func (d Document) BleveType() string {
	return schema.DocType
}

// FromPost maps a post record to its indexed document. Title is kept empty
// for non-top-level posts so comment and answer text never pollutes
// title-field matches; everything else is copied 1:1 from the post and its
// author profile.
func FromPost(p store.Post) Document {
	title := ""
	if p.TopLevel {
		title = p.Title
	}
	return Document{
		Title:        title,
		URL:          p.URL(),
		Content:      p.Content,
		Tags:         p.TagVal,
		TopLevel:     p.TopLevel,
		LasteditDate: float64(p.LasteditDate.Unix()),
		AuthorUID:    p.Author.UID,
		Rank:         p.Rank,
		Author:       p.Author.Name,
		AuthorURL:    p.Author.URL(),
		UID:          p.UID,
		Type:         p.Type,
	}
}
