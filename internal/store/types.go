// Package store reads forum post records and their author profiles from the
// relational store. It is the input collaborator of the indexing pipeline:
// posts are read in a single pass, soft-deleted posts are excluded, and no
// lock is held across a run.
package store

import (
	"fmt"
	"time"
)

// Status is the moderation state of a post.
type Status int

const (
	StatusPending Status = iota
	StatusOpen
	StatusClosed
	StatusDeleted
)

// Author is the subset of a user profile the document mapper needs.
type Author struct {
	Name string
	UID  string
}

// URL returns the canonical profile URL for the author.
func (a Author) URL() string {
	return fmt.Sprintf("/u/%s/", a.UID)
}

// Post is a single forum post record: a question, answer, or comment.
// It exposes exactly the fields the document mapper consumes, decoupling
// indexing from the storage layer's row format.
type Post struct {
	UID          string
	Type         string
	Title        string
	Content      string
	TagVal       string
	Rank         float64
	LasteditDate time.Time
	TopLevel     bool
	Status       Status
	RootUID      string
	Author       Author
}

// HasRoot reports whether the post carries a root-post reference. Posts
// without one are data-integrity artifacts of partial imports and are
// skipped by the indexer.
func (p Post) HasRoot() bool {
	return p.RootUID != ""
}

// URL returns the canonical URL for the post: the thread page for top-level
// posts, an anchored position inside the thread otherwise.
func (p Post) URL() string {
	if p.TopLevel {
		return fmt.Sprintf("/p/%s/", p.UID)
	}
	return fmt.Sprintf("/p/%s/#%s", p.RootUID, p.UID)
}
