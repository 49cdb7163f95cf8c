// Package migration removes the duplicated featured image from document
// bodies. It decides per document whether the first image block is the
// featured image, and drives that decision across the eligible document set
// one page at a time.
package migration

import (
	"context"
	"errors"

	"github.com/eringen/featuredfix/blocks"
)

// ErrNotFound is returned by a DocumentStore when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Status is a document publication status.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
	StatusPrivate   Status = "private"
)

// Document is a stored document as seen by the migration.
type Document struct {
	ID              int64       `json:"id"`
	Title           string      `json:"title"`
	Status          Status      `json:"status"`
	Type            string      `json:"type"`
	FeaturedImageID int64       `json:"featured_image_id"`
	Structured      bool        `json:"structured"`
	Body            blocks.Tree `json:"body,omitempty"`
	Raw             string      `json:"raw,omitempty"` // unstructured body, set when Structured is false
}

// Filter selects the documents a page is drawn from.
type Filter struct {
	Status           Status
	HasFeaturedImage bool
	Types            []string
}

// EligibleFilter selects published documents of the given types that have a
// featured image.
func EligibleFilter(types ...string) Filter {
	return Filter{
		Status:           StatusPublished,
		HasFeaturedImage: true,
		Types:            types,
	}
}

// DocumentStore is the persistence the migration reads from and writes to.
// FetchDocuments must return documents in a stable order so that offsets
// address the same documents across calls.
type DocumentStore interface {
	CountDocuments(ctx context.Context, f Filter) (int, error)
	FetchDocuments(ctx context.Context, f Filter, offset, limit int) ([]Document, error)
	GetDocument(ctx context.Context, id int64) (Document, error)
	WriteBody(ctx context.Context, id int64, body blocks.Tree) error
}

// State is the persisted pair of flags driving the operator notice.
type State struct {
	NoticeVisible     bool `json:"notice_visible"`
	MigrationComplete bool `json:"migration_complete"`
}

// ShowNotice reports whether the operator should be prompted to migrate.
func (s State) ShowNotice() bool {
	return s.NoticeVisible && !s.MigrationComplete
}

// FlagStore persists State.
type FlagStore interface {
	LoadState(ctx context.Context) (State, error)
	SaveState(ctx context.Context, s State) error
}
