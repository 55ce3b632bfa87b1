// Package store implements the document store (C3): a read API over a
// relational store with vector and trigram indexes on passage bodies, plus
// the draft-history table's storage primitives.
package store

import (
	"context"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

// Ranked pairs a passage with its 1-based rank within a single retrieval
// lane (vector or trigram). The hybrid searcher (C4) consumes ranks, not
// raw scores, when fusing lanes.
type Ranked struct {
	Passage core.Passage
	Rank    int
}

// Store is the document-store contract consumed by the hybrid searcher,
// the style-profile retriever, and the history endpoints.
type Store interface {
	// VectorSearch returns up to limit passages for category ordered by
	// cosine distance ascending, with 1-based rank attached.
	VectorSearch(ctx context.Context, queryVec []float32, category core.ArticleType, limit int) ([]Ranked, error)

	// TrigramSearch returns up to limit passages for category whose
	// trigram similarity to queryText exceeds minSimilarity, ordered by
	// similarity descending, with 1-based rank attached.
	TrigramSearch(ctx context.Context, queryText string, category core.ArticleType, limit int, minSimilarity float64) ([]Ranked, error)

	// StyleProfile returns the unique style record of kind "profile" for
	// category, or (nil, nil) if none exists.
	StyleProfile(ctx context.Context, category core.ArticleType) (*core.StyleRecord, error)

	// StyleExcerpts returns up to limit style records of kind "excerpt"
	// for category ordered by cosine distance to queryVec ascending.
	StyleExcerpts(ctx context.Context, queryVec []float32, category core.ArticleType, limit int) ([]core.StyleRecord, error)

	// SaveDraft persists a generation record to the append-only history
	// table and returns its identifier.
	SaveDraft(ctx context.Context, inputMaterial string, draft core.Draft) (string, error)

	// ListDrafts returns history summaries ordered by created_at desc.
	ListDrafts(ctx context.Context, limit, offset int) ([]core.Draft, error)

	// GetDraft returns a single historical draft, or core.ErrNotFound.
	GetDraft(ctx context.Context, id string) (*core.Draft, error)

	// DeleteDraft removes a historical draft, or core.ErrNotFound.
	DeleteDraft(ctx context.Context, id string) error
}

// DefaultMinTrigramSimilarity is the default threshold from §4.3.
const DefaultMinTrigramSimilarity = 0.1
