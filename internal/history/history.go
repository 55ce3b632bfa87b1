// Package history implements the history store contract (C11): an
// append-only record of past generations layered over the document store's
// draft-persistence primitives. Writes are best-effort — a save failure is
// logged and swallowed, never surfaced to the generation caller (§4.11,
// §7).
package history

import (
	"context"
	"log/slog"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/logger"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/store"
)

// Store exposes save/list/get/delete over generation history.
type Store struct {
	docs store.Store
	log  *slog.Logger
}

// New builds a Store around the document store's draft tables.
func New(docs store.Store) *Store {
	return &Store{docs: docs, log: logger.Get()}
}

// Save persists a generation record. Failure is logged, not returned, so a
// history-store outage never fails a generation request (§4.11).
func (s *Store) Save(ctx context.Context, inputMaterial string, draft core.Draft) {
	id, err := s.docs.SaveDraft(ctx, inputMaterial, draft)
	if err != nil {
		s.log.Error("history: save failed", "error", err)
		return
	}
	s.log.Info("history: draft saved", "draft_id", id)
}

// List returns history summaries ordered by created_at desc.
func (s *Store) List(ctx context.Context, limit, offset int) ([]core.Draft, error) {
	return s.docs.ListDrafts(ctx, limit, offset)
}

// Get returns a single historical draft, or core.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*core.Draft, error) {
	return s.docs.GetDraft(ctx, id)
}

// Delete removes a historical draft, or core.ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.docs.DeleteDraft(ctx, id)
}
