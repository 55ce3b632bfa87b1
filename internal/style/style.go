// Package style implements the style-profile retriever (C5): the
// per-category rulebook lookup and the theme-matched excerpt search.
package style

import (
	"context"
	"fmt"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/reranker"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/search"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/store"
)

// Retriever exposes retrieve_profile and retrieve_excerpts (§4.5).
type Retriever struct {
	embedder search.Embedder
	docs     store.Store
	rerank   *reranker.Gateway // nil means "absent"
}

// New builds a Retriever. rr may be nil to run without a reranker.
func New(embedder search.Embedder, docs store.Store, rr *reranker.Gateway) *Retriever {
	return &Retriever{embedder: embedder, docs: docs, rerank: rr}
}

// RetrieveProfile returns the body text of the unique style profile for
// category, or an empty string if none exists. Never reranked — there is
// at most one.
func (r *Retriever) RetrieveProfile(ctx context.Context, category core.ArticleType) (string, error) {
	rec, err := r.docs.StyleProfile(ctx, category)
	if err != nil {
		return "", fmt.Errorf("%w: style profile: %v", core.ErrRetrieval, err)
	}
	if rec == nil {
		return "", nil
	}
	return rec.Body, nil
}

// RetrieveExcerpts implements §4.5's retrieve_excerpts: embed theme, fetch
// 2*topK excerpt candidates, then either rerank down to topK or just take
// the first topK. Ordered and deduplicated by identifier.
func (r *Retriever) RetrieveExcerpts(ctx context.Context, theme string, category core.ArticleType, topK int) ([]string, error) {
	if topK <= 0 {
		topK = 3
	}

	themeVec, err := r.embedder.Embed(ctx, theme)
	if err != nil {
		return nil, fmt.Errorf("%w: embed theme: %v", core.ErrRetrieval, err)
	}

	candidates, err := r.docs.StyleExcerpts(ctx, themeVec, category, topK*2)
	if err != nil {
		return nil, fmt.Errorf("%w: style excerpts: %v", core.ErrRetrieval, err)
	}

	candidates = dedupeByID(candidates)

	if r.rerank != nil {
		passages := make([]core.Passage, len(candidates))
		for i, c := range candidates {
			passages[i] = core.Passage{ID: c.ID, Body: c.Body, Category: c.Category}
		}
		reranked, err := r.rerank.Rerank(ctx, theme, passages, topK)
		if err != nil {
			return nil, fmt.Errorf("%w: rerank excerpts: %v", core.ErrRetrieval, err)
		}
		out := make([]string, len(reranked))
		for i, rr := range reranked {
			out[i] = rr.Passage.Body
		}
		return out, nil
	}

	if topK < len(candidates) {
		candidates = candidates[:topK]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Body
	}
	return out, nil
}

func dedupeByID(recs []core.StyleRecord) []core.StyleRecord {
	seen := make(map[string]bool, len(recs))
	out := make([]core.StyleRecord, 0, len(recs))
	for _, r := range recs {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}
