// Package reranker implements the cross-encoder reranker gateway (C2).
//
// The reranker model is large and slow to load, so it is initialized once
// as a process-wide singleton (§5) and shared across requests. Callers that
// need graceful degradation should treat a nil *Gateway as "reranker
// absent" and bypass it, per §4.2 — this is not an error.
package reranker

import (
	"context"
	"math"
	"sort"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

// Scorer scores a (query, passage) pair and returns a raw cross-encoder
// logit. Concrete implementations wrap whatever model is configured;
// only the contract matters to this package.
type Scorer interface {
	Score(ctx context.Context, query string, passageBody string) (float64, error)
}

// Scored pairs a passage with its reranker scores.
type Scored struct {
	Passage    core.Passage
	RawScore   float64
	Normalized float64 // sigmoid(RawScore)
}

// Gateway wraps a Scorer with the ordering and normalization rules of §4.2.
type Gateway struct {
	scorer Scorer
	topK   int
}

// New builds the gateway around a concrete Scorer. If initialization of the
// underlying model failed upstream, callers should pass a nil *Gateway
// around instead of calling New — see the package doc.
func New(scorer Scorer, topK int) *Gateway {
	if topK <= 0 {
		topK = 10
	}
	return &Gateway{scorer: scorer, topK: topK}
}

// TopK reports the reranker's configured top-K.
func (g *Gateway) TopK() int { return g.topK }

// Rerank scores every passage against query and returns them ordered by raw
// score descending, ties broken by original input order, truncated to
// topK. normalized_score = 1 / (1 + exp(-raw_score)).
func (g *Gateway) Rerank(ctx context.Context, query string, passages []core.Passage, topK int) ([]Scored, error) {
	out := make([]Scored, len(passages))
	for i, p := range passages {
		raw, err := g.scorer.Score(ctx, query, p.Body)
		if err != nil {
			return nil, err
		}
		out[i] = Scored{
			Passage:    p,
			RawScore:   raw,
			Normalized: sigmoid(raw),
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RawScore > out[j].RawScore
	})

	if topK > 0 && topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
