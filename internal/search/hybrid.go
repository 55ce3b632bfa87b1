// Package search implements the hybrid searcher (C4): parallel vector and
// lexical retrieval fused by Reciprocal Rank Fusion, with an optional
// cross-encoder rerank pass.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/logger"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/reranker"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/store"
)

// Embedder is the subset of the gateway the searcher needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RerankScoreAttr is the attribute-bag key attached to passages that were
// reordered by the reranker (§4.4 step 5).
const RerankScoreAttr = "rerank_score_normalized"

// Params bundles the tunables of Search so call sites don't need three
// positional ints.
type Params struct {
	KPerSource int
	FinalK     int
	RRFK       int
}

// DefaultParams matches the defaults named in §4.4.
var DefaultParams = Params{KPerSource: 20, FinalK: 10, RRFK: 60}

// Searcher drives the fan-out/fan-in hybrid search algorithm.
type Searcher struct {
	embedder Embedder
	docs     store.Store
	rerank   *reranker.Gateway // nil means "absent" — graceful degradation (§4.2)
	log      *slog.Logger
}

// New builds a Searcher. rr may be nil to run without a reranker.
func New(embedder Embedder, docs store.Store, rr *reranker.Gateway) *Searcher {
	return &Searcher{embedder: embedder, docs: docs, rerank: rr, log: logger.Get()}
}

// Search implements the algorithm of §4.4: embed once, fan out to the
// vector and trigram lanes concurrently, fuse by RRF, optionally rerank.
func (s *Searcher) Search(ctx context.Context, queryText string, category core.ArticleType, p Params) ([]core.Passage, error) {
	if p.KPerSource <= 0 {
		p = DefaultParams
	}

	queryVec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", core.ErrRetrieval, err)
	}

	var vectorHits, trigramHits []store.Ranked
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := s.docs.VectorSearch(gctx, queryVec, category, p.KPerSource)
		if err != nil {
			return fmt.Errorf("vector lane: %w", err)
		}
		vectorHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := s.docs.TrigramSearch(gctx, queryText, category, p.KPerSource, store.DefaultMinTrigramSimilarity)
		if err != nil {
			return fmt.Errorf("trigram lane: %w", err)
		}
		trigramHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		// One lane failing transiently fails the whole call: the downstream
		// prompt assumes a certain breadth of reference (§4.4 edge cases).
		return nil, fmt.Errorf("%w: %v", core.ErrRetrieval, err)
	}

	if len(vectorHits) == 0 && len(trigramHits) == 0 {
		return nil, nil
	}

	fused := fuseRRFWithK(p.RRFK, vectorHits, trigramHits)
	if p.FinalK > 0 && p.FinalK < len(fused) {
		fused = fused[:p.FinalK]
	}
	passages := make([]core.Passage, len(fused))
	for i, f := range fused {
		passages[i] = f.passage
	}

	if s.rerank != nil && p.FinalK > s.rerankTopK() {
		reranked, err := s.rerank.Rerank(ctx, queryText, passages, s.rerankTopK())
		if err != nil {
			return nil, fmt.Errorf("%w: rerank: %v", core.ErrRetrieval, err)
		}
		out := make([]core.Passage, len(reranked))
		for i, r := range reranked {
			p := r.Passage
			if p.Attrs == nil {
				p.Attrs = map[string]string{}
			} else {
				// don't mutate the shared RRF-ordering copy
				cp := make(map[string]string, len(p.Attrs)+1)
				for k, v := range p.Attrs {
					cp[k] = v
				}
				p.Attrs = cp
			}
			p.Attrs[RerankScoreAttr] = strconv.FormatFloat(r.Normalized, 'f', 6, 64)
			out[i] = p
		}
		return out, nil
	}

	return passages, nil
}

// rerankTopK reports the reranker's configured top-K, or 0 if absent.
func (s *Searcher) rerankTopK() int {
	if s.rerank == nil {
		return 0
	}
	return s.rerank.TopK()
}

type fusedPassage struct {
	passage  core.Passage
	score    float64
	bestRank int
}

// fuseRRFWithK implements step 3/4 of §4.4: RRF scoring, deduplication by
// identifier (summing scores on collision), then ordering by score
// descending, smallest observed rank, then identifier ascending.
//
// Commutative in its two inputs by construction: every passage's
// contribution from each list is summed independently of list order.
func fuseRRFWithK(k int, lists ...[]store.Ranked) []fusedPassage {
	byID := make(map[string]*fusedPassage)
	var order []string
	for _, list := range lists {
		for _, r := range list {
			fp, ok := byID[r.Passage.ID]
			if !ok {
				fp = &fusedPassage{passage: r.Passage, bestRank: r.Rank}
				byID[r.Passage.ID] = fp
				order = append(order, r.Passage.ID)
			} else if r.Rank < fp.bestRank {
				fp.bestRank = r.Rank
			}
			fp.score += 1.0 / float64(k+r.Rank)
		}
	}

	out := make([]fusedPassage, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].bestRank != out[j].bestRank {
			return out[i].bestRank < out[j].bestRank
		}
		return out[i].passage.ID < out[j].passage.ID
	})
	return out
}
