package reranker

import (
	"context"
	"math"
	"testing"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

type fakeScorer struct {
	scores map[string]float64
}

func (f fakeScorer) Score(ctx context.Context, query, passageBody string) (float64, error) {
	return f.scores[passageBody], nil
}

func TestRerankOrdersByRawScoreDescending(t *testing.T) {
	scorer := fakeScorer{scores: map[string]float64{"low": -1, "high": 3, "mid": 0.5}}
	gw := New(scorer, 10)

	passages := []core.Passage{{ID: "a", Body: "low"}, {ID: "b", Body: "high"}, {ID: "c", Body: "mid"}}
	out, err := gw.Rerank(context.Background(), "q", passages, 10)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(out) != 3 || out[0].Passage.ID != "b" || out[1].Passage.ID != "c" || out[2].Passage.ID != "a" {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func TestRerankNormalizesWithSigmoid(t *testing.T) {
	scorer := fakeScorer{scores: map[string]float64{"x": 0}}
	gw := New(scorer, 10)

	out, err := gw.Rerank(context.Background(), "q", []core.Passage{{ID: "a", Body: "x"}}, 10)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if math.Abs(out[0].Normalized-0.5) > 1e-9 {
		t.Errorf("Normalized = %v, want 0.5 for raw score 0", out[0].Normalized)
	}
}

func TestRerankTruncatesToTopK(t *testing.T) {
	scorer := fakeScorer{scores: map[string]float64{"a": 1, "b": 2, "c": 3}}
	gw := New(scorer, 10)

	passages := []core.Passage{{ID: "a", Body: "a"}, {ID: "b", Body: "b"}, {ID: "c", Body: "c"}}
	out, err := gw.Rerank(context.Background(), "q", passages, 2)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0].Passage.ID != "c" || out[1].Passage.ID != "b" {
		t.Errorf("unexpected top-2: %+v", out)
	}
}

func TestNewDefaultsTopK(t *testing.T) {
	gw := New(fakeScorer{}, 0)
	if gw.TopK() != 10 {
		t.Errorf("TopK() = %d, want 10 (default)", gw.TopK())
	}
}
