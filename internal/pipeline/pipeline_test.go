package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

func TestResolveCategory(t *testing.T) {
	tests := []struct {
		name       string
		parsed     core.ArticleType
		classified core.ArticleType
		confidence float64
		want       core.ArticleType
	}{
		{
			name:       "no parsed category falls back to classifier",
			parsed:     "",
			classified: core.Interview,
			confidence: 0.9,
			want:       core.Interview,
		},
		{
			name:       "parsed agrees with classifier",
			parsed:     core.Culture,
			classified: core.Culture,
			confidence: 0.9,
			want:       core.Culture,
		},
		{
			name:       "parsed disagrees but classifier confident, parsed wins",
			parsed:     core.Culture,
			classified: core.Interview,
			confidence: 0.9,
			want:       core.Culture,
		},
		{
			name:       "parsed disagrees and classifier unsure, classifier wins",
			parsed:     core.Culture,
			classified: core.Interview,
			confidence: 0.49,
			want:       core.Interview,
		},
		{
			name:       "confidence exactly at the boundary keeps parsed",
			parsed:     core.Culture,
			classified: core.Interview,
			confidence: 0.5,
			want:       core.Culture,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveCategory(tt.parsed, tt.classified, tt.confidence)
			if got != tt.want {
				t.Errorf("resolveCategory(%q, %q, %v) = %q, want %q", tt.parsed, tt.classified, tt.confidence, got, tt.want)
			}
		})
	}
}

func TestClassifyMapsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	underlying := errors.New("retrieve: connection reset")
	got := classify(ctx, underlying)
	if !errors.Is(got, core.ErrCancelled) {
		t.Errorf("classify() = %v, want wrapped core.ErrCancelled", got)
	}
}

func TestClassifyLeavesOtherErrorsAlone(t *testing.T) {
	ctx := context.Background()
	underlying := errors.New("boom")
	got := classify(ctx, underlying)
	if !errors.Is(got, underlying) {
		t.Errorf("classify() = %v, want unchanged %v", got, underlying)
	}
}

func TestMaxInt(t *testing.T) {
	tests := []struct {
		n, floor, want int
	}{
		{0, 3, 3},
		{-1, 3, 3},
		{5, 3, 5},
	}
	for _, tt := range tests {
		if got := maxInt(tt.n, tt.floor); got != tt.want {
			t.Errorf("maxInt(%d, %d) = %d, want %d", tt.n, tt.floor, got, tt.want)
		}
	}
}

func TestNonZero(t *testing.T) {
	if got := nonZero(0, 5*time.Second); got != 5*time.Second {
		t.Errorf("nonZero(0, 5s) = %v, want 5s", got)
	}
	if got := nonZero(2*time.Second, 5*time.Second); got != 2*time.Second {
		t.Errorf("nonZero(2s, 5s) = %v, want 2s", got)
	}
}

func TestPassageBodies(t *testing.T) {
	passages := []core.Passage{{Body: "a"}, {Body: "b"}}
	got := passageBodies(passages)
	want := []string{"a", "b"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("passageBodies() = %v, want %v", got, want)
	}
}
