package search

import (
	"testing"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/store"
)

func ranked(id string, rank int) store.Ranked {
	return store.Ranked{Passage: core.Passage{ID: id}, Rank: rank}
}

func TestFuseRRFWithKOrdersByFusedScore(t *testing.T) {
	vector := []store.Ranked{ranked("a", 1), ranked("b", 2), ranked("c", 3)}
	trigram := []store.Ranked{ranked("b", 1), ranked("a", 2)}

	fused := fuseRRFWithK(60, vector, trigram)

	if len(fused) != 3 {
		t.Fatalf("len(fused) = %d, want 3", len(fused))
	}
	// "b" appears at rank 2 (vector) and rank 1 (trigram): 1/62 + 1/61.
	// "a" appears at rank 1 (vector) and rank 2 (trigram): 1/61 + 1/62.
	// Both sums are equal, so the tie breaks on the smaller observed rank (1
	// for both), then on identifier ascending: "a" before "b".
	if fused[0].passage.ID != "a" {
		t.Errorf("fused[0].passage.ID = %q, want %q", fused[0].passage.ID, "a")
	}
	if fused[2].passage.ID != "c" {
		t.Errorf("fused[2].passage.ID = %q, want %q (lowest score, single lane)", fused[2].passage.ID, "c")
	}
}

func TestFuseRRFWithKIsCommutative(t *testing.T) {
	vector := []store.Ranked{ranked("x", 1), ranked("y", 4)}
	trigram := []store.Ranked{ranked("y", 1), ranked("z", 2)}

	forward := fuseRRFWithK(60, vector, trigram)
	backward := fuseRRFWithK(60, trigram, vector)

	if len(forward) != len(backward) {
		t.Fatalf("len mismatch: %d vs %d", len(forward), len(backward))
	}
	for i := range forward {
		if forward[i].passage.ID != backward[i].passage.ID {
			t.Errorf("order differs at %d: %q vs %q", i, forward[i].passage.ID, backward[i].passage.ID)
		}
		if forward[i].score != backward[i].score {
			t.Errorf("score differs at %d for %q: %v vs %v", i, forward[i].passage.ID, forward[i].score, backward[i].score)
		}
	}
}

func TestFuseRRFWithKDeduplicatesAcrossLanes(t *testing.T) {
	vector := []store.Ranked{ranked("dup", 1)}
	trigram := []store.Ranked{ranked("dup", 1)}

	fused := fuseRRFWithK(60, vector, trigram)
	if len(fused) != 1 {
		t.Fatalf("len(fused) = %d, want 1 (deduplicated)", len(fused))
	}
	want := 1.0/61 + 1.0/61
	if fused[0].score != want {
		t.Errorf("fused[0].score = %v, want %v (summed across lanes)", fused[0].score, want)
	}
}

func TestFuseRRFWithKEmptyInputs(t *testing.T) {
	fused := fuseRRFWithK(60)
	if len(fused) != 0 {
		t.Errorf("len(fused) = %d, want 0", len(fused))
	}
}
