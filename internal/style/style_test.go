package style

import (
	"testing"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

func TestDedupeByIDPreservesFirstOccurrenceOrder(t *testing.T) {
	recs := []core.StyleRecord{
		{ID: "a", Body: "first"},
		{ID: "b", Body: "second"},
		{ID: "a", Body: "duplicate"},
		{ID: "c", Body: "third"},
	}

	out := dedupeByID(recs)

	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	wantIDs := []string{"a", "b", "c"}
	for i, want := range wantIDs {
		if out[i].ID != want {
			t.Errorf("out[%d].ID = %q, want %q", i, out[i].ID, want)
		}
	}
	if out[0].Body != "first" {
		t.Errorf("out[0].Body = %q, want %q (first occurrence kept)", out[0].Body, "first")
	}
}

func TestDedupeByIDEmptyInput(t *testing.T) {
	out := dedupeByID(nil)
	if len(out) != 0 {
		t.Errorf("len(out) = %d, want 0", len(out))
	}
}
