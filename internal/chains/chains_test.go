package chains

import (
	"strings"
	"testing"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

func TestJoinNumberedOrdersAndLabelsEntries(t *testing.T) {
	got := joinNumbered([]string{"first", "second"})
	if !strings.Contains(got, "[1] first") {
		t.Errorf("joinNumbered() missing [1] first, got %q", got)
	}
	if !strings.Contains(got, "[2] second") {
		t.Errorf("joinNumbered() missing [2] second, got %q", got)
	}
	if strings.Index(got, "[1]") > strings.Index(got, "[2]") {
		t.Errorf("joinNumbered() out of order: %q", got)
	}
}

func TestJoinNumberedEmpty(t *testing.T) {
	if got := joinNumbered(nil); got != "" {
		t.Errorf("joinNumbered(nil) = %q, want empty string", got)
	}
}

func TestRenderPassagesIncludesIDAndBody(t *testing.T) {
	passages := []core.Passage{{ID: "p1", Body: "本文その一"}, {ID: "p2", Body: "本文その二"}}
	got := renderPassages(passages)
	if !strings.Contains(got, "[p1] 本文その一") {
		t.Errorf("renderPassages() missing p1 entry, got %q", got)
	}
	if !strings.Contains(got, "[p2] 本文その二") {
		t.Errorf("renderPassages() missing p2 entry, got %q", got)
	}
}
