package verify

import (
	"strings"
	"testing"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

func TestComposeOrdersTitleLeadSectionsClosing(t *testing.T) {
	d := &core.Draft{
		Titles: [3]string{"タイトル", "", ""},
		Lead:   "リード",
		Sections: []core.DraftSection{
			{Heading: "## 見出し", Body: "本文"},
		},
		Closing: "結び",
	}
	got := Compose(d)
	want := "タイトル\nリード\n## 見出し\n本文\n結び"
	if got != want {
		t.Errorf("Compose() = %q, want %q", got, want)
	}
}

func TestInsertAfterClaimIsIdempotent(t *testing.T) {
	text := "弊社は業界トップの売上を記録した。その後も成長を続けた。"
	claim := "業界トップの売上を記録した"
	marker := "[要確認: T1]"

	once, changed := insertAfterClaim(text, claim, marker)
	if !changed {
		t.Fatalf("first insertAfterClaim did not report a change")
	}
	if !strings.Contains(once, marker) {
		t.Fatalf("marker not inserted: %q", once)
	}

	twice, changed := insertAfterClaim(once, claim, marker)
	if changed {
		t.Errorf("second insertAfterClaim reported a change, want none (idempotent)")
	}
	if strings.Count(twice, marker) != 1 {
		t.Errorf("marker count = %d, want 1 after re-applying", strings.Count(twice, marker))
	}
}

func TestInsertAfterClaimIsIdempotentWithNoTrailingPunctuation(t *testing.T) {
	text := "弊社は業界トップの売上を記録した"
	claim := "業界トップの売上を記録した"
	marker := "[要確認: T1]"

	once, changed := insertAfterClaim(text, claim, marker)
	if !changed {
		t.Fatalf("first insertAfterClaim did not report a change")
	}
	if !strings.Contains(once, marker) {
		t.Fatalf("marker not inserted: %q", once)
	}

	twice, changed := insertAfterClaim(once, claim, marker)
	if changed {
		t.Errorf("second insertAfterClaim reported a change, want none (idempotent)")
	}
	if strings.Count(twice, marker) != 1 {
		t.Errorf("marker count = %d, want 1 after re-applying", strings.Count(twice, marker))
	}
}

func TestInsertAfterClaimNoOccurrence(t *testing.T) {
	text := "無関係な文章です。"
	got, changed := insertAfterClaim(text, "存在しない主張", "[要確認: T1]")
	if changed {
		t.Errorf("insertAfterClaim reported a change for an absent claim")
	}
	if got != text {
		t.Errorf("insertAfterClaim mutated text with no occurrence: %q", got)
	}
}

func TestFindSentenceEndPrefersJapanesePeriod(t *testing.T) {
	text := "最初の文。次の文。"
	got := findSentenceEnd(text, "[要確認: T1]", 0)
	want := strings.Index(text, "。") + len("。")
	if got != want {
		t.Errorf("findSentenceEnd() = %d, want %d", got, want)
	}
}

func TestFindSentenceEndFallsBackToEndOfText(t *testing.T) {
	text := "境界のない文字列"
	got := findSentenceEnd(text, "[要確認: T1]", 0)
	if got != len(text) {
		t.Errorf("findSentenceEnd() = %d, want %d", got, len(text))
	}
}

func TestFindSentenceEndStopsAtExistingMarker(t *testing.T) {
	marker := "[要確認: T1]"
	text := "文の末尾" + marker + "が続く"
	from := strings.Index(text, "文の末尾") + len("文の末尾")
	got := findSentenceEnd(text, marker, from)
	if got != from {
		t.Errorf("findSentenceEnd() = %d, want %d (stop before marker)", got, from)
	}
}

func TestReparseSkeletonSplitsLeadAndSections(t *testing.T) {
	text := "タイトル行\nこれはリードです。\n## 最初の見出し\n最初の本文。\n### 二つ目の見出し\n二つ目の本文。"
	lead, sections := reparseSkeleton(text)

	if lead != "これはリードです。" {
		t.Errorf("lead = %q, want %q", lead, "これはリードです。")
	}
	if len(sections) != 2 {
		t.Fatalf("len(sections) = %d, want 2", len(sections))
	}
	if sections[0].Heading != "## 最初の見出し" || sections[0].Body != "最初の本文。" {
		t.Errorf("sections[0] = %+v", sections[0])
	}
	if sections[1].Heading != "### 二つ目の見出し" || sections[1].Body != "二つ目の本文。" {
		t.Errorf("sections[1] = %+v", sections[1])
	}
}

func TestReparseSkeletonNoHeadingsReturnsWholeBodyAsLead(t *testing.T) {
	text := "タイトル行\n見出しのない本文です。"
	lead, sections := reparseSkeleton(text)
	if lead != "見出しのない本文です。" {
		t.Errorf("lead = %q", lead)
	}
	if sections != nil {
		t.Errorf("sections = %+v, want nil", sections)
	}
}

func TestTagClaimAppliesAcrossLeadSectionsAndClosing(t *testing.T) {
	d := &core.Draft{
		Lead: "弊社の売上は業界一だ。",
		Sections: []core.DraftSection{
			{Heading: "## h", Body: "業界一の実績を持つ。"},
		},
		Closing: "業界一の会社です。",
	}
	tagClaim(d, "業界一", "T1")

	marker := core.UnverifiedMarkerPrefix + " T1]"
	if !strings.Contains(d.Lead, marker) {
		t.Errorf("Lead not tagged: %q", d.Lead)
	}
	if !strings.Contains(d.Sections[0].Body, marker) {
		t.Errorf("Section body not tagged: %q", d.Sections[0].Body)
	}
	if !strings.Contains(d.Closing, marker) {
		t.Errorf("Closing not tagged: %q", d.Closing)
	}
}

func TestTagClaimEmptyClaimIsNoop(t *testing.T) {
	d := &core.Draft{Lead: "そのままの文章"}
	tagClaim(d, "", "T1")
	if d.Lead != "そのままの文章" {
		t.Errorf("Lead changed for empty claim: %q", d.Lead)
	}
}
