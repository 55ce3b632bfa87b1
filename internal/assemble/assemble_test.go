package assemble

import (
	"strings"
	"testing"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

func sampleDraft() *core.Draft {
	return &core.Draft{
		Titles: [3]string{"タイトル案1", "タイトル案2", "タイトル案3"},
		Lead:   "リード文です。",
		Sections: []core.DraftSection{
			{Heading: "## 背景", Body: "本文その一。"},
			{Heading: "## まとめ", Body: "本文その二。"},
		},
		Closing:                "結びの文章です。",
		Category:               core.Interview,
		Theme:                  "エンジニア採用",
		DesiredLength:          800,
		ConsistencyScore:       0.876,
		VerificationConfidence: 0.91,
	}
}

func TestRenderIncludesSectionsInOrder(t *testing.T) {
	d := sampleDraft()
	md := Render(d)

	titleIdx := strings.Index(md, "# タイトル案1")
	leadIdx := strings.Index(md, "リード文です。")
	sec1Idx := strings.Index(md, "## 背景")
	sec2Idx := strings.Index(md, "## まとめ")
	closingIdx := strings.Index(md, "結びの文章です。")
	footerIdx := strings.Index(md, "### メタ情報")

	if titleIdx < 0 || leadIdx < 0 || sec1Idx < 0 || sec2Idx < 0 || closingIdx < 0 || footerIdx < 0 {
		t.Fatalf("rendered markdown missing expected section, got:\n%s", md)
	}
	if !(titleIdx < leadIdx && leadIdx < sec1Idx && sec1Idx < sec2Idx && sec2Idx < closingIdx && closingIdx < footerIdx) {
		t.Errorf("rendered markdown out of order: title=%d lead=%d sec1=%d sec2=%d closing=%d footer=%d",
			titleIdx, leadIdx, sec1Idx, sec2Idx, closingIdx, footerIdx)
	}
}

func TestRenderFooterMatchesMetadataContract(t *testing.T) {
	d := sampleDraft()
	md := Render(d)

	wantLines := []string{
		"- 記事カテゴリ: " + d.Category.Label(),
		"- テーマ: エンジニア採用",
		"- 文体一貫性スコア: 88%",
		"- 事実検証信頼度: 91%",
	}
	for _, want := range wantLines {
		if !strings.Contains(md, want) {
			t.Errorf("rendered markdown missing footer line %q, got:\n%s", want, md)
		}
	}
}

func TestRenderRecomputesLengthAndTagCount(t *testing.T) {
	d := sampleDraft()
	d.Lead = "[要確認: A] " + d.Lead
	Render(d)

	if d.TagCount != 1 {
		t.Errorf("TagCount = %d, want 1", d.TagCount)
	}
	if d.ActualLength <= 0 {
		t.Errorf("ActualLength = %d, want > 0", d.ActualLength)
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.5, 1},
		{0.49, 0},
		{87.6, 88},
		{-0.5, -1},
	}
	for _, tt := range tests {
		if got := round(tt.in); got != tt.want {
			t.Errorf("round(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
