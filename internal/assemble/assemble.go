// Package assemble implements the draft assembler (C9): recomputes the
// length/tag-count invariants and renders the final Markdown artifact,
// including the metadata footer, which is part of the external contract
// (§6) and must match byte-for-byte.
package assemble

import (
	"fmt"
	"strings"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

// Render recomputes draft.ActualLength/TagCount and returns the Markdown
// rendering: title choices, lead, sections, closing, then the metadata
// footer (§4.9).
func Render(draft *core.Draft) string {
	draft.Recompute()

	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", draft.Titles[0])
	if draft.Titles[1] != "" || draft.Titles[2] != "" {
		fmt.Fprintf(&b, "候補タイトル:\n1. %s\n2. %s\n3. %s\n\n", draft.Titles[0], draft.Titles[1], draft.Titles[2])
	}

	fmt.Fprintf(&b, "%s\n\n", draft.Lead)

	for _, s := range draft.Sections {
		fmt.Fprintf(&b, "%s\n\n%s\n\n", s.Heading, s.Body)
	}

	fmt.Fprintf(&b, "%s\n\n", draft.Closing)

	b.WriteString(footer(draft))

	return b.String()
}

func footer(d *core.Draft) string {
	consistencyPct := round(d.ConsistencyScore * 100)
	confidencePct := round(d.VerificationConfidence * 100)

	return fmt.Sprintf(`---

### メタ情報
- 記事カテゴリ: %s
- テーマ: %s
- 総文字数: 約%d字（目標: %d字）
- [要確認]タグ: %d箇所
- 文体一貫性スコア: %d%%
- 事実検証信頼度: %d%%

### 次のステップ
1. [要確認] タグがある箇所は事実確認してください
2. タイトルは3案から選択または調整してください
3. 必要に応じて文章を微調整してください
`, d.Category.Label(), d.Theme, d.ActualLength, d.DesiredLength, d.TagCount, consistencyPct, confidencePct)
}

func round(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
