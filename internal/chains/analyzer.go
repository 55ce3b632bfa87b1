package chains

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/llm"
)

// StyleSummary is the structured output of the style analyzer chain.
type StyleSummary struct {
	SentenceEndings []string `json:"sentence_endings"`
	Tone            string   `json:"tone"`
	FirstPerson     string   `json:"first_person"`
	NotablePhrases  []string `json:"notable_phrases"`
}

// StructureSummary is the structured output of the structure analyzer chain.
type StructureSummary struct {
	HeadingPatterns []string `json:"heading_patterns"`
	LeadPatterns    []string `json:"lead_patterns"`
	ClosingPatterns []string `json:"closing_patterns"`
}

const styleAnalyzerPromptTemplate = `Analyze the writing style of the following reference articles and
summarize it for a ghostwriter to imitate.

Report: the recurring sentence endings (です/ます, 〜だ, etc.), the overall
tone, whether and how the writer uses first person, and any notable
recurring phrases.

Reference articles:
%s`

const structureAnalyzerPromptTemplate = `Analyze the structural conventions of the following reference articles.

Report: common heading patterns (how H2/H3 titles are phrased), common
opening/lead patterns, and common closing patterns.

Reference articles:
%s`

// StyleAnalyzer is the lite-tier chain summarizing reference style (§4.6).
type StyleAnalyzer struct{ model Model }

// NewStyleAnalyzer builds the chain.
func NewStyleAnalyzer(model Model) *StyleAnalyzer { return &StyleAnalyzer{model: model} }

func styleSummarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sentence_endings": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"tone":             {Type: genai.TypeString},
			"first_person":     {Type: genai.TypeString},
			"notable_phrases":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"sentence_endings", "tone", "first_person", "notable_phrases"},
	}
}

// Run summarizes the style of the given reference passage bodies.
func (c *StyleAnalyzer) Run(ctx context.Context, referenceBodies []string) (StyleSummary, error) {
	prompt := fmt.Sprintf(styleAnalyzerPromptTemplate, joinNumbered(referenceBodies))
	return chat[StyleSummary](ctx, c.model, llm.TierLite, prompt, 0.2, styleSummarySchema())
}

// StructureAnalyzer is the lite-tier chain summarizing reference structure (§4.6).
type StructureAnalyzer struct{ model Model }

// NewStructureAnalyzer builds the chain.
func NewStructureAnalyzer(model Model) *StructureAnalyzer { return &StructureAnalyzer{model: model} }

func structureSummarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"heading_patterns": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"lead_patterns":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"closing_patterns": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"heading_patterns", "lead_patterns", "closing_patterns"},
	}
}

// Run summarizes the structural conventions of the given reference bodies.
func (c *StructureAnalyzer) Run(ctx context.Context, referenceBodies []string) (StructureSummary, error) {
	prompt := fmt.Sprintf(structureAnalyzerPromptTemplate, joinNumbered(referenceBodies))
	return chat[StructureSummary](ctx, c.model, llm.TierLite, prompt, 0.2, structureSummarySchema())
}

func joinNumbered(bodies []string) string {
	var b strings.Builder
	for i, body := range bodies {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, body)
	}
	return b.String()
}
