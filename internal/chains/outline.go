package chains

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/llm"
)

const outlinePromptTemplate = `Plan the outline for a %s-category recruiting article of about %d
characters, in the house style described below.

Theme: %s
Audience: %s
Goal: %s
Key points to cover: %v
Quotes available: %v
Data facts available: %v

Style summary: %+v
Structure summary: %+v
Style rulebook: %s
Style excerpts: %v

Reference material available for sourcing section content:
%s

Produce an ordered list of sections, each H2 or H3, with a title, a one
sentence content summary, the identifiers of the reference material it
should draw on (key_sources), and a target character length. The sum of
target lengths should be close to the overall target.`

// OutlineInput bundles everything the outline chain needs.
type OutlineInput struct {
	StructuredInput  core.StructuredInput
	Category         core.ArticleType
	StyleSummary     StyleSummary
	StructureSummary StructureSummary
	Rulebook         string
	Excerpts         []string
	ContentPassages  []core.Passage
}

// OutlineGenerator is the high-tier chain producing the section outline (§4.6).
type OutlineGenerator struct{ model Model }

// NewOutlineGenerator builds the chain.
func NewOutlineGenerator(model Model) *OutlineGenerator { return &OutlineGenerator{model: model} }

func outlineSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"total_target_length": {Type: genai.TypeInteger},
			"sections": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"level":           {Type: genai.TypeString, Enum: []string{"H2", "H3"}},
						"title":           {Type: genai.TypeString},
						"content_summary": {Type: genai.TypeString},
						"key_sources":     {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
						"target_length":   {Type: genai.TypeInteger},
					},
					Required: []string{"level", "title", "content_summary", "key_sources", "target_length"},
				},
			},
		},
		Required: []string{"sections", "total_target_length"},
	}
}

// Run plans the outline.
func (c *OutlineGenerator) Run(ctx context.Context, in OutlineInput) (core.Outline, error) {
	prompt := fmt.Sprintf(outlinePromptTemplate,
		in.Category, in.StructuredInput.NormalizedDesiredLength(),
		in.StructuredInput.Theme, in.StructuredInput.Audience, in.StructuredInput.Goal,
		in.StructuredInput.KeyPoints, in.StructuredInput.Quotes, in.StructuredInput.DataFacts,
		in.StyleSummary, in.StructureSummary, in.Rulebook, in.Excerpts,
		renderPassages(in.ContentPassages))
	return chat[core.Outline](ctx, c.model, llm.TierHigh, prompt, 0.5, outlineSchema())
}

func renderPassages(passages []core.Passage) string {
	s := ""
	for _, p := range passages {
		s += fmt.Sprintf("[%s] %s\n\n", p.ID, p.Body)
	}
	return s
}
