package chains

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/llm"
)

// TitleInput bundles the inputs to the title chain.
type TitleInput struct {
	StructuredInput core.StructuredInput
	Outline         core.Outline
	Rulebook        string
}

// TitleGenerator is the high-tier chain producing exactly three candidate
// titles (§4.6).
type TitleGenerator struct{ model Model }

// NewTitleGenerator builds the chain.
func NewTitleGenerator(model Model) *TitleGenerator { return &TitleGenerator{model: model} }

func titleSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"titles": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"titles"},
	}
}

type titleResult struct {
	Titles []string `json:"titles"`
}

const titlePromptTemplate = `Write exactly 3 candidate titles for this recruiting article, following the
house style rulebook below. Titles should be distinct in angle (e.g. one
benefit-led, one fact-led, one curiosity-led).

Theme: %s
Outline: %+v
Style rulebook: %s`

// Run produces exactly three candidate titles.
func (c *TitleGenerator) Run(ctx context.Context, in TitleInput) ([3]string, error) {
	prompt := fmt.Sprintf(titlePromptTemplate, in.StructuredInput.Theme, in.Outline, in.Rulebook)
	res, err := chat[titleResult](ctx, c.model, llm.TierHigh, prompt, 0.7, titleSchema())
	if err != nil {
		return [3]string{}, err
	}
	if len(res.Titles) != 3 {
		return [3]string{}, fmt.Errorf("%w: title generator returned %d titles, want 3", core.ErrSchema, len(res.Titles))
	}
	return [3]string{res.Titles[0], res.Titles[1], res.Titles[2]}, nil
}

// LeadInput bundles the inputs to the lead chain.
type LeadInput struct {
	StructuredInput core.StructuredInput
	Outline         core.Outline
	Rulebook        string
	Excerpts        []string
}

// LeadGenerator is the high-tier chain producing the article lead (§4.6).
type LeadGenerator struct{ model Model }

// NewLeadGenerator builds the chain.
func NewLeadGenerator(model Model) *LeadGenerator { return &LeadGenerator{model: model} }

func leadSchema() *genai.Schema {
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"lead": {Type: genai.TypeString}},
		Required:   []string{"lead"},
	}
}

type leadResult struct {
	Lead string `json:"lead"`
}

const leadPromptTemplate = `Write the lead paragraph for this recruiting article. Target length is
100 to 150 characters. Follow the house style rulebook and the tone shown
in the excerpts.

Theme: %s
Outline: %+v
Style rulebook: %s
Style excerpts: %v`

// Run produces the lead paragraph.
func (c *LeadGenerator) Run(ctx context.Context, in LeadInput) (string, error) {
	prompt := fmt.Sprintf(leadPromptTemplate, in.StructuredInput.Theme, in.Outline, in.Rulebook, in.Excerpts)
	res, err := chat[leadResult](ctx, c.model, llm.TierHigh, prompt, 0.7, leadSchema())
	if err != nil {
		return "", err
	}
	return res.Lead, nil
}

// SectionInput bundles the inputs to the section chain: exactly one
// outline section spec, plus the retrieved content passages it may draw on.
type SectionInput struct {
	Section         core.OutlineSection
	ContentPassages []core.Passage
	Rulebook        string
}

// SectionGenerator is the high-tier chain producing one section's heading
// and body (§4.6). Each invocation is independent — it is given only its
// own outline spec, which is what makes the Contents fan-out safe (§4.7).
type SectionGenerator struct{ model Model }

// NewSectionGenerator builds the chain.
func NewSectionGenerator(model Model) *SectionGenerator { return &SectionGenerator{model: model} }

func sectionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"heading": {Type: genai.TypeString},
			"body":    {Type: genai.TypeString},
		},
		Required: []string{"heading", "body"},
	}
}

const sectionPromptTemplate = `Write one section of a recruiting article. The body must draw only on the
reference material provided below — do not invent facts not supported by
it.

Section spec: %+v
Reference material: %s
Style rulebook: %s`

// Run produces the section's heading and body.
func (c *SectionGenerator) Run(ctx context.Context, in SectionInput) (core.DraftSection, error) {
	prompt := fmt.Sprintf(sectionPromptTemplate, in.Section, renderPassages(in.ContentPassages), in.Rulebook)
	return chat[core.DraftSection](ctx, c.model, llm.TierHigh, prompt, 0.6, sectionSchema())
}

// ClosingInput bundles the inputs to the closing chain.
type ClosingInput struct {
	StructuredInput core.StructuredInput
	Outline         core.Outline
	Rulebook        string
}

// ClosingGenerator is the high-tier chain producing the article's closing
// text (§4.6).
type ClosingGenerator struct{ model Model }

// NewClosingGenerator builds the chain.
func NewClosingGenerator(model Model) *ClosingGenerator { return &ClosingGenerator{model: model} }

func closingSchema() *genai.Schema {
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"closing": {Type: genai.TypeString}},
		Required:   []string{"closing"},
	}
}

type closingResult struct {
	Closing string `json:"closing"`
}

const closingPromptTemplate = `Write the closing paragraph for this recruiting article, following the
house style rulebook.

Theme: %s
Goal: %s
Outline: %+v
Style rulebook: %s`

// Run produces the closing text.
func (c *ClosingGenerator) Run(ctx context.Context, in ClosingInput) (string, error) {
	prompt := fmt.Sprintf(closingPromptTemplate, in.StructuredInput.Theme, in.StructuredInput.Goal, in.Outline, in.Rulebook)
	res, err := chat[closingResult](ctx, c.model, llm.TierHigh, prompt, 0.6, closingSchema())
	if err != nil {
		return "", err
	}
	return res.Closing, nil
}
