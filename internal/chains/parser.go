package chains

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/llm"
)

const parserPromptTemplate = `You are an editorial assistant extracting a structured brief from raw
recruiting-article source material written in Japanese.

Read the material below and extract:
- theme: one short sentence naming what the article is about
- audience: the intended reader, or "" if not stated
- goal: what the article should accomplish, or "" if not stated
- desired_length: target character count, or 0 if not stated
- key_points: the ordered list of facts that must appear in the article
- quotes: ordered list of {speaker, quote} pairs found verbatim in the material
- data_facts: ordered list of standalone data points (dates, numbers, names)
- keywords: 5 to 10 short keywords or phrases capturing the article's content
- missing_notes: anything an editor should follow up on because it is absent
  from the material but normally expected for this kind of article

Source material:
---
%s
---`

// InputParserInput is the raw material handed to the parser chain.
type InputParserInput struct {
	RawMaterial string
}

// InputParser is the lite-tier chain that turns raw material into a
// StructuredInput brief (§4.6).
type InputParser struct {
	model Model
}

// NewInputParser builds the chain.
func NewInputParser(model Model) *InputParser {
	return &InputParser{model: model}
}

func inputParserSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"theme":          {Type: genai.TypeString},
			"audience":       {Type: genai.TypeString},
			"goal":           {Type: genai.TypeString},
			"desired_length": {Type: genai.TypeInteger},
			"key_points":     {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"quotes": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"speaker": {Type: genai.TypeString},
						"quote":   {Type: genai.TypeString},
					},
					Required: []string{"speaker", "quote"},
				},
			},
			"data_facts":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"keywords":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"missing_notes": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"theme", "key_points", "keywords"},
	}
}

type parsedInput struct {
	Theme         string       `json:"theme"`
	Audience      string       `json:"audience"`
	Goal          string       `json:"goal"`
	DesiredLength int          `json:"desired_length"`
	KeyPoints     []string     `json:"key_points"`
	Quotes        []core.Quote `json:"quotes"`
	DataFacts     []string     `json:"data_facts"`
	Keywords      []string     `json:"keywords"`
	MissingNotes  []string     `json:"missing_notes"`
}

// Run extracts a StructuredInput from raw material.
func (c *InputParser) Run(ctx context.Context, in InputParserInput) (core.StructuredInput, error) {
	prompt := fmt.Sprintf(parserPromptTemplate, in.RawMaterial)
	parsed, err := chat[parsedInput](ctx, c.model, llm.TierLite, prompt, 0.2, inputParserSchema())
	if err != nil {
		return core.StructuredInput{}, err
	}
	return core.StructuredInput{
		Theme:         parsed.Theme,
		Audience:      parsed.Audience,
		Goal:          parsed.Goal,
		DesiredLength: parsed.DesiredLength,
		KeyPoints:     parsed.KeyPoints,
		Quotes:        parsed.Quotes,
		DataFacts:     parsed.DataFacts,
		Keywords:      parsed.Keywords,
		MissingNotes:  parsed.MissingNotes,
	}, nil
}
