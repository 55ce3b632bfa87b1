package reranker

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/llm"
)

// Model is the subset of the LLM gateway the LLM-backed scorer needs.
type Model interface {
	Chat(ctx context.Context, tier llm.Tier, messages []llm.Message, opts llm.Options, out any) error
}

// LLMScorer implements Scorer by asking the lite-tier model to judge
// relevance directly, constrained to a numeric logit via a response schema.
// This stands in for a dedicated cross-encoder model when none is deployed
// (§9 REDESIGN FLAGS names the reranker as "one pluggable interface; the
// choice of model is external configuration") — any Scorer implementation
// is interchangeable behind the Gateway.
type LLMScorer struct {
	model Model
}

// NewLLMScorer builds a Scorer backed by model.
func NewLLMScorer(model Model) *LLMScorer {
	return &LLMScorer{model: model}
}

const scorePromptTemplate = `Rate how relevant the following passage is to the query, on a scale where
positive numbers mean relevant and negative numbers mean irrelevant. Larger
magnitudes mean stronger confidence. A typical relevant match scores around
3, a typical irrelevant one around -3.

Query: %s

Passage: %s`

func scoreSchema() *genai.Schema {
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"raw_score": {Type: genai.TypeNumber}},
		Required:   []string{"raw_score"},
	}
}

type scoreResult struct {
	RawScore float64 `json:"raw_score"`
}

// Score implements Scorer.
func (s *LLMScorer) Score(ctx context.Context, query string, passageBody string) (float64, error) {
	prompt := fmt.Sprintf(scorePromptTemplate, query, passageBody)
	var res scoreResult
	err := s.model.Chat(ctx, llm.TierLite, []llm.Message{{Role: "user", Text: prompt}}, llm.Options{
		Temperature:    0,
		ResponseSchema: scoreSchema(),
	}, &res)
	if err != nil {
		return 0, err
	}
	return res.RawScore, nil
}
