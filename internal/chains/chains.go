// Package chains implements the prompt-chain catalog (C6): one small, pure
// unit per generation stage, each pairing a prompt template, a model tier,
// and a typed parser. A chain is a function from a typed input record to a
// typed output record, composed by ordinary value passing — no operator
// overloading, no hidden state (§9 REDESIGN FLAGS).
package chains

import (
	"context"

	"google.golang.org/genai"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/llm"
)

// Chain is the common shape every prompt chain satisfies. Go's lack of
// higher-kinded generics means this interface is documentation more than
// an enforced contract — each chain below exposes a concretely typed Run
// method — but it names the pattern the package follows.
type Chain[In any, Out any] interface {
	Run(ctx context.Context, in In) (Out, error)
}

// Model is the subset of the gateway every chain needs: a single tiered,
// schema-validated chat call. Chains never call the embedding or reranker
// gateways directly.
type Model interface {
	Chat(ctx context.Context, tier llm.Tier, messages []llm.Message, opts llm.Options, out any) error
}

func chat[Out any](ctx context.Context, m Model, tier llm.Tier, prompt string, temperature float32, schema *genai.Schema) (Out, error) {
	var out Out
	err := m.Chat(ctx, tier, []llm.Message{{Role: "user", Text: prompt}}, llm.Options{
		Temperature:    temperature,
		ResponseSchema: schema,
	}, &out)
	return out, err
}
