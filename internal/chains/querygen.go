package chains

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/llm"
)

const queryGenPromptTemplate = `Generate a whitespace-joined search query for retrieving reference material
for a %s-category recruiting article.

Produce 3 to 5 concepts, each expressed in 1 to 6 Japanese tokens, covering
the theme, key points, and keywords below. Return only the concepts, one per
array entry — the caller joins them with spaces.

Theme: %s
Key points: %v
Keywords: %v`

// QueryGeneratorInput bundles the structured brief and the resolved category.
type QueryGeneratorInput struct {
	Input    core.StructuredInput
	Category core.ArticleType
}

// QueryGenerator is the lite-tier chain producing the hybrid-search query
// string (§4.6).
type QueryGenerator struct {
	model Model
}

// NewQueryGenerator builds the chain.
func NewQueryGenerator(model Model) *QueryGenerator {
	return &QueryGenerator{model: model}
}

func queryGenSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"concepts": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"concepts"},
	}
}

type queryGenResult struct {
	Concepts []string `json:"concepts"`
}

// Run produces the whitespace-joined keyword query string.
func (c *QueryGenerator) Run(ctx context.Context, in QueryGeneratorInput) (string, error) {
	prompt := fmt.Sprintf(queryGenPromptTemplate, in.Category, in.Input.Theme, in.Input.KeyPoints, in.Input.Keywords)
	res, err := chat[queryGenResult](ctx, c.model, llm.TierLite, prompt, 0.3, queryGenSchema())
	if err != nil {
		return "", err
	}
	return strings.Join(res.Concepts, " "), nil
}
