package chains

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/llm"
)

const classifierPromptTemplate = `Classify the following recruiting-article brief into exactly one of these
four categories: ANNOUNCEMENT, EVENT_REPORT, INTERVIEW, CULTURE.

- ANNOUNCEMENT: a new product, service, policy, or hire is being announced
- EVENT_REPORT: a report on a past event, meetup, or conference
- INTERVIEW: built around quotes from one or more interviewees
- CULTURE: a story about company culture, values, or employee experience

Theme: %s
Key points: %v
Quotes present: %d
Keywords: %v`

// ClassifierInput is the structured brief handed to the classifier chain.
type ClassifierInput struct {
	Input core.StructuredInput
}

// ClassifierOutput pairs the chosen category with a confidence in [0,1].
type ClassifierOutput struct {
	Category   core.ArticleType
	Confidence float64
}

// Classifier is the lite-tier chain assigning an ArticleType (§4.6).
type Classifier struct {
	model Model
}

// NewClassifier builds the chain.
func NewClassifier(model Model) *Classifier {
	return &Classifier{model: model}
}

func classifierSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"category": {
				Type: genai.TypeString,
				Enum: []string{string(core.Announcement), string(core.EventReport), string(core.Interview), string(core.Culture)},
			},
			"confidence": {Type: genai.TypeNumber},
		},
		Required: []string{"category", "confidence"},
	}
}

type classifierResult struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Run classifies the brief into an ArticleType with a confidence score.
func (c *Classifier) Run(ctx context.Context, in ClassifierInput) (ClassifierOutput, error) {
	prompt := fmt.Sprintf(classifierPromptTemplate,
		in.Input.Theme, in.Input.KeyPoints, len(in.Input.Quotes), in.Input.Keywords)
	res, err := chat[classifierResult](ctx, c.model, llm.TierLite, prompt, 0.1, classifierSchema())
	if err != nil {
		return ClassifierOutput{}, err
	}
	cat := core.ArticleType(res.Category)
	if !cat.Valid() {
		return ClassifierOutput{}, fmt.Errorf("%w: classifier returned unknown category %q", core.ErrSchema, res.Category)
	}
	return ClassifierOutput{Category: cat, Confidence: res.Confidence}, nil
}
