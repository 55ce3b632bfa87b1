package chains

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/llm"
)

// IssueSeverity is restricted to low/medium/high.
type IssueSeverity string

const (
	SeverityLow    IssueSeverity = "low"
	SeverityMedium IssueSeverity = "medium"
	SeverityHigh   IssueSeverity = "high"
)

// StyleIssue is one deviation from the style rulebook found by the checker.
type StyleIssue struct {
	Location    string        `json:"location"`
	Description string        `json:"description"`
	Severity    IssueSeverity `json:"severity"`
}

// CorrectedSection is one style-checker-suggested correction.
type CorrectedSection struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Reason    string `json:"reason"`
}

// StyleCheckResult is the structured output of the style checker chain.
type StyleCheckResult struct {
	ConsistencyScore  float64            `json:"consistency_score"`
	Issues            []StyleIssue       `json:"issues"`
	CorrectedSections []CorrectedSection `json:"corrected_sections"`
}

// StyleCheckerInput bundles the composed draft text and the rulebook.
type StyleCheckerInput struct {
	DraftText string
	Rulebook  string
}

// StyleChecker is the lite-tier chain scoring style consistency (§4.6, §4.8).
type StyleChecker struct{ model Model }

// NewStyleChecker builds the chain.
func NewStyleChecker(model Model) *StyleChecker { return &StyleChecker{model: model} }

const styleCheckPromptTemplate = `Score how consistently the following draft matches the house style
rulebook. Give a consistency_score from 0.0 (no match) to 1.0 (perfect
match), list specific issues with their location, description, and
severity (low/medium/high), and propose corrected_sections where an
original passage should be rewritten verbatim.

Style rulebook: %s

Draft:
%s`

func styleCheckSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"consistency_score": {Type: genai.TypeNumber},
			"issues": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"location":    {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"severity":    {Type: genai.TypeString, Enum: []string{"low", "medium", "high"}},
					},
					Required: []string{"location", "description", "severity"},
				},
			},
			"corrected_sections": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"original":  {Type: genai.TypeString},
						"corrected": {Type: genai.TypeString},
						"reason":    {Type: genai.TypeString},
					},
					Required: []string{"original", "corrected", "reason"},
				},
			},
		},
		Required: []string{"consistency_score", "issues", "corrected_sections"},
	}
}

// Run scores the draft's style consistency against the rulebook.
func (c *StyleChecker) Run(ctx context.Context, in StyleCheckerInput) (StyleCheckResult, error) {
	prompt := fmt.Sprintf(styleCheckPromptTemplate, in.Rulebook, in.DraftText)
	return chat[StyleCheckResult](ctx, c.model, llm.TierLite, prompt, 0.2, styleCheckSchema())
}

// RewriterInput bundles the inputs to the auto-rewriter chain.
type RewriterInput struct {
	DraftText  string
	StyleCheck StyleCheckResult
	Rulebook   string
}

// AutoRewriter is the high-tier chain that rewrites a draft to fix style
// issues while preserving facts and the H2/H3 skeleton (§4.6, §4.8).
type AutoRewriter struct{ model Model }

// NewAutoRewriter builds the chain.
func NewAutoRewriter(model Model) *AutoRewriter { return &AutoRewriter{model: model} }

const rewritePromptTemplate = `Rewrite the following draft to resolve the style issues below, matching
the house style rulebook. You MUST preserve every fact in the draft and
the exact heading skeleton (every line starting with "## " or "### ")
unchanged in position and level. Put the whole rewritten draft text in the
rewritten_text field, with no commentary.

Style rulebook: %s
Issues found: %+v
Suggested corrections: %+v

Draft:
%s`

func rewriterSchema() *genai.Schema {
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"rewritten_text": {Type: genai.TypeString}},
		Required:   []string{"rewritten_text"},
	}
}

type rewriterResult struct {
	RewrittenText string `json:"rewritten_text"`
}

// Run rewrites draftText per the style-check findings.
func (c *AutoRewriter) Run(ctx context.Context, in RewriterInput) (string, error) {
	prompt := fmt.Sprintf(rewritePromptTemplate, in.Rulebook, in.StyleCheck.Issues, in.StyleCheck.CorrectedSections, in.DraftText)
	res, err := chat[rewriterResult](ctx, c.model, llm.TierHigh, prompt, 0.4, rewriterSchema())
	if err != nil {
		return "", err
	}
	return res.RewrittenText, nil
}

// UnverifiedClaim is one claim the hallucination detector judged
// unsupported by the retrieved content passages.
type UnverifiedClaim struct {
	Claim        string `json:"claim"`
	Reason       string `json:"reason"`
	SuggestedTag string `json:"suggested_tag"`
}

// HallucinationResult is the structured output of the hallucination
// detector chain.
type HallucinationResult struct {
	UnverifiedClaims []UnverifiedClaim `json:"unverified_claims"`
	Confidence       float64           `json:"confidence"`
}

// HallucinationDetectorInput bundles the draft text and its supporting
// content passages.
type HallucinationDetectorInput struct {
	DraftText       string
	ContentPassages []core.Passage
}

// HallucinationDetector is the lite-tier chain flagging unsupported claims
// (§4.6, §4.8).
type HallucinationDetector struct{ model Model }

// NewHallucinationDetector builds the chain.
func NewHallucinationDetector(model Model) *HallucinationDetector {
	return &HallucinationDetector{model: model}
}

const hallucinationPromptTemplate = `Identify every factual claim in the draft below that is NOT supported by
the reference material. For each, give the claim (verbatim sentence or
clause), the reason it is unsupported, and a short suggested_tag naming
what needs to be verified (e.g. "創業年", "参加人数"). Also give an overall
confidence in [0,1] for this analysis.

Reference material:
%s

Draft:
%s`

func hallucinationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"unverified_claims": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"claim":         {Type: genai.TypeString},
						"reason":        {Type: genai.TypeString},
						"suggested_tag": {Type: genai.TypeString},
					},
					Required: []string{"claim", "reason", "suggested_tag"},
				},
			},
			"confidence": {Type: genai.TypeNumber},
		},
		Required: []string{"unverified_claims", "confidence"},
	}
}

// Run detects unverified claims in draftText.
func (c *HallucinationDetector) Run(ctx context.Context, in HallucinationDetectorInput) (HallucinationResult, error) {
	prompt := fmt.Sprintf(hallucinationPromptTemplate, renderPassages(in.ContentPassages), in.DraftText)
	return chat[HallucinationResult](ctx, c.model, llm.TierLite, prompt, 0.2, hallucinationSchema())
}
