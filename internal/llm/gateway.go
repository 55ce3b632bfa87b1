// Package llm implements the embedding and chat gateway (C1): a uniform
// request surface over an external embedding model and two LLM tiers,
// with batching, per-call timeouts, and bounded retry of transient errors.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

// Tier selects which model a Chat call is routed to. Tier routing is a pure
// lookup performed by callers (the chain catalog, §4.6); the gateway only
// needs to know which concrete model backs each tier.
type Tier string

const (
	TierHigh Tier = "high"
	TierLite Tier = "lite"
)

// Message is one turn of a chat prompt.
type Message struct {
	Role string // "user" or "model"
	Text string
}

// Options configures a single Chat call.
type Options struct {
	Temperature    float32
	MaxOutputTokens int32
	// ResponseSchema, when non-nil, forces deterministic JSON decoding: the
	// gateway sets ResponseMIMEType to application/json and unmarshals the
	// reply into the caller-supplied destination.
	ResponseSchema *genai.Schema
}

// Gateway is the process-wide singleton exposing embed/chat. It is safe for
// concurrent use; the underlying genai.Client already is.
type Gateway struct {
	client         *genai.Client
	modelHigh      string
	modelLite      string
	embeddingModel string
	embeddingDims  int32
	callTimeout    time.Duration
	maxRetries     int
	baseBackoff    time.Duration
}

// Config is the subset of configuration the gateway needs to be built,
// kept decoupled from internal/config to avoid an import cycle.
type Config struct {
	APIKey           string
	ModelHigh        string
	ModelLite        string
	EmbeddingModel   string
	EmbeddingDims    int32
	CallTimeout      time.Duration
	MaxRetries       int
	RetryBaseBackoff time.Duration
}

// New creates the gateway singleton. Called once at process start.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: failed to create client: %w", err)
	}
	return &Gateway{
		client:         client,
		modelHigh:      cfg.ModelHigh,
		modelLite:      cfg.ModelLite,
		embeddingModel: cfg.EmbeddingModel,
		embeddingDims:  cfg.EmbeddingDims,
		callTimeout:    nonZeroDuration(cfg.CallTimeout, 60*time.Second),
		maxRetries:     nonZeroInt(cfg.MaxRetries, 3),
		baseBackoff:    nonZeroDuration(cfg.RetryBaseBackoff, 500*time.Millisecond),
	}, nil
}

func nonZeroDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func nonZeroInt(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func (g *Gateway) modelFor(tier Tier) string {
	if tier == TierHigh {
		return g.modelHigh
	}
	return g.modelLite
}

// Embed produces a single 768-dimensional embedding for text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch produces one embedding per input text, preserving order.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: t}}}
	}

	var resp *genai.EmbedContentResponse
	err := g.withRetry(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = g.client.Models.EmbedContent(ctx, g.embeddingModel, contents, &genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr(g.embeddingDims),
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("llm: embed batch: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("llm: embed batch: %w: expected %d embeddings, got %d", core.ErrUpstream, len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// Chat sends a prompt to the given tier and, if opts.ResponseSchema is set,
// decodes the reply into out (which must be a pointer). Schema-validation
// failures are never retried; transient upstream errors are retried with
// exponential backoff up to the configured cap.
func (g *Gateway) Chat(ctx context.Context, tier Tier, messages []Message, opts Options, out any) error {
	model := g.modelFor(tier)
	contents := make([]*genai.Content, len(messages))
	for i, m := range messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		contents[i] = &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Text}}}
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(opts.Temperature),
	}
	if opts.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = opts.MaxOutputTokens
	}
	if opts.ResponseSchema != nil {
		genCfg.ResponseMIMEType = "application/json"
		genCfg.ResponseSchema = opts.ResponseSchema
	}

	var text string
	err := g.withRetry(ctx, func(ctx context.Context) error {
		resp, callErr := g.client.Models.GenerateContent(ctx, model, contents, genCfg)
		if callErr != nil {
			return callErr
		}
		text = resp.Text()
		if text == "" {
			return fmt.Errorf("%w: empty response from model %s", core.ErrUpstream, model)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: %v", core.ErrSchema, err)
	}
	return nil
}

// withRetry runs fn, retrying transient errors with exponential backoff
// (capped at g.maxRetries attempts total) and enforcing the per-call
// timeout on every attempt. Schema/validation errors are surfaced
// immediately without retry.
func (g *Gateway) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		err := fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", core.ErrTimeout, ctx.Err())
		}
		if errors.Is(err, core.ErrSchema) {
			return err
		}
		if !isTransient(err) {
			return fmt.Errorf("%w: %v", core.ErrUpstream, err)
		}
		if attempt == g.maxRetries-1 {
			break
		}

		backoff := g.baseBackoff * time.Duration(math.Pow(2, float64(attempt)))
		jitter := time.Duration(rand.Int63n(int64(backoff) / 2+1))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", core.ErrTimeout, ctx.Err())
		case <-time.After(backoff + jitter):
		}
	}
	return fmt.Errorf("%w: retries exhausted: %v", core.ErrUpstream, lastErr)
}

// isTransient classifies network, 5xx, and rate-limit errors as retryable.
// Anything else (including schema/validation failures, which are handled
// separately) is treated as permanent.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "429"),
		strings.Contains(msg, "500"),
		strings.Contains(msg, "502"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "504"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporarily unavailable"):
		return true
	}
	return false
}
