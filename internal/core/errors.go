package core

import "errors"

// Error taxonomy (§7). Each sentinel is a kind, not a concrete type; callers
// wrap it with fmt.Errorf("...: %w", ErrX) to preserve context while still
// letting errors.Is match on the kind.
var (
	// ErrUpstream is a transient LLM/embedding failure that survived retries.
	ErrUpstream = errors.New("upstream gateway failure")
	// ErrSchema is returned when a model's output does not match its parser schema.
	ErrSchema = errors.New("model output failed schema validation")
	// ErrRetrieval is a document-store failure or partial fan-out failure.
	ErrRetrieval = errors.New("retrieval failure")
	// ErrTimeout is a per-call or per-request timeout.
	ErrTimeout = errors.New("timeout exceeded")
	// ErrNotFound is returned when a history id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrInvariant marks an internal invariant violation.
	ErrInvariant = errors.New("invariant violation")
	// ErrCancelled marks an observed client cancellation.
	ErrCancelled = errors.New("request cancelled")
)

// Kind maps a taxonomy sentinel to its wire tag (used in ErrorEvent.Kind
// and in log fields). Returns "internal" for anything unrecognized.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrRetrieval):
		return "retrieval"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvariant):
		return "invariant"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	default:
		return "internal"
	}
}

// SentinelForKind is the inverse of Kind: it returns the taxonomy sentinel
// a wire tag was derived from, so a caller that only has the tag (e.g. an
// ErrorEvent crossing the SSE boundary) can still wrap the right sentinel
// instead of losing it to a plain formatted error. Returns ErrInvariant,
// mapped from Kind's "internal" default, for any unrecognized tag.
func SentinelForKind(kind string) error {
	switch kind {
	case "upstream":
		return ErrUpstream
	case "schema":
		return ErrSchema
	case "retrieval":
		return ErrRetrieval
	case "timeout":
		return ErrTimeout
	case "not_found":
		return ErrNotFound
	case "cancelled":
		return ErrCancelled
	default:
		return ErrInvariant
	}
}
