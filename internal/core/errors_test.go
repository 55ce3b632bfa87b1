package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMapsWrappedSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"upstream", fmt.Errorf("chat call: %w", ErrUpstream), "upstream"},
		{"schema", fmt.Errorf("decode: %w", ErrSchema), "schema"},
		{"retrieval", fmt.Errorf("vector lane: %w", ErrRetrieval), "retrieval"},
		{"timeout", fmt.Errorf("call: %w", ErrTimeout), "timeout"},
		{"not_found", fmt.Errorf("history: %w", ErrNotFound), "not_found"},
		{"invariant", fmt.Errorf("draft: %w", ErrInvariant), "invariant"},
		{"cancelled", fmt.Errorf("ctx: %w", ErrCancelled), "cancelled"},
		{"unrecognized", errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestArticleTypeValid(t *testing.T) {
	for _, at := range ArticleTypes {
		if !at.Valid() {
			t.Errorf("ArticleType(%q).Valid() = false, want true", at)
		}
	}
	if ArticleType("NOT_A_CATEGORY").Valid() {
		t.Errorf("ArticleType(\"NOT_A_CATEGORY\").Valid() = true, want false")
	}
	if ArticleType("").Valid() {
		t.Errorf(`ArticleType("").Valid() = true, want false`)
	}
}
