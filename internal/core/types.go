// Package core holds the shared types and error taxonomy used across every
// component of the generation pipeline.
package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

// ArticleType is the closed enumeration of recruiting-article categories.
// It partitions the corpus and selects the correct style rulebook.
type ArticleType string

const (
	Announcement ArticleType = "ANNOUNCEMENT"
	EventReport  ArticleType = "EVENT_REPORT"
	Interview    ArticleType = "INTERVIEW"
	Culture      ArticleType = "CULTURE"
)

// ArticleTypes lists every member of the enumeration, in a stable order.
var ArticleTypes = []ArticleType{Announcement, EventReport, Interview, Culture}

// Valid reports whether t is one of the four declared members.
func (t ArticleType) Valid() bool {
	switch t {
	case Announcement, EventReport, Interview, Culture:
		return true
	}
	return false
}

// Label returns the localized (Japanese) category label used in the
// metadata footer (§6).
func (t ArticleType) Label() string {
	switch t {
	case Announcement:
		return "アナウンスメント"
	case EventReport:
		return "イベントレポート"
	case Interview:
		return "インタビュー"
	case Culture:
		return "カルチャー/ストーリー"
	default:
		return string(t)
	}
}

// Passage is a single content unit retrieved from the corpus. Passages are
// created by the external ingester and never mutated after insertion.
type Passage struct {
	ID          string            `json:"id"`
	Body        string            `json:"body"`
	Attrs       map[string]string `json:"attrs"`
	Embedding   []float32         `json:"embedding,omitempty"` // nullable only during ingestion
	Category    ArticleType       `json:"category"`
	Source      string            `json:"source"`
	ChunkIndex  int               `json:"chunk_index"`
	TotalChunks int               `json:"total_chunks"`
	CreatedAt   time.Time         `json:"created_at"`
}

// StyleKind distinguishes the two kinds of StyleRecord.
type StyleKind string

const (
	StyleProfile StyleKind = "profile"
	StyleExcerpt StyleKind = "excerpt"
)

// StyleRecord is a style asset: either the single per-category rulebook
// (kind=profile) or a theme exemplar (kind=excerpt).
type StyleRecord struct {
	ID        string      `json:"id"`
	Category  ArticleType `json:"category"`
	Kind      StyleKind   `json:"kind"`
	Body      string      `json:"body"`
	Embedding []float32   `json:"embedding,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Quote is a single interview quote attributed to a speaker.
type Quote struct {
	Speaker string `json:"speaker"`
	Quote   string `json:"quote"`
}

// DefaultDesiredLength is used whenever parsed input omits a target length.
const DefaultDesiredLength = 2000

// StructuredInput is the parsed brief produced by the input-parser chain.
// Immutable once produced.
type StructuredInput struct {
	Theme         string      `json:"theme"`
	Audience      string      `json:"audience"`
	Goal          string      `json:"goal"`
	DesiredLength int         `json:"desired_length"`
	KeyPoints     []string    `json:"key_points"`
	Quotes        []Quote     `json:"quotes"`
	DataFacts     []string    `json:"data_facts"`
	Keywords      []string    `json:"keywords"`
	MissingNotes  []string    `json:"missing_notes"`
	Category      ArticleType `json:"category,omitempty"` // empty unless stated explicitly in the input
}

// NormalizedDesiredLength returns DesiredLength, defaulting per §3.
func (s StructuredInput) NormalizedDesiredLength() int {
	if s.DesiredLength <= 0 {
		return DefaultDesiredLength
	}
	return s.DesiredLength
}

// RetrievalBundle is the joined result of the Retrieve fan-out stage.
type RetrievalBundle struct {
	ContentPassages []Passage `json:"content_passages"` // ordered, deduplicated
	RulebookText    string    `json:"rulebook_text"`     // may be empty
	ExcerptTexts    []string  `json:"excerpt_texts"`     // ordered
}

// OutlineSectionLevel is restricted to H2/H3.
type OutlineSectionLevel string

const (
	H2 OutlineSectionLevel = "H2"
	H3 OutlineSectionLevel = "H3"
)

// OutlineSection describes a single planned section of the draft.
type OutlineSection struct {
	Level          OutlineSectionLevel `json:"level"`
	Title          string              `json:"title"`
	ContentSummary string              `json:"content_summary"`
	KeySources     []string            `json:"key_sources"`
	TargetLength   int                 `json:"target_length"`
}

// Outline is the ordered sequence of sections generated before content.
type Outline struct {
	Sections          []OutlineSection `json:"sections"`
	TotalTargetLength int              `json:"total_target_length"`
}

// DraftSection is one rendered section of the final draft.
type DraftSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Draft is the final generated artifact.
type Draft struct {
	ID                     string         `json:"id"`
	Titles                 [3]string      `json:"titles"`
	Lead                   string         `json:"lead"`
	Sections               []DraftSection `json:"sections"`
	Closing                string         `json:"closing"`
	Category               ArticleType    `json:"category"`
	Theme                  string         `json:"theme"`
	DesiredLength          int            `json:"desired_length"`
	ActualLength           int            `json:"actual_length"`
	TagCount               int            `json:"tag_count"`
	ConsistencyScore       float64        `json:"consistency_score"`
	VerificationConfidence float64        `json:"verification_confidence"`
	CreatedAt              time.Time      `json:"created_at"`
}

// UnverifiedMarkerPrefix is the literal substring the hallucination tagger
// inserts after an unsupported claim: "[要確認: <tag>]".
const UnverifiedMarkerPrefix = "[要確認:"

// Recompute recalculates ActualLength and TagCount from the current text
// fields, per the Draft invariants in §3.
func (d *Draft) Recompute() {
	total := utf8.RuneCountInString(d.Lead)
	for _, s := range d.Sections {
		total += utf8.RuneCountInString(s.Body)
	}
	total += utf8.RuneCountInString(d.Closing)
	d.ActualLength = total

	count := strings.Count(d.Lead, UnverifiedMarkerPrefix)
	for _, t := range d.Titles {
		count += strings.Count(t, UnverifiedMarkerPrefix)
	}
	for _, s := range d.Sections {
		count += strings.Count(s.Heading, UnverifiedMarkerPrefix)
		count += strings.Count(s.Body, UnverifiedMarkerPrefix)
	}
	count += strings.Count(d.Closing, UnverifiedMarkerPrefix)
	d.TagCount = count
}
