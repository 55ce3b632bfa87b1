// Package verify implements the verification & rewrite stage (C8): the
// style-consistency scorer, the conditional rewriter, the hallucination
// detector, and the unverified-claim tagger. Quality verification is
// best-effort (§7): any sub-chain failure degrades to a zero score rather
// than aborting generation.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/chains"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/logger"
)

// Verifier drives the Quality stage over a single draft.
type Verifier struct {
	styleChecker     *chains.StyleChecker
	rewriter         *chains.AutoRewriter
	hallucination    *chains.HallucinationDetector
	useAutoRewrite   bool
	rewriteThreshold float64
	log              *slog.Logger
}

// New builds a Verifier. rewriteThreshold defaults to 0.8 if <= 0.
func New(styleChecker *chains.StyleChecker, rewriter *chains.AutoRewriter, hallucination *chains.HallucinationDetector, useAutoRewrite bool, rewriteThreshold float64) *Verifier {
	if rewriteThreshold <= 0 {
		rewriteThreshold = 0.8
	}
	return &Verifier{
		styleChecker:     styleChecker,
		rewriter:         rewriter,
		hallucination:    hallucination,
		useAutoRewrite:   useAutoRewrite,
		rewriteThreshold: rewriteThreshold,
		log:              logger.Get(),
	}
}

// Compose builds the full draft text per §4.8 step 1: first title, lead,
// then every section's heading and body, then closing.
func Compose(d *core.Draft) string {
	var b strings.Builder
	b.WriteString(d.Titles[0])
	b.WriteString("\n")
	b.WriteString(d.Lead)
	b.WriteString("\n")
	for _, s := range d.Sections {
		b.WriteString(s.Heading)
		b.WriteString("\n")
		b.WriteString(s.Body)
		b.WriteString("\n")
	}
	b.WriteString(d.Closing)
	return b.String()
}

// Run executes the style check, conditional rewrite, and hallucination
// tagging over draft in place, then recomputes its length/tag invariants.
// Sub-chain failures degrade the corresponding score to 0 and are logged,
// never returned — the Quality stage never aborts generation (§4.8, §7).
func (v *Verifier) Run(ctx context.Context, draft *core.Draft, rulebook string, contentPassages []core.Passage) {
	check, err := v.styleChecker.Run(ctx, chains.StyleCheckerInput{DraftText: Compose(draft), Rulebook: rulebook})
	if err != nil {
		v.log.Warn("verify: style check failed, degrading to zero score", "error", err)
		draft.ConsistencyScore = 0
	} else {
		draft.ConsistencyScore = check.ConsistencyScore
		if v.useAutoRewrite && check.ConsistencyScore < v.rewriteThreshold {
			if err := v.rewrite(ctx, draft, check, rulebook); err != nil {
				v.log.Warn("verify: auto-rewrite failed, keeping pre-rewrite draft", "error", err)
			}
		}
	}

	hall, err := v.hallucination.Run(ctx, chains.HallucinationDetectorInput{DraftText: Compose(draft), ContentPassages: contentPassages})
	if err != nil {
		v.log.Warn("verify: hallucination detection failed, degrading to zero confidence", "error", err)
		draft.VerificationConfidence = 0
		draft.Recompute()
		return
	}
	draft.VerificationConfidence = hall.Confidence
	for _, claim := range hall.UnverifiedClaims {
		tagClaim(draft, claim.Claim, claim.SuggestedTag)
	}
	draft.Recompute()
}

// rewrite runs the auto-rewriter over the composed draft and re-parses the
// H2/H3 skeleton deterministically (§4.8 step 2). The original title list
// and closing are preserved; only the lead and section bodies are replaced
// from the rewrite, since the composed text does not mark where the
// closing begins.
func (v *Verifier) rewrite(ctx context.Context, draft *core.Draft, check chains.StyleCheckResult, rulebook string) error {
	rewritten, err := v.rewriter.Run(ctx, chains.RewriterInput{
		DraftText:  Compose(draft),
		StyleCheck: check,
		Rulebook:   rulebook,
	})
	if err != nil {
		return err
	}
	lead, sections := reparseSkeleton(rewritten)
	draft.Lead = lead
	if len(sections) > 0 {
		draft.Sections = sections
	}
	return nil
}

func isHeading(line string) bool {
	return strings.HasPrefix(line, "## ") || strings.HasPrefix(line, "### ")
}

// reparseSkeleton splits rewritten composed text back into a lead and an
// ordered list of sections. Headings are lines beginning with "## " or
// "### "; everything between two headings is the preceding section's body
// (§4.8 step 2). The first line is the title line from Compose and is
// discarded here — callers keep the original title list.
func reparseSkeleton(text string) (lead string, sections []core.DraftSection) {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}

	firstHeading := -1
	for i, l := range lines {
		if isHeading(l) {
			firstHeading = i
			break
		}
	}
	if firstHeading == -1 {
		return strings.TrimSpace(strings.Join(lines, "\n")), nil
	}
	lead = strings.TrimSpace(strings.Join(lines[:firstHeading], "\n"))

	var curHeading string
	var curBody []string
	flush := func() {
		if curHeading != "" {
			sections = append(sections, core.DraftSection{
				Heading: curHeading,
				Body:    strings.TrimSpace(strings.Join(curBody, "\n")),
			})
		}
	}
	for _, l := range lines[firstHeading:] {
		if isHeading(l) {
			flush()
			curHeading = l
			curBody = nil
			continue
		}
		curBody = append(curBody, l)
	}
	flush()
	return lead, sections
}

// tagClaim inserts the unverified-claim marker after every verbatim
// occurrence of claim across the lead, each section body, and the closing
// (§4.8 step 3).
func tagClaim(draft *core.Draft, claim, tag string) {
	if claim == "" {
		return
	}
	marker := fmt.Sprintf("%s %s]", core.UnverifiedMarkerPrefix, tag)

	if v, ok := insertAfterClaim(draft.Lead, claim, marker); ok {
		draft.Lead = v
	}
	for i := range draft.Sections {
		if v, ok := insertAfterClaim(draft.Sections[i].Body, claim, marker); ok {
			draft.Sections[i].Body = v
		}
	}
	if v, ok := insertAfterClaim(draft.Closing, claim, marker); ok {
		draft.Closing = v
	}
}

// insertAfterClaim inserts marker immediately after the sentence containing
// every verbatim occurrence of claim in text. Idempotent: an occurrence
// already immediately followed by marker is left alone, so tagging the same
// draft twice never doubles a tag.
func insertAfterClaim(text, claim, marker string) (string, bool) {
	if !strings.Contains(text, claim) {
		return text, false
	}
	changed := false
	var b strings.Builder
	i := 0
	for {
		rel := strings.Index(text[i:], claim)
		if rel < 0 {
			b.WriteString(text[i:])
			break
		}
		idx := i + rel
		claimEnd := idx + len(claim)
		boundary := findSentenceEnd(text, marker, claimEnd)
		b.WriteString(text[i:boundary])
		if !strings.HasPrefix(text[boundary:], marker) {
			b.WriteString(marker)
			changed = true
		}
		i = boundary
	}
	if !changed {
		return text, false
	}
	return b.String(), true
}

// findSentenceEnd returns the index just past the first sentence boundary
// at or after from: "。", a newline, or ". " (period-space). If marker
// already occurs at or after from, the scan stops right there instead of
// consuming it, so re-tagging the same claim lands on the existing marker
// rather than scanning past it to end of text. If neither is found before
// the end of text, the end of text is the boundary.
func findSentenceEnd(text, marker string, from int) int {
	for i := from; i < len(text); {
		if strings.HasPrefix(text[i:], marker) {
			return i
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case r == '。', r == '\n':
			return i + size
		case r == '.' && i+1 < len(text) && text[i+1] == ' ':
			return i + 2
		}
		i += size
	}
	return len(text)
}
