// Package pipeline implements the orchestrator (C7): the nine-stage state
// machine that drives a single generation request from raw input material
// to a rendered Markdown draft, fanning out the Retrieve and Contents
// stages and emitting progress over an sse.Emitter.
//
// The orchestrator never talks to an HTTP response directly (§9 REDESIGN
// FLAGS): it always publishes to an *sse.Emitter, and both the synchronous
// generate() and the streaming generate_stream() external operations are
// built on the same Run method — one drains progress events itself, the
// other forwards them to a client.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/assemble"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/chains"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/config"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/history"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/llm"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/logger"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/search"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/sse"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/style"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/verify"
)

// tierOverrideModel implements chains.Model. When forceHigh is set it
// rewrites every call to llm.TierHigh regardless of the chain's nominal
// tier, implementing the use_lite_model feature flag's documented effect
// of disabling tier routing (§4.7).
type tierOverrideModel struct {
	underlying chains.Model
	forceHigh  bool
}

func (m tierOverrideModel) Chat(ctx context.Context, tier llm.Tier, messages []llm.Message, opts llm.Options, out any) error {
	if m.forceHigh {
		tier = llm.TierHigh
	}
	return m.underlying.Chat(ctx, tier, messages, opts, out)
}

// Orchestrator holds every chain and gateway the state machine drives.
type Orchestrator struct {
	parser            *chains.InputParser
	classifier        *chains.Classifier
	queryGen          *chains.QueryGenerator
	styleAnalyzer     *chains.StyleAnalyzer
	structureAnalyzer *chains.StructureAnalyzer
	outline           *chains.OutlineGenerator
	title             *chains.TitleGenerator
	lead              *chains.LeadGenerator
	section           *chains.SectionGenerator
	closing           *chains.ClosingGenerator
	verifier          *verify.Verifier
	searcher          *search.Searcher
	styleRetriever    *style.Retriever
	history           *history.Store
	flags             config.Pipeline
	log               *slog.Logger
}

// New builds the orchestrator. model is the shared LLM gateway; searcher
// and styleRetriever back the Retrieve fan-out; hist is the history store
// (may be nil to skip persistence, e.g. in tests).
func New(model chains.Model, searcher *search.Searcher, styleRetriever *style.Retriever, hist *history.Store, flags config.Pipeline) *Orchestrator {
	m := chains.Model(tierOverrideModel{underlying: model, forceHigh: flags.UseLiteModel})

	return &Orchestrator{
		parser:            chains.NewInputParser(m),
		classifier:        chains.NewClassifier(m),
		queryGen:          chains.NewQueryGenerator(m),
		styleAnalyzer:     chains.NewStyleAnalyzer(m),
		structureAnalyzer: chains.NewStructureAnalyzer(m),
		outline:           chains.NewOutlineGenerator(m),
		title:             chains.NewTitleGenerator(m),
		lead:              chains.NewLeadGenerator(m),
		section:           chains.NewSectionGenerator(m),
		closing:           chains.NewClosingGenerator(m),
		verifier:          verify.New(chains.NewStyleChecker(m), chains.NewAutoRewriter(m), chains.NewHallucinationDetector(m), flags.UseAutoRewrite, flags.RewriteThreshold),
		searcher:          searcher,
		styleRetriever:    styleRetriever,
		history:           hist,
		flags:             flags,
		log:               logger.Get(),
	}
}

// Generate runs the pipeline to completion synchronously and returns the
// rendered markdown and draft id, implementing the generate() external
// operation (§6) on top of Run/GenerateStream.
func (o *Orchestrator) Generate(ctx context.Context, rawMaterial, articleType string) (markdown, draftID string, err error) {
	emit := sse.NewEmitter(len(core.StageOrder) + 1)
	go o.Run(ctx, emit, rawMaterial, articleType)

	for ev := range emit.Events() {
		switch ev.Type {
		case sse.EventComplete:
			return ev.Complete.Markdown, ev.Complete.DraftID, nil
		case sse.EventError:
			return "", "", fmt.Errorf("%w: %s", core.SentinelForKind(ev.Error.Kind), ev.Error.Message)
		}
	}
	return "", "", fmt.Errorf("%w: generation ended without a terminal event", core.ErrInvariant)
}

// GenerateStream runs the pipeline, publishing every event to emit,
// implementing the generate_stream() external operation (§6).
func (o *Orchestrator) GenerateStream(ctx context.Context, rawMaterial, articleType string, emit *sse.Emitter) {
	o.Run(ctx, emit, rawMaterial, articleType)
}

// Run drives the nine-stage state machine (§4.7) for one request, emitting
// a ProgressEvent before each stage and exactly one terminal event.
func (o *Orchestrator) Run(ctx context.Context, emit *sse.Emitter, rawMaterial, requestedCategory string) {
	ctx, cancel := context.WithTimeout(ctx, nonZero(o.flags.RequestTimeout, defaultRequestTimeout))
	defer cancel()

	draftID := uuid.NewString()

	emit.Progress(core.StageParse, "")
	structuredInput, err := o.parser.Run(ctx, chains.InputParserInput{RawMaterial: rawMaterial})
	if err != nil {
		emit.Error(classify(ctx, err))
		return
	}
	if requested := core.ArticleType(requestedCategory); requestedCategory != "" && requestedCategory != "auto" && requested.Valid() {
		structuredInput.Category = requested
	}

	emit.Progress(core.StageClassify, "")
	classified, err := o.classifier.Run(ctx, chains.ClassifierInput{Input: structuredInput})
	if err != nil {
		emit.Error(classify(ctx, err))
		return
	}
	category := resolveCategory(structuredInput.Category, classified.Category, classified.Confidence)

	emit.Progress(core.StageQueryGen, "")
	queryText, err := o.resolveQuery(ctx, structuredInput, category)
	if err != nil {
		emit.Error(classify(ctx, err))
		return
	}

	emit.Progress(core.StageRetrieve, "")
	bundle, err := o.retrieve(ctx, queryText, structuredInput.Theme, category)
	if err != nil {
		emit.Error(classify(ctx, err))
		return
	}

	emit.Progress(core.StageAnalyze, "")
	styleSummary, structureSummary, err := o.analyze(ctx, bundle.ContentPassages)
	if err != nil {
		emit.Error(classify(ctx, err))
		return
	}

	emit.Progress(core.StageOutline, "")
	outline, err := o.outline.Run(ctx, chains.OutlineInput{
		StructuredInput:  structuredInput,
		Category:         category,
		StyleSummary:     styleSummary,
		StructureSummary: structureSummary,
		Rulebook:         bundle.RulebookText,
		Excerpts:         bundle.ExcerptTexts,
		ContentPassages:  bundle.ContentPassages,
	})
	if err != nil {
		emit.Error(classify(ctx, err))
		return
	}

	emit.Progress(core.StageContents, "")
	draft, err := o.contents(ctx, structuredInput, outline, bundle)
	if err != nil {
		emit.Error(classify(ctx, err))
		return
	}
	draft.ID = draftID
	draft.Category = category
	draft.Theme = structuredInput.Theme
	draft.DesiredLength = structuredInput.NormalizedDesiredLength()

	emit.Progress(core.StageQuality, "")
	o.verifier.Run(ctx, &draft, bundle.RulebookText, bundle.ContentPassages)

	emit.Progress(core.StageAssemble, "")
	markdown := assemble.Render(&draft)

	if o.history != nil {
		o.history.Save(ctx, rawMaterial, draft)
	}

	emit.Complete(markdown, draft.ID)
}

// resolveQuery implements the use_query_generator flag (§4.7): when off,
// the hybrid-search query is the space-joined keyword list.
func (o *Orchestrator) resolveQuery(ctx context.Context, input core.StructuredInput, category core.ArticleType) (string, error) {
	if !o.flags.UseQueryGenerator {
		return strings.Join(input.Keywords, " "), nil
	}
	return o.queryGen.Run(ctx, chains.QueryGeneratorInput{Input: input, Category: category})
}

// retrieve runs the three-way Retrieve fan-out (§4.7): content hybrid
// search always runs; retrieve_profile and retrieve_excerpts run only when
// use_style_profile_kb is on, per task timeout o.flags.PerTaskTimeout. All
// started tasks must succeed; a missing rulebook is an empty string, not a
// failure.
func (o *Orchestrator) retrieve(ctx context.Context, queryText, theme string, category core.ArticleType) (core.RetrievalBundle, error) {
	var bundle core.RetrievalBundle
	g, gctx := errgroup.WithContext(ctx)
	timeout := nonZero(o.flags.PerTaskTimeout, defaultPerTaskTimeout)

	g.Go(func() error {
		taskCtx, cancel := context.WithTimeout(gctx, timeout)
		defer cancel()
		passages, err := o.searcher.Search(taskCtx, queryText, category, search.Params{
			KPerSource: o.flags.KPerSource, FinalK: o.flags.FinalK, RRFK: o.flags.RRFK,
		})
		if err != nil {
			return fmt.Errorf("content search: %w", err)
		}
		bundle.ContentPassages = passages
		return nil
	})

	if o.flags.UseStyleProfileKB {
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			text, err := o.styleRetriever.RetrieveProfile(taskCtx, category)
			if err != nil {
				return fmt.Errorf("retrieve_profile: %w", err)
			}
			bundle.RulebookText = text
			return nil
		})
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			excerpts, err := o.styleRetriever.RetrieveExcerpts(taskCtx, theme, category, o.flags.StyleExcerptTopK)
			if err != nil {
				return fmt.Errorf("retrieve_excerpts: %w", err)
			}
			bundle.ExcerptTexts = excerpts
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return core.RetrievalBundle{}, fmt.Errorf("%w: %v", core.ErrRetrieval, err)
	}
	return bundle, nil
}

// analyze runs the style and structure analyzer chains concurrently over
// the retrieved content passages (§2 data flow).
func (o *Orchestrator) analyze(ctx context.Context, passages []core.Passage) (chains.StyleSummary, chains.StructureSummary, error) {
	bodies := passageBodies(passages)
	var styleSummary chains.StyleSummary
	var structureSummary chains.StructureSummary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := o.styleAnalyzer.Run(gctx, bodies)
		if err != nil {
			return err
		}
		styleSummary = s
		return nil
	})
	g.Go(func() error {
		s, err := o.structureAnalyzer.Run(gctx, bodies)
		if err != nil {
			return err
		}
		structureSummary = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return chains.StyleSummary{}, chains.StructureSummary{}, err
	}
	return styleSummary, structureSummary, nil
}

// contents runs the Contents fan-out (§4.7): title, lead, closing, and one
// subtask per outline section, all concurrently. Section concurrency is
// capped at max_parallel_sections; excess sections queue FIFO on the
// semaphore. The assembled section list is ordered by the outline's
// original section index regardless of completion order.
func (o *Orchestrator) contents(ctx context.Context, input core.StructuredInput, outline core.Outline, bundle core.RetrievalBundle) (core.Draft, error) {
	var draft core.Draft
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		titles, err := o.title.Run(gctx, chains.TitleInput{StructuredInput: input, Outline: outline, Rulebook: bundle.RulebookText})
		if err != nil {
			return err
		}
		draft.Titles = titles
		return nil
	})
	g.Go(func() error {
		lead, err := o.lead.Run(gctx, chains.LeadInput{StructuredInput: input, Outline: outline, Rulebook: bundle.RulebookText, Excerpts: bundle.ExcerptTexts})
		if err != nil {
			return err
		}
		draft.Lead = lead
		return nil
	})
	g.Go(func() error {
		closing, err := o.closing.Run(gctx, chains.ClosingInput{StructuredInput: input, Outline: outline, Rulebook: bundle.RulebookText})
		if err != nil {
			return err
		}
		draft.Closing = closing
		return nil
	})

	sections := make([]core.DraftSection, len(outline.Sections))
	sem := make(chan struct{}, maxInt(o.flags.MaxParallelSections, 1))
	for i, sec := range outline.Sections {
		i, sec := i, sec
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			result, err := o.section.Run(gctx, chains.SectionInput{
				Section:         sec,
				ContentPassages: bundle.ContentPassages,
				Rulebook:        bundle.RulebookText,
			})
			if err != nil {
				return err
			}
			sections[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return core.Draft{}, err
	}
	draft.Sections = sections
	return draft, nil
}

// resolveCategory implements §4.7's category rule: the parsed-input
// category if non-empty, else the classifier output; if the two disagree
// and the classifier's confidence is below 0.5, the classifier output
// wins outright.
func resolveCategory(parsed, classified core.ArticleType, classifierConfidence float64) core.ArticleType {
	if parsed == "" {
		return classified
	}
	if classified != parsed && classifierConfidence < 0.5 {
		return classified
	}
	return parsed
}

// classify maps a stage error to ErrCancelled when the root cause is an
// observed client cancellation (§5, §7), leaving every other error as-is.
func classify(ctx context.Context, err error) error {
	if ctx.Err() == context.Canceled {
		return fmt.Errorf("%w: %v", core.ErrCancelled, err)
	}
	return err
}

func passageBodies(passages []core.Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Body
	}
	return out
}

func maxInt(n, floor int) int {
	if n <= 0 {
		return floor
	}
	return n
}

func nonZero(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// defaultRequestTimeout and defaultPerTaskTimeout back-stop a zero-value
// config.Pipeline (e.g. in tests that don't load full configuration); real
// deployments always set these via config.setDefaults.
const (
	defaultRequestTimeout = 10 * time.Minute
	defaultPerTaskTimeout = 60 * time.Second
)
