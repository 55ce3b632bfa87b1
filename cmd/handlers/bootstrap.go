package handlers

import (
	"context"
	"fmt"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/chains"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/config"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/history"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/llm"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/logger"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/pipeline"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/reranker"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/search"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/store"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/style"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/verify"
)

// deps bundles the process-wide singletons every subcommand wires
// together (§5): the gateways, the document store, and the orchestrator
// built on top of them.
type deps struct {
	cfg          *config.Config
	db           *store.Postgres
	gateway      *llm.Gateway
	searcher     *search.Searcher
	styleRetr    *style.Retriever
	hist         *history.Store
	orchestrator *pipeline.Orchestrator
	verifier     *verify.Verifier
}

// bootstrap loads configuration and wires every process-wide singleton.
// Callers must Close db when done.
func bootstrap(ctx context.Context, cfgFile string) (*deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(logger.ParseLevel(cfg.Logging.Level))

	db, err := store.Open(cfg.Database.ConnectionString, cfg.Database.MaxConnections, cfg.Database.IdleConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	gateway, err := llm.New(ctx, llm.Config{
		APIKey:           cfg.AI.APIKey,
		ModelHigh:        cfg.AI.ModelHigh,
		ModelLite:        cfg.AI.ModelLite,
		EmbeddingModel:   cfg.AI.EmbeddingModel,
		EmbeddingDims:    cfg.AI.EmbeddingDims,
		CallTimeout:      cfg.AI.CallTimeout,
		MaxRetries:       cfg.AI.MaxRetries,
		RetryBaseBackoff: cfg.AI.RetryBaseBackoff,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build LLM gateway: %w", err)
	}

	var rr *reranker.Gateway
	if cfg.Reranker.Enabled {
		rr = reranker.New(reranker.NewLLMScorer(gateway), cfg.Reranker.TopK)
	}

	searcher := search.New(gateway, db, rr)
	styleRetr := style.New(gateway, db, rr)
	hist := history.New(db)
	orchestrator := pipeline.New(chains.Model(gateway), searcher, styleRetr, hist, cfg.Pipeline)
	verifier := verify.New(
		chains.NewStyleChecker(chains.Model(gateway)),
		chains.NewAutoRewriter(chains.Model(gateway)),
		chains.NewHallucinationDetector(chains.Model(gateway)),
		cfg.Pipeline.UseAutoRewrite,
		cfg.Pipeline.RewriteThreshold,
	)

	return &deps{
		cfg:          cfg,
		db:           db,
		gateway:      gateway,
		searcher:     searcher,
		styleRetr:    styleRetr,
		hist:         hist,
		orchestrator: orchestrator,
		verifier:     verifier,
	}, nil
}

func (d *deps) Close() {
	d.db.Close()
}
