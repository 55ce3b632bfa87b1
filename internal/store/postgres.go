package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

// Postgres implements Store over a PostgreSQL database with pgvector and
// pg_trgm extensions enabled (schema in §6). It is safe for concurrent use;
// it is intended to be created once at startup and shared by every request.
type Postgres struct {
	db *sql.DB
}

// Open connects to dsn and verifies connectivity. maxConns/idleConns of 0
// fall back to sane pool defaults.
func Open(dsn string, maxConns, idleConns int) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 25
	}
	if idleConns <= 0 {
		idleConns = 5
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(idleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

// DB exposes the underlying connection pool for the migration runner, which
// operates below the Store interface (it creates the tables Store reads).
func (p *Postgres) DB() *sql.DB { return p.db }

func formatVector(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (p *Postgres) VectorSearch(ctx context.Context, queryVec []float32, category core.ArticleType, limit int) ([]Ranked, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
		SELECT id, body, attrs, category, source, chunk_index, total_chunks, created_at
		FROM documents
		WHERE category = $1
		ORDER BY embedding <=> $2::vector
		LIMIT $3
	`
	rows, err := p.db.QueryContext(ctx, q, string(category), formatVector(queryVec), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", core.ErrRetrieval, err)
	}
	defer rows.Close()

	var out []Ranked
	rank := 0
	for rows.Next() {
		rank++
		p, err := scanPassage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: vector search scan: %v", core.ErrRetrieval, err)
		}
		out = append(out, Ranked{Passage: p, Rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: vector search rows: %v", core.ErrRetrieval, err)
	}
	return out, nil
}

func (p *Postgres) TrigramSearch(ctx context.Context, queryText string, category core.ArticleType, limit int, minSimilarity float64) ([]Ranked, error) {
	if limit <= 0 {
		limit = 10
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinTrigramSimilarity
	}
	const q = `
		SELECT id, body, attrs, category, source, chunk_index, total_chunks, created_at
		FROM documents
		WHERE category = $1
		  AND similarity(body, $2) > $3
		ORDER BY similarity(body, $2) DESC
		LIMIT $4
	`
	rows, err := p.db.QueryContext(ctx, q, string(category), queryText, minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: trigram search: %v", core.ErrRetrieval, err)
	}
	defer rows.Close()

	var out []Ranked
	rank := 0
	for rows.Next() {
		rank++
		pg, err := scanPassage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: trigram search scan: %v", core.ErrRetrieval, err)
		}
		out = append(out, Ranked{Passage: pg, Rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: trigram search rows: %v", core.ErrRetrieval, err)
	}
	return out, nil
}

func (p *Postgres) StyleProfile(ctx context.Context, category core.ArticleType) (*core.StyleRecord, error) {
	const q = `
		SELECT id, category, kind, body, created_at, updated_at
		FROM style_profiles
		WHERE category = $1 AND kind = 'profile'
	`
	row := p.db.QueryRowContext(ctx, q, string(category))
	var rec core.StyleRecord
	var cat, kind string
	if err := row.Scan(&rec.ID, &cat, &kind, &rec.Body, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: style profile: %v", core.ErrRetrieval, err)
	}
	rec.Category = core.ArticleType(cat)
	rec.Kind = core.StyleKind(kind)
	return &rec, nil
}

func (p *Postgres) StyleExcerpts(ctx context.Context, queryVec []float32, category core.ArticleType, limit int) ([]core.StyleRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
		SELECT id, category, kind, body, created_at, updated_at
		FROM style_profiles
		WHERE category = $1 AND kind = 'excerpt'
		ORDER BY embedding <=> $2::vector
		LIMIT $3
	`
	rows, err := p.db.QueryContext(ctx, q, string(category), formatVector(queryVec), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: style excerpts: %v", core.ErrRetrieval, err)
	}
	defer rows.Close()

	var out []core.StyleRecord
	for rows.Next() {
		var rec core.StyleRecord
		var cat, kind string
		if err := rows.Scan(&rec.ID, &cat, &kind, &rec.Body, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: style excerpts scan: %v", core.ErrRetrieval, err)
		}
		rec.Category = core.ArticleType(cat)
		rec.Kind = core.StyleKind(kind)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: style excerpts rows: %v", core.ErrRetrieval, err)
	}
	return out, nil
}

// generatedArticleContent is the JSON shape stored in generated_articles.content.
type generatedArticleContent struct {
	Titles                 [3]string           `json:"titles"`
	Lead                   string              `json:"lead"`
	Sections               []core.DraftSection `json:"sections"`
	Closing                string              `json:"closing"`
	Theme                  string              `json:"theme"`
	DesiredLength          int                 `json:"desired_length"`
	ActualLength           int                 `json:"actual_length"`
	TagCount               int                 `json:"tag_count"`
	ConsistencyScore       float64             `json:"consistency_score"`
	VerificationConfidence float64             `json:"verification_confidence"`
}

func (p *Postgres) SaveDraft(ctx context.Context, inputMaterial string, draft core.Draft) (string, error) {
	id := draft.ID
	if id == "" {
		id = uuid.NewString()
	}
	content := generatedArticleContent{
		Titles: draft.Titles, Lead: draft.Lead, Sections: draft.Sections, Closing: draft.Closing,
		Theme: draft.Theme, DesiredLength: draft.DesiredLength, ActualLength: draft.ActualLength,
		TagCount: draft.TagCount, ConsistencyScore: draft.ConsistencyScore,
		VerificationConfidence: draft.VerificationConfidence,
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("store: marshal draft content: %w", err)
	}

	const q = `
		INSERT INTO generated_articles (id, input_material, category, content, markdown, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	createdAt := draft.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = p.db.ExecContext(ctx, q, id, inputMaterial, string(draft.Category), contentJSON, "", createdAt)
	if err != nil {
		return "", fmt.Errorf("store: save draft: %w", err)
	}
	return id, nil
}

func (p *Postgres) ListDrafts(ctx context.Context, limit, offset int) ([]core.Draft, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
		SELECT id, category, content, created_at
		FROM generated_articles
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := p.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list drafts: %w", err)
	}
	defer rows.Close()

	var out []core.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list drafts scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) GetDraft(ctx context.Context, id string) (*core.Draft, error) {
	const q = `
		SELECT id, category, content, created_at
		FROM generated_articles
		WHERE id = $1
	`
	row := p.db.QueryRowContext(ctx, q, id)
	d, err := scanDraft(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: draft %s", core.ErrNotFound, id)
		}
		return nil, fmt.Errorf("store: get draft: %w", err)
	}
	return &d, nil
}

func (p *Postgres) DeleteDraft(ctx context.Context, id string) error {
	const q = `DELETE FROM generated_articles WHERE id = $1`
	res, err := p.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("store: delete draft: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete draft rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: draft %s", core.ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPassage(s scanner) (core.Passage, error) {
	var p core.Passage
	var attrsJSON []byte
	var cat string
	if err := s.Scan(&p.ID, &p.Body, &attrsJSON, &cat, &p.Source, &p.ChunkIndex, &p.TotalChunks, &p.CreatedAt); err != nil {
		return core.Passage{}, err
	}
	p.Category = core.ArticleType(cat)
	if len(attrsJSON) > 0 {
		if err := json.Unmarshal(attrsJSON, &p.Attrs); err != nil {
			return core.Passage{}, fmt.Errorf("unmarshal attrs: %w", err)
		}
	}
	return p, nil
}

func scanDraft(s scanner) (core.Draft, error) {
	var d core.Draft
	var cat string
	var contentJSON []byte
	if err := s.Scan(&d.ID, &cat, &contentJSON, &d.CreatedAt); err != nil {
		return core.Draft{}, err
	}
	d.Category = core.ArticleType(cat)
	var content generatedArticleContent
	if err := json.Unmarshal(contentJSON, &content); err != nil {
		return core.Draft{}, fmt.Errorf("unmarshal content: %w", err)
	}
	d.Titles = content.Titles
	d.Lead = content.Lead
	d.Sections = content.Sections
	d.Closing = content.Closing
	d.Theme = content.Theme
	d.DesiredLength = content.DesiredLength
	d.ActualLength = content.ActualLength
	d.TagCount = content.TagCount
	d.ConsistencyScore = content.ConsistencyScore
	d.VerificationConfidence = content.VerificationConfidence
	return d, nil
}
