// Package forms is the Postgres repository for legal-form records.
// Similarity search is delegated to the match_legal_forms SQL function,
// which orders by cosine distance with ties broken by insertion order.
package forms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/courtdata/formdex/internal/domain"
)

// querier is the consumer interface over pgxpool.Pool (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repo implements the form store contracts of the search, crawl, and
// catalog use cases.
type Repo struct {
	db querier
}

// New creates a forms repository.
func New(db querier) *Repo {
	return &Repo{db: db}
}

const matchQuery = `
SELECT id, code, title, topic, url, content, source, metadata, created_at, similarity
FROM match_legal_forms($1, $2, $3, $4)`

// MatchForms returns the limit nearest stored forms by cosine distance.
// Empty topic or source means no filter. The returned sequence is ordered
// by non-increasing similarity.
func (r *Repo) MatchForms(
	ctx context.Context, vector []float32, limit int, topic, source string,
) ([]domain.SearchResult, error) {
	rows, err := r.db.Query(ctx, matchQuery,
		pgvector.NewVector(vector), limit, nullIfEmpty(topic), nullIfEmpty(source))
	if err != nil {
		return nil, storeErr("match forms", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var (
			rec      domain.FormRecord
			metadata []byte
			sim      float64
		)
		if err := rows.Scan(
			&rec.ID, &rec.Code, &rec.Title, &rec.Topic, &rec.URL, &rec.Content,
			&rec.Source, &metadata, &rec.CreatedAt, &sim,
		); err != nil {
			return nil, storeErr("scan form row", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode form metadata: %w", err)
			}
		}
		results = append(results, domain.SearchResult{Form: rec, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("read form rows", err)
	}
	return results, nil
}

const upsertQuery = `
INSERT INTO legal_forms (code, title, topic, url, content, source, metadata, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (source, code) DO UPDATE SET
    title = EXCLUDED.title,
    topic = EXCLUDED.topic,
    url = EXCLUDED.url,
    content = EXCLUDED.content,
    metadata = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding`

// UpsertForm inserts or replaces a form record keyed by (source, code).
func (r *Repo) UpsertForm(ctx context.Context, rec domain.FormRecord, embedding []float32) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode form metadata: %w", err)
	}

	vec := pgvector.NewVector(embedding)
	_, err = r.db.Exec(ctx, upsertQuery,
		rec.Code, rec.Title, rec.Topic, rec.URL, rec.Content, rec.Source, metadata, &vec)
	if err != nil {
		return storeErr("upsert form "+rec.Code, err)
	}
	return nil
}

// ListSources returns per-source record counts.
func (r *Repo) ListSources(ctx context.Context) ([]domain.SourceStats, error) {
	rows, err := r.db.Query(ctx, `
SELECT source, COUNT(*), MAX(created_at)
FROM legal_forms
GROUP BY source
ORDER BY source`)
	if err != nil {
		return nil, storeErr("list sources", err)
	}
	defer rows.Close()

	var sources []domain.SourceStats
	for rows.Next() {
		var s domain.SourceStats
		if err := rows.Scan(&s.Source, &s.FormCount, &s.LastSeen); err != nil {
			return nil, storeErr("scan source row", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("read source rows", err)
	}
	return sources, nil
}

// ListTopics returns the distinct topics present in the store.
func (r *Repo) ListTopics(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT topic FROM legal_forms ORDER BY topic`)
	if err != nil {
		return nil, storeErr("list topics", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, storeErr("scan topic row", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("read topic rows", err)
	}
	return topics, nil
}

// Stats returns aggregate store statistics.
func (r *Repo) Stats(ctx context.Context) (domain.StoreStats, error) {
	var stats domain.StoreStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT topic) FROM legal_forms`,
	).Scan(&stats.TotalForms, &stats.TotalTopics)
	if err != nil {
		return domain.StoreStats{}, storeErr("count forms", err)
	}

	stats.Sources, err = r.ListSources(ctx)
	if err != nil {
		return domain.StoreStats{}, err
	}
	return stats, nil
}

// Ping reports store reachability for health checks.
func (r *Repo) Ping(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, "SELECT 1"); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// storeErr wraps a store failure as SearchUnavailable. The read path runs a
// fixed schema, so any database error means the store is not usable.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrSearchUnavailable)
}

// nullIfEmpty maps "" to SQL NULL for optional filter parameters.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
