package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"applicant-rag/internal/domain"
)

const pgSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS rag_collections (
	name       TEXT PRIMARY KEY,
	dimension  INT NOT NULL,
	metric     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS rag_points (
	id           UUID PRIMARY KEY,
	collection   TEXT NOT NULL REFERENCES rag_collections(name) ON DELETE CASCADE,
	tag          TEXT NOT NULL,
	filename     TEXT NOT NULL,
	page_content TEXT NOT NULL,
	metadata     JSONB NOT NULL,
	embedding    vector NOT NULL
);
CREATE INDEX IF NOT EXISTS rag_points_collection_idx ON rag_points (collection, tag, filename);
`

// PGVector keeps every collection in one points table keyed by collection
// name; the dimension lives in rag_collections.
type PGVector struct {
	pool *pgxpool.Pool
}

func NewPGVector(ctx context.Context, dsn string) (*PGVector, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn failed: %w", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool failed: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure pgvector schema failed: %w", err)
	}
	return &PGVector{pool: pool}, nil
}

func (s *PGVector) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGVector) Close() {
	s.pool.Close()
}

func (s *PGVector) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rag_collections WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check collection failed: %w", err)
	}
	return exists, nil
}

func (s *PGVector) CreateCollection(ctx context.Context, name string, dimension int, metric Metric) error {
	if metric != MetricCosine {
		return fmt.Errorf("unsupported metric %q", metric)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO rag_collections (name, dimension, metric) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
		name, dimension, string(metric))
	if err != nil {
		return fmt.Errorf("create collection failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCollectionExists
	}
	return nil
}

func (s *PGVector) dimension(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, collection string) (int, error) {
	var d int
	err := q.QueryRow(ctx, `SELECT dimension FROM rag_collections WHERE name = $1`, collection).Scan(&d)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return 0, fmt.Errorf("read collection dimension failed: %w", err)
	}
	return d, nil
}

func (s *PGVector) Upload(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		want, err := s.dimension(ctx, tx, collection)
		if err != nil {
			return err
		}
		if err := checkDimensions(collection, want, points); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, p := range points {
			meta, err := json.Marshal(p.Payload.Metadata)
			if err != nil {
				return fmt.Errorf("marshal point metadata failed: %w", err)
			}
			batch.Queue(
				`INSERT INTO rag_points (id, collection, tag, filename, page_content, metadata, embedding)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				uuid.New(), collection, p.Payload.Tag.String(), p.Payload.Filename, p.Payload.PageContent,
				meta, pgvector.NewVector(p.Vector),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert points failed: %w", err)
		}
		return nil
	})
}

func (s *PGVector) Search(ctx context.Context, collection string, vector []float32, k int, filter *Filter) ([]Hit, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	want, err := s.dimension(ctx, s.pool, collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != want {
		return nil, &DimensionMismatchError{Collection: collection, Want: want, Got: len(vector)}
	}

	sql := `SELECT id, tag, filename, page_content, metadata, 1 - (embedding <=> $1) AS score
		FROM rag_points WHERE collection = $2`
	args := []any{pgvector.NewVector(vector), collection}
	if !filter.Empty() {
		sql += ` AND (tag = ANY($3) OR filename = ANY($4))`
		args = append(args, filter.tagStrings(), filter.Filenames)
	}
	sql += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT %d`, k)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector search failed: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, k)
	for rows.Next() {
		var (
			id    uuid.UUID
			tag   string
			meta  []byte
			score float64
			h     Hit
		)
		if err := rows.Scan(&id, &tag, &h.Payload.Filename, &h.Payload.PageContent, &meta, &score); err != nil {
			return nil, fmt.Errorf("scan point failed: %w", err)
		}
		if err := json.Unmarshal(meta, &h.Payload.Metadata); err != nil {
			return nil, fmt.Errorf("parse point metadata failed: %w", err)
		}
		if t, err := domain.ParseTag(tag); err == nil {
			h.Payload.Tag = t
		}
		h.ID = id.String()
		h.Score = float32(score)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate points failed: %w", err)
	}
	return hits, nil
}

func (s *PGVector) Delete(ctx context.Context, collection string, filter DeleteFilter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	if _, err := s.dimension(ctx, s.pool, collection); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM rag_points WHERE collection = $1 AND tag = $2 AND filename = $3`,
		collection, filter.Tag.String(), filter.Filename)
	if err != nil {
		return fmt.Errorf("delete points failed: %w", err)
	}
	return nil
}
