// Package pgvector provides a PostgreSQL vector driver using the pgvector
// extension.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	factorylogger "github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/vector"
)

// DefaultTable is used when no table is configured.
const DefaultTable = "factory_memory_vectors"

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config holds configuration for the pgvector driver.
type Config struct {
	// DSN is a PostgreSQL connection string.
	DSN string

	// Table defaults to DefaultTable.
	Table string

	Dimensions uint
	Logger     *slog.Logger
}

// Driver implements vector.Driver on a pgvector table. Similarity is
// 1 - cosine distance.
type Driver struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewDriver connects, enables the extension and creates the table.
func NewDriver(ctx context.Context, c Config) (*Driver, error) {
	if c.DSN == "" {
		return nil, fmt.Errorf("pgvector DSN is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("pgvector embedding dimensions cannot be 0, must be configured")
	}
	table := c.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid pgvector table name %q", table)
	}
	logger := c.Logger
	if logger == nil {
		logger = factorylogger.Nop()
	}

	pool, err := pgxpool.New(ctx, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'
		)`, table, c.Dimensions),
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating pgvector schema: %w", err)
		}
	}

	logger.Info("pgvector driver initialized", "table", table, "dimensions", c.Dimensions)
	return &Driver{pool: pool, table: table, logger: logger}, nil
}

func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata
	`, d.table)
	for _, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for doc %s: %w", doc.ID, err)
		}
		batch.Queue(query, doc.ID, pgv.NewVector(doc.Embedding), string(meta))
	}

	if err := d.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting vectors: %w", err)
	}
	d.logger.Debug("upserted vectors to pgvector", "count", len(docs))
	return nil
}

func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	rows, err := d.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, embedding, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, d.table), pgv.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			r     vector.QueryResult
			emb   pgv.Vector
			meta  []byte
			score float64
		)
		if err := rows.Scan(&r.ID, &emb, &meta, &score); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		r.Embedding = emb.Slice()
		_ = json.Unmarshal(meta, &r.Metadata)
		r.Score = float32(score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}
	return results, nil
}

func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := d.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, embedding, metadata FROM %s WHERE id = ANY($1)`, d.table,
	), ids)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var docs []vector.Document
	for rows.Next() {
		var (
			doc  vector.Document
			emb  pgv.Vector
			meta []byte
		)
		if err := rows.Scan(&doc.ID, &emb, &meta); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		doc.Embedding = emb.Slice()
		_ = json.Unmarshal(meta, &doc.Metadata)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := d.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, d.table), ids); err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	d.logger.Debug("deleted vectors from pgvector", "count", len(ids))
	return nil
}

// Close releases the connection pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}
