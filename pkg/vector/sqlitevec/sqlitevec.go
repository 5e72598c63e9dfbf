// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	factorylogger "github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// It must match the configured embedder.
	Dimensions uint

	Logger *slog.Logger
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(ctx context.Context, c Config) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}
	logger := c.Logger
	if logger == nil {
		logger = factorylogger.Nop()
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 tables key on integer rowids, so string ids and metadata live in
	// a companion table sharing the rowid.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vec_documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			metadata_json TEXT NOT NULL DEFAULT '{}'
		)`,
		fmt.Sprintf(
			`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
			c.Dimensions,
		),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating vector tables: %w", err)
		}
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

func (d *Driver) checkDimensions(v []float32) error {
	if uint(len(v)) != d.dimensions {
		return fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, len(v), d.dimensions)
	}
	return nil
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func decodeMetadata(s string) vector.Metadata {
	var m vector.Metadata
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

// Add upserts documents. vec0 has no UPDATE, so an existing embedding is
// deleted and re-inserted under the same rowid.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if err := d.checkDimensions(doc.Embedding); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		blob, err := sqlite_vec.SerializeFloat32(doc.Embedding)
		if err != nil {
			return fmt.Errorf("serializing embedding for doc %s: %w", doc.ID, err)
		}
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for doc %s: %w", doc.ID, err)
		}

		var rowID int64
		err = tx.QueryRowContext(ctx, `SELECT rowid FROM vec_documents WHERE doc_id = ?`, doc.ID).Scan(&rowID)
		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_documents SET metadata_json = ? WHERE rowid = ?`, string(meta), rowID,
			); err != nil {
				return fmt.Errorf("updating document %s: %w", doc.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
				return fmt.Errorf("deleting old embedding for doc %s: %w", doc.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				`INSERT INTO vec_documents(doc_id, metadata_json) VALUES (?, ?)`, doc.ID, string(meta),
			)
			if err != nil {
				return fmt.Errorf("inserting document %s: %w", doc.ID, err)
			}
			if rowID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("getting rowid for doc %s: %w", doc.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing document %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`, rowID, blob,
		); err != nil {
			return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to sqlite-vec", "count", len(docs))
	return nil
}

// Query runs a KNN match. Scores are 1 - cosine distance.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}
	if err := d.checkDimensions(embedding); err != nil {
		return nil, err
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serializing query embedding: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT d.doc_id, d.metadata_json, ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_documents d ON d.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, blob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			docID, meta string
			distance    float64
		)
		if err := rows.Scan(&docID, &meta, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		results = append(results, vector.QueryResult{
			Document: vector.Document{ID: docID, Metadata: decodeMetadata(meta)},
			Score:    float32(1 - distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec", "results", len(results))
	return results, nil
}

func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	in, args := inClause(ids)
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT d.doc_id, d.metadata_json, ve.embedding
		FROM vec_documents d
		LEFT JOIN vec_embeddings ve ON ve.rowid = d.rowid
		WHERE d.doc_id IN (%s)
	`, in), args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []vector.Document
	for rows.Next() {
		var (
			docID, meta string
			blob        []byte
		)
		if err := rows.Scan(&docID, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc := vector.Document{ID: docID, Metadata: decodeMetadata(meta)}
		if len(blob) > 0 {
			doc.Embedding, _ = deserializeFloat32(blob)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	in, args := inClause(ids)
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT rowid FROM vec_documents WHERE doc_id IN (%s)`, in), args...)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}
	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM vec_documents WHERE doc_id IN (%s)`, in,
	), args...); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted documents from sqlite-vec", "count", len(ids))
	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}
