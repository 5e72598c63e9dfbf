// Package sqlstore implements storage.Driver over database/sql. Statements
// are built with ent's dialect aware SQL builder so one implementation
// serves both SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/factory/pkg/storage"
)

// Store is the shared SQL implementation of storage.Driver.
type Store struct {
	drv *entsql.Driver
}

// New wraps db for the given ent dialect and creates the schema.
func New(ctx context.Context, dialectName string, db *sql.DB) (*Store, error) {
	s := &Store{drv: entsql.OpenDB(dialectName, db)}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.drv.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.drv.DB()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.drv.Close()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type querySource interface {
	Query() (string, []any)
}

func exec(ctx context.Context, q querier, b querySource) (sql.Result, error) {
	query, args := b.Query()
	return q.ExecContext(ctx, query, args...)
}

func query(ctx context.Context, q querier, b querySource) (*sql.Rows, error) {
	query, args := b.Query()
	return q.QueryContext(ctx, query, args...)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseTime(s string) time.Time {
	t, err := storage.ParseTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func anyStrings(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

var _ storage.Driver = (*Store)(nil)
