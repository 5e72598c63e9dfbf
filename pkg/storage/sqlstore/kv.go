package sqlstore

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/factory/pkg/storage"
)

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	rows, err := query(ctx, s.drv, s.builder().Select("value").
		From(s.builder().Table("kv")).
		Where(entsql.EQ("key", key)))
	if err != nil {
		return "", false, fmt.Errorf("reading key %q: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", false, rows.Err()
	}
	var value string
	if err := rows.Scan(&value); err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := exec(ctx, s.drv, s.builder().Insert("kv").
		Columns("key", "value", "updated_at").
		Values(key, value, storage.FormatTime(time.Now())).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWithNewValues(),
		))
	if err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := exec(ctx, s.drv, s.builder().Delete("kv").Where(entsql.EQ("key", key)))
	if err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}
	return nil
}
