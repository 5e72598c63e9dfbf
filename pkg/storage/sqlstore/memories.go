package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/storage"
)

var memoryColumns = []string{
	"id", "user_id", "project_id", "kind", "text", "tags_json", "salience", "source",
	"is_deleted", "created_at", "updated_at", "deleted_at",
}

func (s *Store) InsertMemory(ctx context.Context, item *memory.Item) error {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	deleted := 0
	var deletedAt any
	if item.Deleted {
		deleted = 1
	}
	if item.DeletedAt != nil {
		deletedAt = storage.FormatTime(*item.DeletedAt)
	}

	_, err = exec(ctx, s.drv, s.builder().Insert("memories").
		Columns(memoryColumns...).
		Values(item.ID, string(item.Owner), nullString(item.ProjectID), string(item.Kind), item.Text,
			string(tagsJSON), item.Salience, string(item.Source), deleted,
			storage.FormatTime(item.CreatedAt), storage.FormatTime(item.UpdatedAt), deletedAt))
	if err != nil {
		return fmt.Errorf("inserting memory: %w", err)
	}
	return nil
}

func (s *Store) GetMemories(ctx context.Context, ids []string) ([]memory.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.selectMemories(ctx, s.builder().Select(memoryColumns...).
		From(s.builder().Table("memories")).
		Where(entsql.In("id", anyStrings(ids)...)))
}

func (s *Store) SoftDeleteMemory(ctx context.Context, id string, at time.Time) (bool, error) {
	ts := storage.FormatTime(at)
	res, err := exec(ctx, s.drv, s.builder().Update("memories").
		Set("is_deleted", 1).
		Set("deleted_at", ts).
		Set("updated_at", ts).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("is_deleted", 0))))
	if err != nil {
		return false, fmt.Errorf("deleting memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	// Already deleted rows keep their original deleted_at.
	items, err := s.GetMemories(ctx, []string{id})
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

func (s *Store) ListRecentMemories(ctx context.Context, owner project.Owner, projectID string, limit int) ([]memory.Item, error) {
	preds := []*entsql.Predicate{
		entsql.EQ("user_id", string(owner)),
		entsql.EQ("is_deleted", 0),
	}
	if projectID != "" {
		preds = append(preds, entsql.EQ("project_id", projectID))
	}

	sel := s.builder().Select(memoryColumns...).
		From(s.builder().Table("memories")).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	return s.selectMemories(ctx, sel)
}

func (s *Store) selectMemories(ctx context.Context, sel *entsql.Selector) ([]memory.Item, error) {
	rows, err := query(ctx, s.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	var out []memory.Item
	for rows.Next() {
		var (
			it                   memory.Item
			owner, kind, source  string
			tagsJSON             string
			projectID, deletedAt sql.NullString
			deleted              int
			createdAt, updatedAt string
		)
		if err := rows.Scan(&it.ID, &owner, &projectID, &kind, &it.Text, &tagsJSON, &it.Salience,
			&source, &deleted, &createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("scanning memory: %w", err)
		}
		it.Owner = project.Owner(owner)
		it.ProjectID = projectID.String
		it.Kind = memory.Kind(kind)
		it.Source = memory.Source(source)
		it.Deleted = deleted != 0
		it.CreatedAt = parseTime(createdAt)
		it.UpdatedAt = parseTime(updatedAt)
		if deletedAt.Valid {
			t := parseTime(deletedAt.String)
			it.DeletedAt = &t
		}
		if err := json.Unmarshal([]byte(tagsJSON), &it.Tags); err != nil || it.Tags == nil {
			it.Tags = []string{}
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

var pointerColumns = []string{"memory_id", "user_id", "project_id", "vector_id", "embedding_model", "created_at"}

func (s *Store) UpsertPointer(ctx context.Context, p *memory.Pointer) error {
	_, err := exec(ctx, s.drv, s.builder().Insert("memory_vectors").
		Columns(pointerColumns...).
		Values(p.MemoryID, string(p.Owner), nullString(p.ProjectID), p.VectorID, p.EmbeddingModel,
			storage.FormatTime(p.CreatedAt)).
		OnConflict(
			entsql.ConflictColumns("memory_id"),
			entsql.ResolveWithNewValues(),
		))
	if err != nil {
		return fmt.Errorf("upserting memory pointer: %w", err)
	}
	return nil
}

func (s *Store) ListOrphanPointers(ctx context.Context, limit int) ([]memory.Pointer, error) {
	b := s.builder()
	mv := b.Table("memory_vectors")
	m := b.Table("memories")

	cols := make([]string, len(pointerColumns))
	for i, c := range pointerColumns {
		cols[i] = mv.C(c)
	}

	sel := b.Select(cols...).
		From(mv).
		LeftJoin(m).
		On(mv.C("memory_id"), m.C("id")).
		Where(entsql.Or(entsql.IsNull(m.C("id")), entsql.EQ(m.C("is_deleted"), 1))).
		OrderBy(mv.C("memory_id"))
	if limit > 0 {
		sel.Limit(limit)
	}

	rows, err := query(ctx, s.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("querying orphan pointers: %w", err)
	}
	defer rows.Close()

	var out []memory.Pointer
	for rows.Next() {
		var (
			p         memory.Pointer
			owner     string
			projectID sql.NullString
			createdAt string
		)
		if err := rows.Scan(&p.MemoryID, &owner, &projectID, &p.VectorID, &p.EmbeddingModel, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning memory pointer: %w", err)
		}
		p.Owner = project.Owner(owner)
		p.ProjectID = projectID.String
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePointers(ctx context.Context, memoryIDs []string) error {
	if len(memoryIDs) == 0 {
		return nil
	}
	_, err := exec(ctx, s.drv, s.builder().Delete("memory_vectors").
		Where(entsql.In("memory_id", anyStrings(memoryIDs)...)))
	if err != nil {
		return fmt.Errorf("deleting memory pointers: %w", err)
	}
	return nil
}
