package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/storage"
)

var projectColumns = []string{"id", "user_id", "name", "idea_seed", "constraints_json", "status", "created_at", "updated_at"}

func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	constraints := p.Constraints
	if len(constraints) == 0 {
		constraints = json.RawMessage("{}")
	}

	_, err := exec(ctx, s.drv, s.builder().Insert("projects").
		Columns(projectColumns...).
		Values(p.ID, string(p.Owner), p.Name, p.IdeaSeed, string(constraints), string(p.Status),
			storage.FormatTime(p.CreatedAt), storage.FormatTime(p.UpdatedAt)))
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*project.Project, error) {
	rows, err := query(ctx, s.drv, s.builder().Select(projectColumns...).
		From(s.builder().Table("projects")).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, fmt.Errorf("querying project: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, storage.NotFoundError{Entity: "project", ID: id}
	}

	var (
		p                    project.Project
		owner, constraints   string
		status               string
		createdAt, updatedAt string
	)
	if err := rows.Scan(&p.ID, &owner, &p.Name, &p.IdeaSeed, &constraints, &status, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	p.Owner = project.Owner(owner)
	p.Constraints = json.RawMessage(constraints)
	p.Status = project.Status(status)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, rows.Err()
}

func (s *Store) AdvanceProjectStatus(ctx context.Context, id string, status project.Status, at time.Time) (project.Status, error) {
	var stored project.Status
	err := withTx(ctx, s.drv.DB(), func(tx *sql.Tx) error {
		var current string
		q, args := s.builder().Select("status").
			From(s.builder().Table("projects")).
			Where(entsql.EQ("id", id)).Query()
		if err := tx.QueryRowContext(ctx, q, args...).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.NotFoundError{Entity: "project", ID: id}
			}
			return fmt.Errorf("reading project status: %w", err)
		}

		stored = project.Advance(project.Status(current), status)
		_, err := exec(ctx, tx, s.builder().Update("projects").
			Set("status", string(stored)).
			Set("updated_at", storage.FormatTime(at)).
			Where(entsql.EQ("id", id)))
		if err != nil {
			return fmt.Errorf("updating project status: %w", err)
		}
		return nil
	})
	return stored, err
}

var runColumns = []string{"id", "project_id", "kind", "status", "input_json", "output_json", "error_text", "started_at", "finished_at"}

func (s *Store) AppendRun(ctx context.Context, r *project.Run) error {
	input := r.Input
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	var output any
	if len(r.Output) > 0 {
		output = string(r.Output)
	}

	_, err := exec(ctx, s.drv, s.builder().Insert("runs").
		Columns(runColumns...).
		Values(r.ID, r.ProjectID, string(r.Kind), string(r.Status), string(input), output,
			nullString(r.ErrorText), storage.FormatTime(r.StartedAt), storage.FormatTime(r.FinishedAt)))
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

func (s *Store) LatestRun(ctx context.Context, projectID string, kind project.RunKind) (*project.Run, error) {
	runs, err := s.selectRuns(ctx, s.builder().Select(runColumns...).
		From(s.builder().Table("runs")).
		Where(entsql.And(entsql.EQ("project_id", projectID), entsql.EQ("kind", string(kind)))).
		OrderBy(entsql.Desc("started_at")).
		Limit(1))
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, storage.NotFoundError{Entity: string(kind) + " run", ID: projectID}
	}
	return &runs[0], nil
}

func (s *Store) ListRuns(ctx context.Context, projectID string) ([]project.Run, error) {
	return s.selectRuns(ctx, s.builder().Select(runColumns...).
		From(s.builder().Table("runs")).
		Where(entsql.EQ("project_id", projectID)).
		OrderBy(entsql.Desc("started_at")))
}

func (s *Store) selectRuns(ctx context.Context, sel *entsql.Selector) ([]project.Run, error) {
	rows, err := query(ctx, s.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []project.Run
	for rows.Next() {
		var (
			r                     project.Run
			kind, status, input   string
			output, errText       sql.NullString
			startedAt, finishedAt string
		)
		if err := rows.Scan(&r.ID, &r.ProjectID, &kind, &status, &input, &output, &errText, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Kind = project.RunKind(kind)
		r.Status = project.RunStatus(status)
		r.Input = json.RawMessage(input)
		if output.Valid {
			r.Output = json.RawMessage(output.String)
		}
		r.ErrorText = errText.String
		r.StartedAt = parseTime(startedAt)
		r.FinishedAt = parseTime(finishedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

var artifactColumns = []string{"id", "project_id", "name", "blob_key", "content_type", "bytes", "sha256", "created_at"}

func (s *Store) UpsertArtifact(ctx context.Context, a *project.Artifact) error {
	_, err := exec(ctx, s.drv, s.builder().Insert("artifacts").
		Columns(artifactColumns...).
		Values(a.ID, a.ProjectID, a.Name, a.BlobKey, a.ContentType, a.Bytes, a.SHA256, storage.FormatTime(a.CreatedAt)).
		OnConflict(
			entsql.ConflictColumns("project_id", "name"),
			entsql.ResolveWithNewValues(),
		))
	if err != nil {
		return fmt.Errorf("upserting artifact: %w", err)
	}
	return nil
}

func (s *Store) ListArtifacts(ctx context.Context, projectID string) ([]project.Artifact, error) {
	rows, err := query(ctx, s.drv, s.builder().Select(artifactColumns...).
		From(s.builder().Table("artifacts")).
		Where(entsql.EQ("project_id", projectID)).
		OrderBy("name"))
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()

	var out []project.Artifact
	for rows.Next() {
		var (
			a         project.Artifact
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Name, &a.BlobKey, &a.ContentType, &a.Bytes, &a.SHA256, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
