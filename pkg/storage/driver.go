// Package storage defines the relational store behind projects, runs,
// artifacts, memories and prompt overrides.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/factory/pkg/kv"
	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/project"
)

// Driver is implemented by every relational backend. It carries no locks
// across calls: concurrent writers to one project are last-write-wins.
type Driver interface {
	memory.Store
	kv.Store

	// CreateProject inserts a new project.
	CreateProject(ctx context.Context, p *project.Project) error

	// GetProject returns a project or a NotFoundError.
	GetProject(ctx context.Context, id string) (*project.Project, error)

	// AdvanceProjectStatus moves a project towards status without ever
	// lowering its rank, refreshes updated_at and returns the stored
	// status.
	AdvanceProjectStatus(ctx context.Context, id string, status project.Status, at time.Time) (project.Status, error)

	// AppendRun records a stage invocation.
	AppendRun(ctx context.Context, r *project.Run) error

	// LatestRun returns the most recently started run of kind, or a
	// NotFoundError.
	LatestRun(ctx context.Context, projectID string, kind project.RunKind) (*project.Run, error)

	// ListRuns returns every run of a project, newest first.
	ListRuns(ctx context.Context, projectID string) ([]project.Run, error)

	// UpsertArtifact stores an artifact, replacing any row with the same
	// project and name.
	UpsertArtifact(ctx context.Context, a *project.Artifact) error

	// ListArtifacts returns a project's artifacts ordered by name.
	ListArtifacts(ctx context.Context, projectID string) ([]project.Artifact, error)

	// Close closes the store and releases any resources.
	Close() error
}
