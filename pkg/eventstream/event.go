// Package eventstream publishes run events after a pipeline stage appends a
// run to the ledger. Publishing is best effort.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/factory/pkg/project"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRunAppended is emitted after a stage run is recorded.
	EventTypeRunAppended = "factory.run.appended"
)

// RunEvent is a transport-neutral payload describing an appended run.
type RunEvent struct {
	SchemaVersion int               `json:"schema_version"`
	EventType     string            `json:"event_type"`
	EventID       string            `json:"event_id"`
	EmittedAt     time.Time         `json:"emitted_at"`
	ProjectID     string            `json:"project_id"`
	RunID         string            `json:"run_id"`
	Kind          project.RunKind   `json:"kind"`
	Status        project.RunStatus `json:"status"`
	Provider      string            `json:"provider,omitempty"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
	DurationMs    int64             `json:"duration_ms"`
}

// NewRunEvent builds the event for r. provider may be empty for stages that
// fan out to several providers.
func NewRunEvent(r *project.Run, provider string, emittedAt time.Time) *RunEvent {
	return &RunEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRunAppended,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     emittedAt,
		ProjectID:     r.ProjectID,
		RunID:         r.ID,
		Kind:          r.Kind,
		Status:        r.Status,
		Provider:      provider,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		DurationMs:    r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	}
}
