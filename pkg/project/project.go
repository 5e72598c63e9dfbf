// Package project holds the project lifecycle types: status ranks, run
// kinds and the rows the pipeline records.
package project

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle position of a project.
type Status string

const (
	StatusCreated      Status = "created"
	StatusBrainstormed Status = "brainstormed"
	StatusSynthesized  Status = "synthesized"
	StatusBootstrapped Status = "bootstrapped"

	// StatusBlocked is a recognised status that no pipeline stage assigns.
	StatusBlocked Status = "blocked"
)

var ranks = map[Status]int{
	StatusCreated:      0,
	StatusBrainstormed: 1,
	StatusSynthesized:  2,
	StatusBootstrapped: 3,
}

func (s Status) Valid() bool {
	if s == StatusBlocked {
		return true
	}
	_, ok := ranks[s]
	return ok
}

// Rank orders the linear statuses. Blocked and unknown statuses have no
// rank and report ok=false.
func (s Status) Rank() (int, bool) {
	r, ok := ranks[s]
	return r, ok
}

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown project status: %q", s)
	}
	return st, nil
}

// Advance returns the status a project holds after a stage targets next.
// Status never regresses: a target ranked below current keeps current. A
// current status without a rank is replaced by a ranked target.
func Advance(current, next Status) Status {
	nr, ok := next.Rank()
	if !ok {
		return current
	}
	cr, ok := current.Rank()
	if ok && nr < cr {
		return current
	}
	return next
}

// RunKind names the stage a run recorded.
type RunKind string

const (
	RunBrainstorm RunKind = "brainstorm"
	RunSynthesize RunKind = "synthesize"
	RunBootstrap  RunKind = "bootstrap"
	RunResearch   RunKind = "research"
)

func (k RunKind) Valid() bool {
	switch k {
	case RunBrainstorm, RunSynthesize, RunBootstrap, RunResearch:
		return true
	}
	return false
}

// RunStatus is the recorded outcome of a run.
type RunStatus string

const (
	RunOK    RunStatus = "ok"
	RunError RunStatus = "error"
)

// Project is a single idea moving through the pipeline.
type Project struct {
	ID          string          `json:"id"`
	Owner       Owner           `json:"user_id"`
	Name        string          `json:"name"`
	IdeaSeed    string          `json:"idea_seed"`
	Constraints json.RawMessage `json:"constraints"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Run is one append-only stage invocation.
type Run struct {
	ID         string          `json:"id"`
	ProjectID  string          `json:"project_id"`
	Kind       RunKind         `json:"kind"`
	Status     RunStatus       `json:"status"`
	Input      json.RawMessage `json:"input_json"`
	Output     json.RawMessage `json:"output_json,omitempty"`
	ErrorText  string          `json:"error_text,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Artifact is a stored repo-pack file.
type Artifact struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	BlobKey     string    `json:"blob_key"`
	ContentType string    `json:"content_type"`
	Bytes       int64     `json:"bytes"`
	SHA256      string    `json:"sha256"`
	CreatedAt   time.Time `json:"created_at"`
}

// Owner is the identity a project or memory belongs to.
type Owner string
