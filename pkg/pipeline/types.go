package pipeline

import (
	"encoding/json"

	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/provider"
)

// BrainstormInput starts or continues a project. An empty ProjectID
// creates a new project.
type BrainstormInput struct {
	ProjectID   string
	ProjectName string
	IdeaSeed    string
	Constraints json.RawMessage
	Providers   []provider.Name
}

// BrainstormOutput holds one result per selected provider.
type BrainstormOutput struct {
	ProjectID string            `json:"project_id"`
	RunID     string            `json:"run_id"`
	Results   []provider.Result `json:"results"`
}

// StageOptions tunes a single-provider stage. An empty Prefer uses the
// configured default for the stage.
type StageOptions struct {
	Prefer provider.Name
}

// SynthesizeOutput carries the decoded synthesis, or a parse failure
// document in its place.
type SynthesizeOutput struct {
	ProjectID   string        `json:"project_id"`
	RunID       string        `json:"run_id"`
	Provider    provider.Name `json:"provider"`
	Raw         string        `json:"raw"`
	Synthesized any           `json:"synthesized"`
}

// StoredFile is one repo pack file written by Bootstrap.
type StoredFile struct {
	Path    string `json:"path"`
	BlobKey string `json:"blob_key"`
	Bytes   int64  `json:"bytes"`
}

// BootstrapOutput lists the files stored for the repo pack.
type BootstrapOutput struct {
	ProjectID string        `json:"project_id"`
	RunID     string        `json:"run_id"`
	Stored    []StoredFile  `json:"stored"`
	Provider  provider.Name `json:"provider"`
}

// ResearchInput is an ad hoc research prompt against a project.
type ResearchInput struct {
	Prompt string
	Prefer provider.Name
}

// ResearchOutput carries the decoded research document.
type ResearchOutput struct {
	ProjectID string        `json:"project_id"`
	RunID     string        `json:"run_id"`
	Provider  provider.Name `json:"provider"`
	Raw       string        `json:"raw"`
	Research  any           `json:"research"`
}

// ProjectView is a project with the latest run of each kind.
type ProjectView struct {
	Project    *project.Project                 `json:"project"`
	LatestRuns map[project.RunKind]*project.Run `json:"latest_runs"`
}

// stageOutput is the run output recorded by single-provider stages.
type stageOutput struct {
	Provider provider.Name `json:"provider"`
	RawText  string        `json:"raw_text"`
	JSON     any           `json:"json"`
}
