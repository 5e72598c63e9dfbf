// Package pipeline drives a project through the brainstorm, synthesize and
// bootstrap stages, plus ad hoc research and repo pack download.
//
// Every stage loads project state, renders a prompt, calls the provider
// layer, advances the project status, appends a run to the ledger, writes
// memories and publishes a run event. Stages never regress status and
// re-runs append new runs.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/factory/pkg/blob"
	"github.com/papercomputeco/factory/pkg/eventstream"
	"github.com/papercomputeco/factory/pkg/eventstream/nop"
	"github.com/papercomputeco/factory/pkg/jsonx"
	"github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/prompts"
	"github.com/papercomputeco/factory/pkg/provider"
	"github.com/papercomputeco/factory/pkg/storage"
)

var (
	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrProjectNotFound is returned when a stage names an unknown project.
	ErrProjectNotFound = errors.New("project not found")

	// ErrPrecondition is returned when a stage runs before the stage it
	// depends on.
	ErrPrecondition = errors.New("precondition failed")
)

// Default stage preferences.
const (
	DefaultSynthesizeProvider = provider.Anthropic
	DefaultBootstrapProvider  = provider.Anthropic
	DefaultResearchProvider   = provider.OpenRouter

	// candidateLimit caps the memory candidates kept from a synthesis.
	candidateLimit = 12
)

// ProjectStore is the relational persistence a pipeline needs.
// storage.Driver implements it.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *project.Project) error
	GetProject(ctx context.Context, id string) (*project.Project, error)
	AdvanceProjectStatus(ctx context.Context, id string, status project.Status, at time.Time) (project.Status, error)
	AppendRun(ctx context.Context, r *project.Run) error
	LatestRun(ctx context.Context, projectID string, kind project.RunKind) (*project.Run, error)
	UpsertArtifact(ctx context.Context, a *project.Artifact) error
	ListArtifacts(ctx context.Context, projectID string) ([]project.Artifact, error)
}

// Memory is the subset of the memory engine stages write through.
type Memory interface {
	Remember(ctx context.Context, in memory.NewItem) (string, error)
	RememberCandidates(ctx context.Context, owner project.Owner, projectID string, candidates []memory.Candidate, limit int) ([]string, error)
}

// Config wires a Pipeline.
type Config struct {
	Registry  *provider.Registry
	Store     ProjectStore
	Blobs     blob.Store
	Memory    Memory
	Prompts   *prompts.Loader
	Publisher eventstream.Publisher

	// DefaultProviders is the brainstorm fan-out used when a request names
	// none. Empty means local only.
	DefaultProviders []provider.Name

	PreferSynthesize provider.Name
	PreferBootstrap  provider.Name
	PreferResearch   provider.Name

	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Pipeline runs the project stages.
type Pipeline struct {
	registry  *provider.Registry
	store     ProjectStore
	blobs     blob.Store
	memory    Memory
	prompts   *prompts.Loader
	publisher eventstream.Publisher

	defaultProviders []provider.Name
	preferSynthesize provider.Name
	preferBootstrap  provider.Name
	preferResearch   provider.Name

	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New validates c and applies defaults.
func New(c Config) (*Pipeline, error) {
	switch {
	case c.Registry == nil:
		return nil, errors.New("pipeline requires a provider registry")
	case c.Store == nil:
		return nil, errors.New("pipeline requires a project store")
	case c.Blobs == nil:
		return nil, errors.New("pipeline requires a blob store")
	case c.Memory == nil:
		return nil, errors.New("pipeline requires a memory engine")
	}

	p := &Pipeline{
		registry:         c.Registry,
		store:            c.Store,
		blobs:            c.Blobs,
		memory:           c.Memory,
		prompts:          c.Prompts,
		publisher:        c.Publisher,
		defaultProviders: c.DefaultProviders,
		preferSynthesize: orName(c.PreferSynthesize, DefaultSynthesizeProvider),
		preferBootstrap:  orName(c.PreferBootstrap, DefaultBootstrapProvider),
		preferResearch:   orName(c.PreferResearch, DefaultResearchProvider),
		logger:           c.Logger,
		now:              c.Now,
		newID:            c.NewID,
	}
	if p.prompts == nil {
		p.prompts = prompts.NewLoader(nil)
	}
	if p.publisher == nil {
		p.publisher = nop.NewPublisher()
	}
	if p.logger == nil {
		p.logger = logger.Nop()
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p, nil
}

func orName(n, def provider.Name) provider.Name {
	if n == "" {
		return def
	}
	return n
}

// loadProject validates id and fetches the project.
func (p *Pipeline) loadProject(ctx context.Context, id string) (*project.Project, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: project_id required", ErrValidation)
	}
	proj, err := p.store.GetProject(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", id, err)
	}
	return proj, nil
}

func (p *Pipeline) render(ctx context.Context, name string, vars map[string]string) (string, error) {
	tpl, err := p.prompts.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return prompts.Render(tpl, vars), nil
}

// runRecord is what a stage hands to finishRun.
type runRecord struct {
	projectID string
	kind      project.RunKind
	started   time.Time
	input     any
	output    any
	doc       any
	provider  provider.Name
}

// finishRun appends the run and publishes its event. The run status is
// error when doc carries an "error" key.
func (p *Pipeline) finishRun(ctx context.Context, rec runRecord) (*project.Run, error) {
	input, err := json.Marshal(rec.input)
	if err != nil {
		return nil, fmt.Errorf("encoding %s run input: %w", rec.kind, err)
	}
	output, err := json.Marshal(rec.output)
	if err != nil {
		return nil, fmt.Errorf("encoding %s run output: %w", rec.kind, err)
	}

	run := &project.Run{
		ID:         p.newID(),
		ProjectID:  rec.projectID,
		Kind:       rec.kind,
		Status:     project.RunOK,
		Input:      input,
		Output:     output,
		StartedAt:  rec.started,
		FinishedAt: p.now(),
	}
	if jsonx.HasError(rec.doc) {
		run.Status = project.RunError
		run.ErrorText = fmt.Sprint(rec.doc.(map[string]any)["error"])
	}

	if err := p.store.AppendRun(ctx, run); err != nil {
		return nil, fmt.Errorf("recording %s run: %w", rec.kind, err)
	}

	event := eventstream.NewRunEvent(run, string(rec.provider), p.now())
	if err := p.publisher.PublishRun(ctx, event); err != nil {
		p.logger.Warn("publishing run event failed",
			"project_id", run.ProjectID,
			"run_id", run.ID,
			"error", err,
		)
	}

	p.logger.Info("stage finished",
		"project_id", run.ProjectID,
		"run_id", run.ID,
		"kind", run.Kind,
		"role", project.RoleFor(run.Kind),
		"status", run.Status,
	)
	return run, nil
}

// advance moves the project towards status. The stored status never
// regresses.
func (p *Pipeline) advance(ctx context.Context, projectID string, status project.Status) error {
	if _, err := p.store.AdvanceProjectStatus(ctx, projectID, status, p.now()); err != nil {
		return fmt.Errorf("advancing project %s to %s: %w", projectID, status, err)
	}
	return nil
}

// remember writes a stage memory. Failures, including policy blocks, are
// logged and never fail the stage.
func (p *Pipeline) remember(ctx context.Context, item memory.NewItem) {
	if _, err := p.memory.Remember(ctx, item); err != nil {
		level := slog.LevelError
		if errors.Is(err, memory.ErrPolicyBlocked) {
			level = slog.LevelWarn
		}
		p.logger.Log(ctx, level, "stage memory not stored",
			"project_id", item.ProjectID,
			"kind", item.Kind,
			"error", err,
		)
	}
}

// decodeDoc decodes a single-provider result. Non-OK outcomes and text
// without parseable JSON yield the parse failure document for code.
func decodeDoc(res provider.Result, code string) any {
	if res.Outcome != provider.OutcomeOK {
		return jsonx.ParseFailure(code, res.Text, string(res.Provider))
	}
	var doc any
	if err := jsonx.Decode(res.Text, &doc); err != nil {
		return jsonx.ParseFailure(code, res.Text, string(res.Provider))
	}
	return doc
}

func constraintsJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
