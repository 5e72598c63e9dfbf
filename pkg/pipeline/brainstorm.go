package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/prompts"
	"github.com/papercomputeco/factory/pkg/provider"
)

// DefaultProjectName names projects created without one.
const DefaultProjectName = "new-project"

const intentText = "Project intent: convert idea exploration into a rigorous repo pack " +
	"(thesis, architecture, go/no-go, tasks) with durable memory across stages."

// Brainstorm fans the idea out to the selected providers and records every
// result. Provider failures are results, not errors.
func (p *Pipeline) Brainstorm(ctx context.Context, owner project.Owner, in BrainstormInput) (*BrainstormOutput, error) {
	seed := strings.TrimSpace(in.IdeaSeed)
	switch {
	case owner == "":
		return nil, fmt.Errorf("%w: user_id required", ErrValidation)
	case seed == "":
		return nil, fmt.Errorf("%w: idea_seed required", ErrValidation)
	}

	constraints := json.RawMessage(constraintsJSON(in.Constraints))
	if !json.Valid(constraints) {
		return nil, fmt.Errorf("%w: constraints must be valid JSON", ErrValidation)
	}

	started := p.now()

	projectID := in.ProjectID
	if projectID == "" {
		var err error
		projectID, err = p.createProject(ctx, owner, in.ProjectName, seed, constraints)
		if err != nil {
			return nil, err
		}
	} else if _, err := p.loadProject(ctx, projectID); err != nil {
		return nil, err
	}

	prompt, err := p.render(ctx, prompts.Brainstorm, map[string]string{
		"IDEA_SEED":        seed,
		"CONSTRAINTS_JSON": string(constraints),
	})
	if err != nil {
		return nil, err
	}

	requested := in.Providers
	if len(requested) == 0 {
		requested = p.defaultProviders
	}
	selected := p.registry.Select(requested)
	results := provider.FanOut(ctx, selected, prompt)

	if err := p.advance(ctx, projectID, project.StatusBrainstormed); err != nil {
		return nil, err
	}

	names := make([]provider.Name, 0, len(selected))
	for _, sp := range selected {
		names = append(names, sp.Name())
	}

	run, err := p.finishRun(ctx, runRecord{
		projectID: projectID,
		kind:      project.RunBrainstorm,
		started:   started,
		input: map[string]any{
			"idea_seed":   seed,
			"constraints": constraints,
			"providers":   names,
		},
		output: map[string]any{"results": results},
	})
	if err != nil {
		return nil, err
	}

	p.remember(ctx, memory.NewItem{
		Owner:     owner,
		ProjectID: projectID,
		Kind:      memory.KindDecision,
		Text:      intentText,
		Tags:      []string{"project-factory", "intent"},
		Salience:  memory.Salience(0.95),
		Source:    memory.SourceSystem,
	})
	p.remember(ctx, memory.NewItem{
		Owner:     owner,
		ProjectID: projectID,
		Kind:      memory.KindFact,
		Text:      "Idea seed: " + seed,
		Tags:      []string{"idea-seed"},
		Salience:  memory.Salience(0.85),
		Source:    memory.SourceUser,
	})

	return &BrainstormOutput{ProjectID: projectID, RunID: run.ID, Results: results}, nil
}

func (p *Pipeline) createProject(ctx context.Context, owner project.Owner, name, seed string, constraints json.RawMessage) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultProjectName
	}

	now := p.now()
	proj := &project.Project{
		ID:          p.newID(),
		Owner:       owner,
		Name:        name,
		IdeaSeed:    seed,
		Constraints: constraints,
		Status:      project.StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.store.CreateProject(ctx, proj); err != nil {
		return "", fmt.Errorf("creating project: %w", err)
	}

	p.logger.Info("project created", "project_id", proj.ID, "name", proj.Name)
	return proj.ID, nil
}
