package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/papercomputeco/factory/pkg/jsonx"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/prompts"
)

// Research runs an ad hoc prompt against a project with a single provider
// call and no failover. Project status is left unchanged.
func (p *Pipeline) Research(ctx context.Context, owner project.Owner, projectID string, in ResearchInput) (*ResearchOutput, error) {
	question := strings.TrimSpace(in.Prompt)
	switch {
	case owner == "":
		return nil, fmt.Errorf("%w: user_id required", ErrValidation)
	case question == "":
		return nil, fmt.Errorf("%w: prompt required", ErrValidation)
	}

	proj, err := p.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	started := p.now()
	prompt, err := p.render(ctx, prompts.Research, map[string]string{
		"IDEA_SEED":        proj.IdeaSeed,
		"CONSTRAINTS_JSON": constraintsJSON(proj.Constraints),
		"PROMPT":           question,
	})
	if err != nil {
		return nil, err
	}

	prefer := orName(in.Prefer, p.preferResearch)
	res := p.registry.GeneratePrimary(ctx, prefer, prompt)
	doc := decodeDoc(res, jsonx.ResearchParseFailed)

	run, err := p.finishRun(ctx, runRecord{
		projectID: projectID,
		kind:      project.RunResearch,
		started:   started,
		input: map[string]any{
			"prompt_meta": prompts.Research,
			"prompt":      question,
			"prefer":      prefer,
		},
		output:   stageOutput{Provider: res.Provider, RawText: res.Text, JSON: doc},
		doc:      doc,
		provider: res.Provider,
	})
	if err != nil {
		return nil, err
	}

	return &ResearchOutput{
		ProjectID: projectID,
		RunID:     run.ID,
		Provider:  res.Provider,
		Raw:       res.Text,
		Research:  doc,
	}, nil
}
