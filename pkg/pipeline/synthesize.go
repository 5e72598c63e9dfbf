package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/factory/pkg/jsonx"
	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/prompts"
	"github.com/papercomputeco/factory/pkg/storage"
)

// emptyPacket stands in for a brainstorm run recorded without output.
const emptyPacket = `{"results":[]}`

// Synthesize turns the latest brainstorm into a structured plan. The
// project advances to synthesized even when the model output cannot be
// decoded; the run is then recorded with status error.
func (p *Pipeline) Synthesize(ctx context.Context, owner project.Owner, projectID string, opts StageOptions) (*SynthesizeOutput, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: user_id required", ErrValidation)
	}
	proj, err := p.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	last, err := p.store.LatestRun(ctx, projectID, project.RunBrainstorm)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: no brainstorm found", ErrPrecondition)
	}
	if err != nil {
		return nil, fmt.Errorf("loading brainstorm run: %w", err)
	}

	packet := emptyPacket
	if len(last.Output) > 0 {
		packet = string(last.Output)
	}

	started := p.now()
	prompt, err := p.render(ctx, prompts.Synthesize, map[string]string{
		"IDEA_SEED":              proj.IdeaSeed,
		"CONSTRAINTS_JSON":       constraintsJSON(proj.Constraints),
		"BRAINSTORM_PACKET_JSON": packet,
	})
	if err != nil {
		return nil, err
	}

	prefer := orName(opts.Prefer, p.preferSynthesize)
	res := p.registry.GenerateWithFailover(ctx, prefer, prompt)
	doc := decodeDoc(res, jsonx.SynthesisParseFailed)

	if err := p.advance(ctx, projectID, project.StatusSynthesized); err != nil {
		return nil, err
	}

	run, err := p.finishRun(ctx, runRecord{
		projectID: projectID,
		kind:      project.RunSynthesize,
		started:   started,
		input: map[string]any{
			"prompt_meta": prompts.Synthesize,
			"project_id":  projectID,
			"prefer":      prefer,
		},
		output:   stageOutput{Provider: res.Provider, RawText: res.Text, JSON: doc},
		doc:      doc,
		provider: res.Provider,
	})
	if err != nil {
		return nil, err
	}

	if candidates := memoryCandidates(doc); len(candidates) > 0 {
		if _, err := p.memory.RememberCandidates(ctx, owner, projectID, candidates, candidateLimit); err != nil {
			p.logger.Error("storing synthesis memories failed",
				"project_id", projectID,
				"error", err,
			)
		}
	}

	return &SynthesizeOutput{
		ProjectID:   projectID,
		RunID:       run.ID,
		Provider:    res.Provider,
		Raw:         res.Text,
		Synthesized: doc,
	}, nil
}

// memoryCandidates reads the memory_candidates array of a synthesis
// document. Anything that is not an array yields nothing.
func memoryCandidates(doc any) []memory.Candidate {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	return memory.CandidatesFrom(m["memory_candidates"])
}
