package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/storage"
)

var runKinds = []project.RunKind{
	project.RunBrainstorm,
	project.RunSynthesize,
	project.RunBootstrap,
	project.RunResearch,
}

// Project returns a project and the latest run of each kind it has.
func (p *Pipeline) Project(ctx context.Context, projectID string) (*ProjectView, error) {
	proj, err := p.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	view := &ProjectView{Project: proj, LatestRuns: make(map[project.RunKind]*project.Run)}
	for _, kind := range runKinds {
		run, err := p.store.LatestRun(ctx, projectID, kind)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading %s run: %w", kind, err)
		}
		view.LatestRuns[kind] = run
	}
	return view, nil
}

// Artifacts returns the stored repo pack files of a project.
func (p *Pipeline) Artifacts(ctx context.Context, projectID string) ([]project.Artifact, error) {
	if _, err := p.loadProject(ctx, projectID); err != nil {
		return nil, err
	}
	return p.store.ListArtifacts(ctx, projectID)
}
