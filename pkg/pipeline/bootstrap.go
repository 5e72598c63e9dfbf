package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/papercomputeco/factory/pkg/jsonx"
	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/prompts"
	"github.com/papercomputeco/factory/pkg/storage"
)

// RepoPackContentType is stored with every repo pack file.
const RepoPackContentType = "text/markdown; charset=utf-8"

// RepoPackPrefix returns the blob prefix holding a project's repo pack.
func RepoPackPrefix(projectID string) string {
	return "projects/" + projectID + "/repo-pack/"
}

// Bootstrap renders the latest synthesis into repo pack files, stores each
// one as a blob and records it as an artifact. Re-runs overwrite blobs in
// place.
func (p *Pipeline) Bootstrap(ctx context.Context, owner project.Owner, projectID string, opts StageOptions) (*BootstrapOutput, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: user_id required", ErrValidation)
	}
	if _, err := p.loadProject(ctx, projectID); err != nil {
		return nil, err
	}

	last, err := p.store.LatestRun(ctx, projectID, project.RunSynthesize)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("loading synthesize run: %w", err)
	}
	if last == nil || len(last.Output) == 0 {
		return nil, fmt.Errorf("%w: no synthesis found", ErrPrecondition)
	}

	synthesized, err := synthesizedDoc(last.Output)
	if err != nil {
		return nil, fmt.Errorf("%w: synthesis output unreadable: %v", ErrPrecondition, err)
	}

	started := p.now()
	prompt, err := p.render(ctx, prompts.Bootstrap, map[string]string{
		"SYNTHESIZED_JSON": string(synthesized),
	})
	if err != nil {
		return nil, err
	}

	prefer := orName(opts.Prefer, p.preferBootstrap)
	res := p.registry.GenerateWithFailover(ctx, prefer, prompt)
	doc := decodeDoc(res, jsonx.BootstrapParseFailed)

	prefix := RepoPackPrefix(projectID)
	stored := make([]StoredFile, 0)
	for _, f := range repoFiles(doc) {
		name, ok := sanitizePath(f.path)
		if !ok {
			p.logger.Warn("skipping repo pack file with unsafe path",
				"project_id", projectID,
				"path", f.path,
			)
			continue
		}

		sf, err := p.storeFile(ctx, projectID, prefix, name, f.content)
		if err != nil {
			return nil, err
		}
		stored = append(stored, sf)
	}

	if err := p.advance(ctx, projectID, project.StatusBootstrapped); err != nil {
		return nil, err
	}

	run, err := p.finishRun(ctx, runRecord{
		projectID: projectID,
		kind:      project.RunBootstrap,
		started:   started,
		input: map[string]any{
			"prompt_meta": prompts.Bootstrap,
			"prefer":      prefer,
		},
		output: map[string]any{
			"stored":   stored,
			"raw":      res.Text,
			"provider": res.Provider,
		},
		doc:      doc,
		provider: res.Provider,
	})
	if err != nil {
		return nil, err
	}

	p.remember(ctx, memory.NewItem{
		Owner:     owner,
		ProjectID: projectID,
		Kind:      memory.KindArtifact,
		Text:      packSummary(prefix, stored),
		Tags:      []string{"artifact", "repo-pack"},
		Salience:  memory.Salience(0.85),
		Source:    memory.SourceSystem,
	})

	return &BootstrapOutput{
		ProjectID: projectID,
		RunID:     run.ID,
		Stored:    stored,
		Provider:  res.Provider,
	}, nil
}

func (p *Pipeline) storeFile(ctx context.Context, projectID, prefix, name, content string) (StoredFile, error) {
	key := prefix + name
	data := []byte(content)
	if err := p.blobs.Put(ctx, key, data, RepoPackContentType); err != nil {
		return StoredFile{}, fmt.Errorf("storing %s: %w", key, err)
	}

	sum := sha256.Sum256(data)
	err := p.store.UpsertArtifact(ctx, &project.Artifact{
		ID:          p.newID(),
		ProjectID:   projectID,
		Name:        name,
		BlobKey:     key,
		ContentType: RepoPackContentType,
		Bytes:       int64(len(data)),
		SHA256:      hex.EncodeToString(sum[:]),
		CreatedAt:   p.now(),
	})
	if err != nil {
		return StoredFile{}, fmt.Errorf("recording artifact %s: %w", name, err)
	}

	return StoredFile{Path: name, BlobKey: key, Bytes: int64(len(data))}, nil
}

// synthesizedDoc returns the json field of a synthesize run output, or the
// whole output when that field is absent.
func synthesizedDoc(output json.RawMessage) (json.RawMessage, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(output, &wrapper); err != nil {
		if json.Valid(output) {
			return output, nil
		}
		return nil, err
	}
	if doc, ok := wrapper["json"]; ok && len(doc) > 0 {
		return doc, nil
	}
	return output, nil
}

type repoFile struct {
	path    string
	content string
}

// repoFiles reads {files:[{path,content}]}. Non-string values are
// stringified; entries that are not objects are dropped.
func repoFiles(doc any) []repoFile {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	list, ok := m["files"].([]any)
	if !ok {
		return nil
	}

	out := make([]repoFile, 0, len(list))
	for _, raw := range list {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, repoFile{path: stringify(obj["path"]), content: stringify(obj["content"])})
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// sanitizePath rejects empty and absolute paths and any path with a ".."
// segment. Accepted paths are cleaned.
func sanitizePath(p string) (string, bool) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", false
		}
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", false
	}
	return cleaned, true
}

func packSummary(prefix string, stored []StoredFile) string {
	if len(stored) == 0 {
		return "Repo pack generated at " + prefix + "."
	}
	names := make([]string, 0, len(stored))
	for _, s := range stored {
		names = append(names, s.Path)
	}
	return fmt.Sprintf("Repo pack generated at %s (%s).", prefix, strings.Join(names, ", "))
}
