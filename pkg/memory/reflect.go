package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/factory/pkg/jsonx"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/prompts"
	"github.com/papercomputeco/factory/pkg/provider"
)

// Candidate is a memory proposed by model output. Fields are loosely typed
// because models do not reliably follow the schema.
type Candidate struct {
	Kind     any `json:"kind"`
	Text     any `json:"text"`
	Tags     any `json:"tags"`
	Salience any `json:"salience"`
}

// CandidatesFrom converts a decoded JSON array into candidates. Entries
// that are not objects become empty candidates so positions, and with them
// any limit applied later, match the source array. A non-array yields nil.
func CandidatesFrom(v any) []Candidate {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]Candidate, len(list))
	for i, raw := range list {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out[i] = Candidate{
			Kind:     obj["kind"],
			Text:     obj["text"],
			Tags:     obj["tags"],
			Salience: obj["salience"],
		}
	}
	return out
}

// candidateSalience is the default salience for model proposed memories.
const candidateSalience = 0.7

func (c Candidate) text() string {
	switch v := c.Text.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (c Candidate) item(owner project.Owner, projectID string) NewItem {
	kind := KindNote
	if s, ok := c.Kind.(string); ok {
		kind = KindOrNote(s)
	}

	var tags []string
	if list, ok := c.Tags.([]any); ok {
		tags = make([]string, 0, len(list))
		for _, t := range list {
			tags = append(tags, fmt.Sprint(t))
		}
	}

	salience := candidateSalience
	if f, ok := c.Salience.(float64); ok {
		salience = f
	}

	return NewItem{
		Owner:     owner,
		ProjectID: projectID,
		Kind:      kind,
		Text:      c.text(),
		Tags:      tags,
		Salience:  Salience(salience),
		Source:    SourceAgent,
	}
}

// RememberCandidates stores up to limit candidates with text as agent
// memories. Policy blocked candidates are skipped and logged; any other
// failure stops the loop.
func (e *Engine) RememberCandidates(ctx context.Context, owner project.Owner, projectID string, candidates []Candidate, limit int) ([]string, error) {
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}

	created := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.text() == "" {
			continue
		}

		id, err := e.Remember(ctx, c.item(owner, projectID))
		if errors.Is(err, ErrPolicyBlocked) {
			e.logger.Warn("memory candidate blocked by policy",
				"project_id", projectID,
				"error", err,
			)
			continue
		}
		if err != nil {
			return created, err
		}
		created = append(created, id)
	}
	return created, nil
}

// Reflect summarises the most recent memories in scope into a few durable
// items. It needs at least ReflectMin memories; originals are kept.
func (e *Engine) Reflect(ctx context.Context, owner project.Owner, projectID string) (*ReflectResult, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalid)
	}

	rows, err := e.store.ListRecentMemories(ctx, owner, projectID, e.reflectWindow)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	if len(rows) < e.reflectMin {
		return &ReflectResult{Created: []string{}, Message: "not enough memories to reflect"}, nil
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("- (%s) %s", r.Kind, r.Text))
	}

	tpl, err := e.prompts.Get(ctx, prompts.Reflect)
	if err != nil {
		return nil, err
	}
	prompt := prompts.Render(tpl, map[string]string{"MEMORIES": strings.Join(lines, "\n")})

	if e.registry == nil {
		return nil, errors.New("reflect requires a provider registry")
	}
	p, ok := e.registry.Primary(e.reflectProvider)
	if !ok {
		return nil, fmt.Errorf("reflect provider %s is not registered", e.reflectProvider)
	}

	res := p.Generate(ctx, prompt)
	var doc any
	if res.Outcome != provider.OutcomeOK || jsonx.Decode(res.Text, &doc) != nil {
		e.logger.Warn("reflection output unusable",
			"provider", res.Provider,
			"outcome", res.Outcome,
			"code", jsonx.ReflectParseFailed,
		)
		doc = nil
	}

	created, err := e.RememberCandidates(ctx, owner, projectID, CandidatesFrom(doc), e.reflectKeep)
	if err != nil {
		return nil, err
	}
	return &ReflectResult{Created: created}, nil
}
