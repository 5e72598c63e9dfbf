package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/factory/pkg/embeddings"
	"github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/prompts"
	"github.com/papercomputeco/factory/pkg/provider"
	"github.com/papercomputeco/factory/pkg/vector"
)

var (
	// ErrInvalid is returned for malformed input.
	ErrInvalid = errors.New("invalid memory request")

	// ErrNotFound is returned by Forget for an unknown id.
	ErrNotFound = errors.New("memory not found")
)

// Defaults for the zero-valued Config knobs.
const (
	DefaultRecallK        = 8
	DefaultReflectMin     = 8
	DefaultReflectWindow  = 40
	DefaultReflectKeep    = 3
	DefaultReconcileBatch = 100

	// recallOverfetch multiplies K when querying the index so owner and
	// project filtering still leaves K hits.
	recallOverfetch = 3
)

// Config wires the engine's collaborators.
type Config struct {
	Store    Store
	Vectors  vector.Driver
	Embedder embeddings.Embedder

	// EmbeddingModel is recorded on every pointer row.
	EmbeddingModel string

	// Policy gates writes. Nil uses the pattern policy.
	Policy Policy

	// Registry and ReflectProvider choose the model Reflect calls.
	Registry        *provider.Registry
	ReflectProvider provider.Name
	Prompts         *prompts.Loader

	RecallK        int
	ReflectMin     int
	ReflectWindow  int
	ReflectKeep    int
	ReconcileBatch int

	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Engine implements remember, recall, forget, reflect and reconcile.
type Engine struct {
	store    Store
	vectors  vector.Driver
	embedder embeddings.Embedder
	model    string
	policy   Policy

	registry        *provider.Registry
	reflectProvider provider.Name
	prompts         *prompts.Loader

	recallK        int
	reflectMin     int
	reflectWindow  int
	reflectKeep    int
	reconcileBatch int

	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewEngine validates c and applies defaults.
func NewEngine(c Config) (*Engine, error) {
	if c.Store == nil {
		return nil, errors.New("memory engine requires a store")
	}
	if c.Vectors == nil {
		return nil, errors.New("memory engine requires a vector driver")
	}
	if c.Embedder == nil {
		return nil, errors.New("memory engine requires an embedder")
	}

	e := &Engine{
		store:           c.Store,
		vectors:         c.Vectors,
		embedder:        c.Embedder,
		model:           c.EmbeddingModel,
		policy:          c.Policy,
		registry:        c.Registry,
		reflectProvider: c.ReflectProvider,
		prompts:         c.Prompts,
		recallK:         orDefault(c.RecallK, DefaultRecallK),
		reflectMin:      orDefault(c.ReflectMin, DefaultReflectMin),
		reflectWindow:   orDefault(c.ReflectWindow, DefaultReflectWindow),
		reflectKeep:     orDefault(c.ReflectKeep, DefaultReflectKeep),
		reconcileBatch:  orDefault(c.ReconcileBatch, DefaultReconcileBatch),
		logger:          c.Logger,
		now:             c.Now,
		newID:           c.NewID,
	}
	if e.policy == nil {
		e.policy = NewPatternPolicy()
	}
	if e.reflectProvider == "" {
		e.reflectProvider = provider.Local
	}
	if e.prompts == nil {
		e.prompts = prompts.NewLoader(nil)
	}
	if e.logger == nil {
		e.logger = logger.Nop()
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func clampSalience(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return DefaultSalience
	}
	return math.Max(0, math.Min(1, *v))
}

// Remember stores a memory and returns its id. Nothing is written when the
// input is invalid, the policy blocks it or embedding fails.
func (e *Engine) Remember(ctx context.Context, in NewItem) (string, error) {
	text := strings.TrimSpace(in.Text)
	switch {
	case in.Owner == "":
		return "", fmt.Errorf("%w: owner is required", ErrInvalid)
	case text == "":
		return "", fmt.Errorf("%w: text is required", ErrInvalid)
	case !in.Kind.Valid():
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalid, in.Kind)
	case !in.Source.Valid():
		return "", fmt.Errorf("%w: unknown source %q", ErrInvalid, in.Source)
	}

	if err := e.policy.Check(in.Text); err != nil {
		return "", err
	}

	emb, err := e.embedder.Embed(ctx, in.Text)
	if err != nil {
		return "", fmt.Errorf("embedding memory: %w", err)
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	now := e.now()
	item := &Item{
		ID:        e.newID(),
		Owner:     in.Owner,
		ProjectID: in.ProjectID,
		Kind:      in.Kind,
		Text:      in.Text,
		Tags:      tags,
		Salience:  clampSalience(in.Salience),
		Source:    in.Source,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.InsertMemory(ctx, item); err != nil {
		return "", fmt.Errorf("inserting memory: %w", err)
	}

	vid := VectorID(item.ID)
	err = e.vectors.Add(ctx, []vector.Document{{
		ID:        vid,
		Embedding: emb,
		Metadata: vector.Metadata{
			UserID:    string(item.Owner),
			ProjectID: item.ProjectID,
			Kind:      string(item.Kind),
			Salience:  item.Salience,
		},
	}})
	if err != nil {
		return "", fmt.Errorf("upserting memory vector: %w", err)
	}

	err = e.store.UpsertPointer(ctx, &Pointer{
		MemoryID:       item.ID,
		Owner:          item.Owner,
		ProjectID:      item.ProjectID,
		VectorID:       vid,
		EmbeddingModel: e.model,
		CreatedAt:      now,
	})
	if err != nil {
		return "", fmt.Errorf("recording vector pointer: %w", err)
	}

	e.logger.Debug("memory stored",
		"memory_id", item.ID,
		"project_id", item.ProjectID,
		"kind", item.Kind,
	)
	return item.ID, nil
}

// Recall returns up to K memories for q.Owner most similar to q.Text,
// restricted to q.ProjectID when set. Deleted and missing rows are skipped.
func (e *Engine) Recall(ctx context.Context, q Query) ([]Recalled, error) {
	if q.Owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalid)
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalid)
	}

	k := q.K
	if k <= 0 {
		k = e.recallK
	}

	emb, err := e.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := e.vectors.Query(ctx, emb, k*recallOverfetch)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}

	ids := make([]string, 0, k)
	scores := make(map[string]float32, k)
	for _, m := range matches {
		if m.Metadata.UserID != string(q.Owner) {
			continue
		}
		if q.ProjectID != "" && m.Metadata.ProjectID != q.ProjectID {
			continue
		}
		id := strings.TrimPrefix(m.ID, VectorPrefix)
		ids = append(ids, id)
		scores[id] = m.Score
		if len(ids) == k {
			break
		}
	}
	if len(ids) == 0 {
		return []Recalled{}, nil
	}

	rows, err := e.store.GetMemories(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrating memories: %w", err)
	}
	byID := make(map[string]Item, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	out := make([]Recalled, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok || item.Deleted || item.Owner != q.Owner {
			continue
		}
		out = append(out, Recalled{Item: item, Score: scores[id]})
	}
	return out, nil
}

// Forget soft-deletes a memory. Its vector stays until Reconcile runs.
func (e *Engine) Forget(ctx context.Context, memoryID string) error {
	if memoryID == "" {
		return fmt.Errorf("%w: memory_id is required", ErrInvalid)
	}

	found, err := e.store.SoftDeleteMemory(ctx, memoryID, e.now())
	if err != nil {
		return fmt.Errorf("deleting memory: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, memoryID)
	}
	return nil
}
