// Package memory is the semantic memory engine: policy gated writes,
// embedding backed recall, soft deletion with batch vector reconciliation
// and model driven reflection.
package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/factory/pkg/project"
)

// Kind classifies a memory.
type Kind string

const (
	KindPreference Kind = "preference"
	KindFact       Kind = "fact"
	KindDecision   Kind = "decision"
	KindArtifact   Kind = "artifact"
	KindNote       Kind = "note"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPreference, KindFact, KindDecision, KindArtifact, KindNote:
		return true
	}
	return false
}

// ParseKind converts s into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown memory kind: %q", s)
	}
	return k, nil
}

// KindOrNote parses model supplied kinds, defaulting anything unknown to
// note.
func KindOrNote(s string) Kind {
	k, err := ParseKind(s)
	if err != nil {
		return KindNote
	}
	return k
}

// Source records who produced a memory.
type Source string

const (
	SourceUser   Source = "user"
	SourceAgent  Source = "agent"
	SourceSystem Source = "system"
)

func (s Source) Valid() bool {
	switch s {
	case SourceUser, SourceAgent, SourceSystem:
		return true
	}
	return false
}

// ParseSource converts s into a Source.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	if !src.Valid() {
		return "", fmt.Errorf("unknown memory source: %q", s)
	}
	return src, nil
}

// DefaultSalience applies when an item carries no salience.
const DefaultSalience = 0.5

// Item is a stored memory. Text is immutable once written.
type Item struct {
	ID        string        `json:"id"`
	Owner     project.Owner `json:"user_id"`
	ProjectID string        `json:"project_id,omitempty"`
	Kind      Kind          `json:"kind"`
	Text      string        `json:"text"`
	Tags      []string      `json:"tags"`
	Salience  float64       `json:"salience"`
	Source    Source        `json:"source"`
	Deleted   bool          `json:"is_deleted"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	DeletedAt *time.Time    `json:"deleted_at,omitempty"`
}

// NewItem is the input to Remember. A nil Salience means DefaultSalience.
type NewItem struct {
	Owner     project.Owner
	ProjectID string
	Kind      Kind
	Text      string
	Tags      []string
	Salience  *float64
	Source    Source
}

// Salience is a helper for building NewItem values.
func Salience(v float64) *float64 { return &v }

// Pointer links a memory row to its vector.
type Pointer struct {
	MemoryID       string        `json:"memory_id"`
	Owner          project.Owner `json:"user_id"`
	ProjectID      string        `json:"project_id,omitempty"`
	VectorID       string        `json:"vector_id"`
	EmbeddingModel string        `json:"embedding_model"`
	CreatedAt      time.Time     `json:"created_at"`
}

// VectorPrefix prefixes the vector id of every memory.
const VectorPrefix = "mem:"

// VectorID returns the vector id for a memory id.
func VectorID(memoryID string) string {
	return VectorPrefix + memoryID
}

// Query is the input to Recall.
type Query struct {
	Owner     project.Owner
	ProjectID string
	Text      string
	K         int
}

// Recalled is a hydrated recall hit.
type Recalled struct {
	Item
	Score float32 `json:"score"`
}

// ReflectResult lists the memories created by Reflect.
type ReflectResult struct {
	Created []string `json:"created"`
	Message string   `json:"message,omitempty"`
}

// ReconcileResult counts the work done by Reconcile.
type ReconcileResult struct {
	Scanned int `json:"scanned"`
	Removed int `json:"removed"`
	Batches int `json:"batches"`
}
