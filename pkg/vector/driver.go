// Package vector provides the vector index contract used for memory recall.
package vector

import "context"

// Metadata is stored alongside each vector and used to filter recall
// results by owner and project.
type Metadata struct {
	UserID    string  `json:"user_id"`
	ProjectID string  `json:"project_id,omitempty"`
	Kind      string  `json:"kind,omitempty"`
	Salience  float64 `json:"salience"`
}

// ToMap flattens m for stores with untyped metadata.
func (m Metadata) ToMap() map[string]any {
	out := map[string]any{
		"user_id":  m.UserID,
		"salience": m.Salience,
	}
	if m.ProjectID != "" {
		out["project_id"] = m.ProjectID
	}
	if m.Kind != "" {
		out["kind"] = m.Kind
	}
	return out
}

// MetadataFromMap is the inverse of ToMap. Unknown keys are ignored.
func MetadataFromMap(in map[string]any) Metadata {
	var m Metadata
	if v, ok := in["user_id"].(string); ok {
		m.UserID = v
	}
	if v, ok := in["project_id"].(string); ok {
		m.ProjectID = v
	}
	if v, ok := in["kind"].(string); ok {
		m.Kind = v
	}
	switch v := in["salience"].(type) {
	case float64:
		m.Salience = v
	case float32:
		m.Salience = float64(v)
	case int64:
		m.Salience = float64(v)
	case int:
		m.Salience = float64(v)
	}
	return m
}

// Document is a stored vector with its metadata.
type Document struct {
	// ID is the vector id, mem:<memory id> for memories.
	ID string

	Embedding []float32

	Metadata Metadata
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add upserts documents: an existing ID is replaced.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding,
	// best first.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs. Missing IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs. Missing IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}
