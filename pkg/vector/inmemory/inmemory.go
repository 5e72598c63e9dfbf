// Package inmemory provides a brute-force cosine similarity vector driver.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/factory/pkg/vector"
)

// Driver implements vector.Driver in memory.
type Driver struct {
	mu   sync.RWMutex
	docs map[string]vector.Document
	dims int
}

// NewDriver creates an empty in-memory vector driver.
func NewDriver() *Driver {
	return &Driver{docs: make(map[string]vector.Document)}
}

func (d *Driver) Add(_ context.Context, docs []vector.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.docs) == 0 {
		d.dims = 0
	}
	for _, doc := range docs {
		if d.dims == 0 {
			d.dims = len(doc.Embedding)
		}
		if len(doc.Embedding) != d.dims {
			return fmt.Errorf("document %s: %w: got %d, want %d",
				doc.ID, vector.ErrDimensionMismatch, len(doc.Embedding), d.dims)
		}
		doc.Embedding = append([]float32(nil), doc.Embedding...)
		d.docs[doc.ID] = doc
	}
	return nil
}

func (d *Driver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.docs) > 0 && len(embedding) != d.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, len(embedding), d.dims)
	}

	results := make([]vector.QueryResult, 0, len(d.docs))
	for _, doc := range d.docs {
		results = append(results, vector.QueryResult{
			Document: doc,
			Score:    Cosine(embedding, doc.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []vector.Document
	for _, id := range ids {
		if doc, ok := d.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *Driver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		delete(d.docs, id)
	}
	return nil
}

// Len reports how many documents are stored.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}

func (d *Driver) Close() error {
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is
// a zero vector.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
