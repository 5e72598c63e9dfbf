package testutils

import (
	"context"
	"fmt"
	"sync"
)

// MockEmbedder returns predictable embeddings. Unknown text maps to
// DefaultEmbedding.
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings       map[string][]float32
	DefaultEmbedding []float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	calls int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings:       make(map[string][]float32),
		DefaultEmbedding: []float32{0.1, 0.2, 0.3},
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}
	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}
	return m.DefaultEmbedding, nil
}

// Calls reports how many times Embed ran.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockEmbedder) Close() error {
	return nil
}
