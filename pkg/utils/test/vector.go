package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/factory/pkg/vector"
	"github.com/papercomputeco/factory/pkg/vector/inmemory"
)

// MockVectorDriver is an in-memory vector driver whose operations can be
// made to fail. It records every id passed to Delete.
type MockVectorDriver struct {
	*inmemory.Driver

	mu         sync.Mutex
	AddErr     error
	QueryErr   error
	DeleteErr  error
	deletedIDs []string
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{Driver: inmemory.NewDriver()}
}

func (m *MockVectorDriver) Add(ctx context.Context, docs []vector.Document) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	return m.Driver.Add(ctx, docs)
}

func (m *MockVectorDriver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.Driver.Query(ctx, embedding, topK)
}

func (m *MockVectorDriver) Delete(ctx context.Context, ids []string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	m.deletedIDs = append(m.deletedIDs, ids...)
	m.mu.Unlock()
	return m.Driver.Delete(ctx, ids)
}

// DeletedIDs returns every id passed to a successful Delete.
func (m *MockVectorDriver) DeletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deletedIDs...)
}
