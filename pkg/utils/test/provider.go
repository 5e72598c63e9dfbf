package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/factory/pkg/provider"
)

// MockProvider is a provider whose output is scripted by the test.
type MockProvider struct {
	ProviderName provider.Name
	Configured   bool

	// Response is returned as an OK result when Fn is nil.
	Response string

	// Fn overrides Response when set.
	Fn func(ctx context.Context, prompt string) provider.Result

	mu      sync.Mutex
	prompts []string
}

func NewMockProvider(name provider.Name, response string) *MockProvider {
	return &MockProvider{ProviderName: name, Configured: true, Response: response}
}

func (m *MockProvider) Name() provider.Name { return m.ProviderName }

func (m *MockProvider) IsConfigured() bool { return m.Configured }

func (m *MockProvider) Generate(ctx context.Context, prompt string) provider.Result {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(ctx, prompt)
	}
	if !m.Configured {
		return provider.NotConfigured(m.ProviderName)
	}
	return provider.OK(m.ProviderName, m.Response, nil)
}

// Prompts returns every prompt Generate received.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Calls returns how many times Generate ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
