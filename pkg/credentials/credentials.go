// Package credentials stores model provider API keys in credentials.toml and
// merges them with keys from the environment.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/papercomputeco/factory/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

var providerEnvVars = map[string]string{
	"anthropic":  "ANTHROPIC_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"grok":       "GROK_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// Manager reads and writes credentials.toml in the .factory/ directory.
type Manager struct {
	targetPath string

	// environ, when set, replaces the process environment in Resolve.
	environ map[string]string
}

// NewManager resolves credentials.toml under override, or the standard
// .factory/ location when override is empty.
func NewManager(override string) (*Manager, error) {
	path, err := dotdir.NewManager().Path(override, credentialsFile)
	if err != nil {
		return nil, err
	}
	return &Manager{targetPath: path}, nil
}

// WithEnvironment makes Resolve read keys from environ instead of the process
// environment.
func (m *Manager) WithEnvironment(environ map[string]string) *Manager {
	m.environ = environ
	return m
}

// Load reads credentials.toml. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}

	data, err := os.ReadFile(m.targetPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}
	return creds, nil
}

// Save writes credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// SetKey stores an API key for provider.
func (m *Manager) SetKey(provider, key string) error {
	if !IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider %q (supported: %v)", provider, SupportedProviders())
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}
	creds.Providers[provider] = ProviderCredential{APIKey: key}
	return m.Save(creds)
}

// RemoveKey deletes the stored key for provider.
func (m *Manager) RemoveKey(provider string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	delete(creds.Providers, provider)
	return m.Save(creds)
}

// ListProviders returns the sorted names of providers with a stored key.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Resolve returns the effective API key per provider: the environment first,
// then credentials.toml. Providers without a key are absent from the map.
func (m *Manager) Resolve() (map[string]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	var keys EnvKeys
	opts := env.Options{}
	if m.environ != nil {
		opts.Environment = m.environ
	}
	if err := env.ParseWithOptions(&keys, opts); err != nil {
		return nil, fmt.Errorf("parsing provider keys from environment: %w", err)
	}

	out := make(map[string]string)
	for name, pc := range creds.Providers {
		if pc.APIKey != "" {
			out[name] = pc.APIKey
		}
	}
	for name, key := range keys.byProvider() {
		if key != "" {
			out[name] = key
		}
	}
	return out, nil
}

// GetTarget returns the path of credentials.toml.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// EnvVarForProvider returns the environment variable read for provider.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[provider]
}

// SupportedProviders lists the providers that take an API key.
func SupportedProviders() []string {
	return []string{"anthropic", "gemini", "grok", "openai", "openrouter"}
}

// IsSupportedProvider reports whether provider takes an API key.
func IsSupportedProvider(provider string) bool {
	return slices.Contains(SupportedProviders(), provider)
}
