// Package prompts resolves stage prompt templates, preferring overrides
// stored in a kv.Store over the built-in defaults.
package prompts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/papercomputeco/factory/pkg/kv"
)

// Template names.
const (
	Brainstorm = "BRAINSTORM"
	Synthesize = "SYNTHESIZE"
	Bootstrap  = "BOOTSTRAP"
	Research   = "RESEARCH"
	Reflect    = "REFLECT"
)

// keyPrefix namespaces overrides in the KV store.
const keyPrefix = "prompts:"

var defaults = map[string]string{
	Brainstorm: "Return JSON brainstorm. IDEA_SEED={{IDEA_SEED}} CONSTRAINTS_JSON={{CONSTRAINTS_JSON}}",

	Synthesize: "Return JSON with thesis, architecture, go_no_go, tasks, memory_candidates. " +
		"IDEA_SEED={{IDEA_SEED}} CONSTRAINTS_JSON={{CONSTRAINTS_JSON}} " +
		"BRAINSTORM_PACKET_JSON={{BRAINSTORM_PACKET_JSON}}",

	Bootstrap: "Return JSON with files: [{path,content}]. SYNTHESIZED_JSON={{SYNTHESIZED_JSON}}",

	Research: "Return JSON research findings for the project. " +
		"IDEA_SEED={{IDEA_SEED}} CONSTRAINTS_JSON={{CONSTRAINTS_JSON}} PROMPT={{PROMPT}}",

	Reflect: "Summarize these memories into durable, high-signal items.\n" +
		"Return JSON array like:\n" +
		"[\n" +
		" {\"kind\":\"decision|preference|fact|note\",\"text\":\"...\",\"tags\":[\"...\"],\"salience\":0.0-1.0}\n" +
		"]\n" +
		"Memories:\n{{MEMORIES}}",
}

// Names returns the known template names, sorted.
func Names() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Default returns the built-in template for name.
func Default(name string) (string, bool) {
	tpl, ok := defaults[strings.ToUpper(name)]
	return tpl, ok
}

// Key is the KV key holding the override for name.
func Key(name string) string {
	return keyPrefix + strings.ToUpper(name)
}

// Loader reads templates from a KV store with default fallback.
type Loader struct {
	store kv.Store
}

// NewLoader creates a loader. A nil store serves defaults only.
func NewLoader(store kv.Store) *Loader {
	return &Loader{store: store}
}

// Get returns the override for name when present and non-empty, otherwise
// the default. Unknown names without an override yield "".
func (l *Loader) Get(ctx context.Context, name string) (string, error) {
	if l.store != nil {
		v, ok, err := l.store.Get(ctx, Key(name))
		if err != nil {
			return "", fmt.Errorf("loading prompt %s: %w", name, err)
		}
		if ok && v != "" {
			return v, nil
		}
	}

	tpl, _ := Default(name)
	return tpl, nil
}

// Set stores an override for name.
func (l *Loader) Set(ctx context.Context, name, tpl string) error {
	if l.store == nil {
		return fmt.Errorf("no prompt store configured")
	}
	return l.store.Set(ctx, Key(name), tpl)
}

// Reset removes the override for name.
func (l *Loader) Reset(ctx context.Context, name string) error {
	if l.store == nil {
		return nil
	}
	return l.store.Delete(ctx, Key(name))
}

// Render replaces every {{KEY}} in tpl with vars[KEY]. Placeholders without
// a value are left as is.
func Render(tpl string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := tpl
	for _, k := range keys {
		out = strings.ReplaceAll(out, "{{"+k+"}}", vars[k])
	}
	return out
}
