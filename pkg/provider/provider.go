// Package provider defines the model provider contract, the registry that
// selects providers by name and the fan-out that calls them concurrently.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Name identifies a model provider.
type Name string

const (
	Local      Name = "local"
	Anthropic  Name = "anthropic"
	OpenAI     Name = "openai"
	Gemini     Name = "gemini"
	Grok       Name = "grok"
	OpenRouter Name = "openrouter"
)

// Names returns every known provider name.
func Names() []Name {
	return []Name{Local, Anthropic, OpenAI, Gemini, Grok, OpenRouter}
}

// Valid reports whether n is a known provider name.
func (n Name) Valid() bool {
	switch n {
	case Local, Anthropic, OpenAI, Gemini, Grok, OpenRouter:
		return true
	}
	return false
}

// ParseName converts s into a Name. Matching ignores case and surrounding
// space.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", fmt.Errorf("unknown provider: %q", s)
	}
	return n, nil
}

// ParseNames converts names, dropping unknown entries.
func ParseNames(names []string) []Name {
	out := make([]Name, 0, len(names))
	for _, s := range names {
		if n, err := ParseName(s); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// label is the upper-case prefix used in sentinel texts, e.g. OPENROUTER.
func (n Name) label() string {
	return strings.ToUpper(string(n))
}

// Outcome classifies a Generate call.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotConfigured
	OutcomeError
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotConfigured:
		return "not_configured"
	case OutcomeError:
		return "error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Failed reports whether the outcome should trigger failover.
func (o Outcome) Failed() bool {
	return o == OutcomeError || o == OutcomeTimeout
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ok":
		*o = OutcomeOK
	case "not_configured":
		*o = OutcomeNotConfigured
	case "error":
		*o = OutcomeError
	case "timeout":
		*o = OutcomeTimeout
	default:
		return fmt.Errorf("unknown outcome: %q", string(b))
	}
	return nil
}

// Result is the value every Generate call produces. Text carries the model
// output, or a sentinel such as OPENAI_TIMEOUT for non-OK outcomes.
type Result struct {
	Provider Name            `json:"provider"`
	Text     string          `json:"text"`
	Outcome  Outcome         `json:"outcome"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// Provider is a single model backend.
type Provider interface {
	// Name returns the provider identity.
	Name() Name

	// IsConfigured reports whether the provider has what it needs to run,
	// typically an API key.
	IsConfigured() bool

	// Generate sends prompt to the model. Failures are reported through
	// Result.Outcome, never as errors.
	Generate(ctx context.Context, prompt string) Result
}

// OK builds a successful result. Raw is kept only when it is valid JSON.
func OK(name Name, text string, raw []byte) Result {
	r := Result{Provider: name, Text: text, Outcome: OutcomeOK}
	if len(raw) > 0 && json.Valid(raw) {
		r.Raw = json.RawMessage(raw)
	}
	return r
}

// NotConfigured builds the <NAME>_NOT_CONFIGURED result.
func NotConfigured(name Name) Result {
	return Result{
		Provider: name,
		Text:     name.label() + "_NOT_CONFIGURED",
		Outcome:  OutcomeNotConfigured,
	}
}

// Errored builds the <NAME>_ERROR: <detail> result.
func Errored(name Name, detail string, raw []byte) Result {
	r := Result{
		Provider: name,
		Text:     name.label() + "_ERROR: " + detail,
		Outcome:  OutcomeError,
	}
	if len(raw) > 0 && json.Valid(raw) {
		r.Raw = json.RawMessage(raw)
	}
	return r
}

// TimedOut builds the <NAME>_TIMEOUT result.
func TimedOut(name Name) Result {
	return Result{
		Provider: name,
		Text:     name.label() + "_TIMEOUT: request took too long",
		Outcome:  OutcomeTimeout,
	}
}
