package memory

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrPolicyBlocked is matched by every *PolicyError.
var ErrPolicyBlocked = errors.New("memory blocked by policy")

// PolicyError reports why a memory write was refused.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPolicyBlocked, e.Reason)
}

func (e *PolicyError) Unwrap() error {
	return ErrPolicyBlocked
}

// Policy decides whether text may be stored.
type Policy interface {
	Check(text string) error
}

// PatternPolicy blocks text containing secret-shaped tokens.
type PatternPolicy struct {
	patterns []*regexp.Regexp
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`sk-or-v1-[a-zA-Z0-9]{40,}`),
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9]{40,}`),
	regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`),
	regexp.MustCompile(`xai-[a-zA-Z0-9]{40,}`),
	regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`gho_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`),
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
}

func NewPatternPolicy() *PatternPolicy {
	return &PatternPolicy{patterns: secretPatterns}
}

func (p *PatternPolicy) Check(text string) error {
	for _, re := range p.patterns {
		if re.MatchString(text) {
			return &PolicyError{Reason: "contains a secret-like pattern"}
		}
	}
	return nil
}

// KeywordPolicy blocks text mentioning sensitive keywords.
type KeywordPolicy struct {
	keywords []string
}

var sensitiveKeywords = []string{"api key", "password", "secret", "private key", "ssn"}

func NewKeywordPolicy() *KeywordPolicy {
	return &KeywordPolicy{keywords: sensitiveKeywords}
}

func (p *KeywordPolicy) Check(text string) error {
	lower := strings.ToLower(text)
	for _, kw := range p.keywords {
		if strings.Contains(lower, kw) {
			return &PolicyError{Reason: fmt.Sprintf("mentions %q", kw)}
		}
	}
	return nil
}

// Policies blocks when any member blocks.
type Policies []Policy

func (ps Policies) Check(text string) error {
	for _, p := range ps {
		if err := p.Check(text); err != nil {
			return err
		}
	}
	return nil
}

// NewPolicy builds a policy by name: patterns, keywords or both.
func NewPolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "patterns":
		return NewPatternPolicy(), nil
	case "keywords":
		return NewKeywordPolicy(), nil
	case "both":
		return Policies{NewPatternPolicy(), NewKeywordPolicy()}, nil
	default:
		return nil, fmt.Errorf("unknown memory policy: %q", name)
	}
}
