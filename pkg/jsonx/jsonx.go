// Package jsonx pulls JSON values out of free-form model output.
package jsonx

import (
	"encoding/json"
	"errors"
	"strings"
)

const fence = "```"

// Parse failure codes recorded in place of a decoded document.
const (
	SynthesisParseFailed = "SYNTHESIS_JSON_PARSE_FAILED"
	BootstrapParseFailed = "BOOTSTRAP_JSON_PARSE_FAILED"
	ResearchParseFailed  = "RESEARCH_JSON_PARSE_FAILED"
	ReflectParseFailed   = "REFLECT_JSON_PARSE_FAILED"
)

// ErrNoJSON is returned by Decode when no candidate parses.
var ErrNoJSON = errors.New("no JSON value found")

// Extract returns the most likely JSON text inside s.
//
// A fenced block wins: content runs from the line after the first ```
// to the last closing fence, so fences nested inside the payload survive.
// Without a usable fence the outermost {...} or [...] span is used, and
// failing that s is returned unchanged.
func Extract(s string) string {
	if inner, ok := fenced(s); ok {
		return inner
	}
	if span, ok := bracketSpan(s); ok {
		return span
	}
	return s
}

func fenced(s string) (string, bool) {
	open := strings.Index(s, fence)
	if open < 0 {
		return "", false
	}

	nl := strings.IndexByte(s[open+len(fence):], '\n')
	if nl < 0 {
		return "", false
	}
	start := open + len(fence) + nl + 1

	end := strings.LastIndex(s, "\n"+fence)
	if end < start-1 {
		end = strings.LastIndex(s, fence)
	}
	if end < start {
		if end == start-1 {
			return "", true
		}
		return "", false
	}

	return strings.TrimSpace(s[start:end]), true
}

// bracketSpan returns the outermost object or array span, whichever opens
// first.
func bracketSpan(s string) (string, bool) {
	obj, objOK := span(s, '{', '}')
	arr, arrOK := span(s, '[', ']')

	switch {
	case objOK && arrOK:
		if strings.IndexByte(s, '[') < strings.IndexByte(s, '{') {
			return arr, true
		}
		return obj, true
	case objOK:
		return obj, true
	case arrOK:
		return arr, true
	}
	return "", false
}

func span(s string, open, close byte) (string, bool) {
	first := strings.IndexByte(s, open)
	last := strings.LastIndexByte(s, close)
	if first < 0 || last <= first {
		return "", false
	}
	return s[first : last+1], true
}

// Decode extracts JSON from s into v. When the fenced candidate does not
// parse, the bracket span of the whole text is tried before giving up.
func Decode(s string, v any) error {
	candidate := Extract(s)
	err := json.Unmarshal([]byte(candidate), v)
	if err == nil {
		return nil
	}

	if alt, ok := bracketSpan(s); ok && alt != candidate {
		if json.Unmarshal([]byte(alt), v) == nil {
			return nil
		}
	}

	return errors.Join(ErrNoJSON, err)
}

// ParseFailure is the document stored when model output cannot be decoded.
func ParseFailure(code, raw, provider string) map[string]any {
	return map[string]any{
		"error":    code,
		"raw":      raw,
		"provider": provider,
	}
}

// HasError reports whether doc is an object carrying an "error" key.
func HasError(doc any) bool {
	m, ok := doc.(map[string]any)
	if !ok {
		return false
	}
	_, has := m["error"]
	return has
}
