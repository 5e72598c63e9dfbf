package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Temperature is the sampling temperature sent to every provider.
const Temperature = 0.4

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return ErrorDetail(e.Body)
}

// PostJSON marshals body, posts it to url with headers and returns the
// response body. Non-2xx responses return the body and an *HTTPError.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return data, &HTTPError{StatusCode: resp.StatusCode, Body: data}
	}
	return data, nil
}

// ErrorDetail returns the upstream error.message when the body carries
// one, otherwise the raw body.
func ErrorDetail(body []byte) string {
	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && len(probe.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(probe.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if err := json.Unmarshal(probe.Error, &flat); err == nil && flat != "" {
			return flat
		}
	}
	return strings.TrimSpace(string(body))
}

// Failure converts a call error into a Result. A deadline hit on callCtx
// while parent is still live is the provider's own timeout.
func Failure(name Name, parent, callCtx context.Context, err error) Result {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return TimedOut(name)
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return Errored(name, httpErr.Error(), httpErr.Body)
	}
	return Errored(name, err.Error(), nil)
}

// Timeouts returns the default per-provider call timeouts. Local applies
// per attempt.
func Timeouts() map[Name]time.Duration {
	return map[Name]time.Duration{
		Local:      120 * time.Second,
		Anthropic:  55 * time.Second,
		OpenAI:     25 * time.Second,
		Gemini:     55 * time.Second,
		Grok:       55 * time.Second,
		OpenRouter: 180 * time.Second,
	}
}

// TimeoutFor returns d when positive, else the default for name.
func TimeoutFor(name Name, d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return Timeouts()[name]
}
