// Package client is an HTTP client for a running factory API server. The
// CLI pipeline and memory commands use it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/papercomputeco/factory/api"
	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/pipeline"
	"github.com/papercomputeco/factory/pkg/project"
)

// Error is a failure envelope returned by the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("factory API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Client talks to the factory API at a base URL.
type Client struct {
	target *url.URL
	http   *http.Client
}

// New returns a Client for apiTarget. A nil httpClient uses
// http.DefaultClient.
func New(apiTarget string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API target URL: %q", apiTarget)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{target: u, http: httpClient}, nil
}

// RememberResponse is the reply to POST /memory/remember.
type RememberResponse struct {
	ID string `json:"id"`
}

// RecallResponse is the reply to POST /memory/recall.
type RecallResponse struct {
	Items []memory.Recalled `json:"items"`
}

// ArtifactsResponse is the reply to GET /projects/:id/artifacts.
type ArtifactsResponse struct {
	Artifacts []project.Artifact `json:"artifacts"`
}

func (c *Client) Brainstorm(ctx context.Context, req api.BrainstormRequest) (*pipeline.BrainstormOutput, error) {
	var out pipeline.BrainstormOutput
	if err := c.post(ctx, "/brainstorm", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Synthesize(ctx context.Context, req api.StageRequest) (*pipeline.SynthesizeOutput, error) {
	var out pipeline.SynthesizeOutput
	if err := c.post(ctx, "/synthesize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Bootstrap(ctx context.Context, req api.StageRequest) (*pipeline.BootstrapOutput, error) {
	var out pipeline.BootstrapOutput
	if err := c.post(ctx, "/bootstrap", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Research(ctx context.Context, req api.ResearchRequest) (*pipeline.ResearchOutput, error) {
	var out pipeline.ResearchOutput
	if err := c.post(ctx, "/research", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download copies the repo pack archive for projectID into w.
func (c *Client) Download(ctx context.Context, projectID string, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodPost, "/download", api.DownloadRequest{ProjectID: projectID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	return nil
}

func (c *Client) Project(ctx context.Context, projectID string) (*pipeline.ProjectView, error) {
	var out pipeline.ProjectView
	if err := c.get(ctx, "/projects/"+url.PathEscape(projectID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Artifacts(ctx context.Context, projectID string) ([]project.Artifact, error) {
	var out ArtifactsResponse
	if err := c.get(ctx, "/projects/"+url.PathEscape(projectID)+"/artifacts", &out); err != nil {
		return nil, err
	}
	return out.Artifacts, nil
}

func (c *Client) Remember(ctx context.Context, req api.RememberRequest) (string, error) {
	var out RememberResponse
	if err := c.post(ctx, "/memory/remember", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) Recall(ctx context.Context, req api.RecallRequest) ([]memory.Recalled, error) {
	var out RecallResponse
	if err := c.post(ctx, "/memory/recall", req, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) Forget(ctx context.Context, memoryID string) error {
	return c.post(ctx, "/memory/forget", api.ForgetRequest{MemoryID: memoryID}, nil)
}

func (c *Client) Reflect(ctx context.Context, req api.ReflectRequest) (*memory.ReflectResult, error) {
	var out memory.ReflectResult
	if err := c.post(ctx, "/memory/reflect", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reconcile(ctx context.Context, batchSize int) (*memory.ReconcileResult, error) {
	var out memory.ReconcileResult
	if err := c.post(ctx, "/memory/reconcile", api.ReconcileRequest{BatchSize: batchSize}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	resp, err := c.send(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	u := *c.target
	u.Path = strings.TrimSuffix(u.Path, "/") + path

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to factory API at %s: %w", c.target, err)
	}
	return resp, nil
}

// decode reads a success envelope into out, or turns a failure envelope
// into an *Error.
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}
	if out == nil {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func readError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env api.ErrorResponse
	if err := json.Unmarshal(body, &env); err != nil || env.Error == "" {
		env.Error = strings.TrimSpace(string(body))
	}
	return &Error{StatusCode: resp.StatusCode, Message: env.Error}
}

// IsStatus reports whether err is a server failure with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
