// Package chroma provides a Chroma vector database driver over its v2 REST
// API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	factorylogger "github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/vector"
)

// DefaultCollectionName is the collection memories are stored in when none
// is configured.
const DefaultCollectionName = "factory_memories"

const apiPrefix = "/api/v2/tenants/default_tenant/databases/default_database/collections"

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL      string
	collectionID string
	httpClient   *http.Client
	logger       *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// Collection defaults to DefaultCollectionName.
	Collection string

	// MaxRetries bounds connection attempts while Chroma starts up.
	// Zero means a single attempt.
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewDriver connects to Chroma and gets or creates the collection. The
// collection uses cosine distance so scores are 1 - distance.
func NewDriver(ctx context.Context, c Config) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}
	name := c.Collection
	if name == "" {
		name = DefaultCollectionName
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	logger := c.Logger
	if logger == nil {
		logger = factorylogger.Nop()
	}

	d := &Driver{
		baseURL:    strings.TrimRight(c.URL, "/"),
		httpClient: client,
		logger:     logger,
	}

	coll, err := d.connect(ctx, name, c)
	if err != nil {
		return nil, fmt.Errorf("getting or creating collection %q: %w", name, err)
	}
	d.collectionID = coll.ID

	logger.Info("connected to chroma",
		"url", c.URL,
		"collection", name,
		"collection_id", coll.ID,
	)
	return d, nil
}

func (d *Driver) connect(ctx context.Context, name string, c Config) (collection, error) {
	attempts := max(c.MaxRetries, 1)
	delay := c.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}

	var (
		coll    collection
		lastErr error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = d.do(ctx, http.MethodPost, apiPrefix, createCollectionRequest{
			Name:        name,
			Metadata:    map[string]any{"hnsw:space": "cosine"},
			GetOrCreate: true,
		}, &coll)
		if lastErr == nil {
			return coll, nil
		}
		if attempt == attempts {
			break
		}

		d.logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)
		select {
		case <-ctx.Done():
			return coll, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxDelay)
	}
	return coll, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func (d *Driver) do(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chroma %s: status %d: %s", path, resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (d *Driver) collectionPath(op string) string {
	return apiPrefix + "/" + d.collectionID + "/" + op
}

func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	req := upsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
	}
	for i, doc := range docs {
		req.IDs[i] = doc.ID
		req.Embeddings[i] = doc.Embedding
		req.Metadatas[i] = doc.Metadata.ToMap()
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("upsert"), req, nil); err != nil {
		return fmt.Errorf("upserting documents: %w", err)
	}
	d.logger.Debug("upserted documents to chroma", "count", len(docs))
	return nil
}

func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	var resp queryResponse
	err := d.do(ctx, http.MethodPost, d.collectionPath("query"), queryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "distances", "embeddings"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}

	// Only one query embedding is sent, so only the first group matters.
	if len(resp.IDs) == 0 {
		return nil, nil
	}
	results := make([]vector.QueryResult, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		r := vector.QueryResult{Document: vector.Document{ID: id}}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			r.Metadata = vector.MetadataFromMap(resp.Metadatas[0][i])
		}
		if len(resp.Embeddings) > 0 && i < len(resp.Embeddings[0]) {
			r.Embedding = resp.Embeddings[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			r.Score = 1 - resp.Distances[0][i]
		}
		results = append(results, r)
	}

	d.logger.Debug("queried chroma", "results", len(results))
	return results, nil
}

func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var resp getResponse
	err := d.do(ctx, http.MethodPost, d.collectionPath("get"), getRequest{
		IDs:     ids,
		Include: []string{"metadatas", "embeddings"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("getting documents: %w", err)
	}

	docs := make([]vector.Document, len(resp.IDs))
	for i, id := range resp.IDs {
		docs[i].ID = id
		if i < len(resp.Metadatas) {
			docs[i].Metadata = vector.MetadataFromMap(resp.Metadatas[i])
		}
		if i < len(resp.Embeddings) {
			docs[i].Embedding = resp.Embeddings[i]
		}
	}
	return docs, nil
}

func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := d.do(ctx, http.MethodPost, d.collectionPath("delete"), deleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	d.logger.Debug("deleted documents from chroma", "count", len(ids))
	return nil
}

// Close is a no-op; the HTTP client needs no cleanup.
func (d *Driver) Close() error {
	return nil
}
