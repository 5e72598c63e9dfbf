// Package qdrant provides a Qdrant vector driver over its gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"

	factorylogger "github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/vector"
)

const (
	// DefaultCollectionName is used when no collection is configured.
	DefaultCollectionName = "factory_memories"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	// docIDKey holds the original document id in each point payload.
	docIDKey = "doc_id"
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is host:port or a URL such as "http://localhost:6334".
	// An https URL enables TLS.
	Target string

	Collection string
	Dimensions uint
	APIKey     string
	Logger     *slog.Logger
}

// Driver implements vector.Driver on a Qdrant collection with cosine
// distance.
type Driver struct {
	client     *qc.Client
	collection string
	logger     *slog.Logger
}

// NewDriver connects to Qdrant and creates the collection if missing.
func NewDriver(ctx context.Context, c Config) (*Driver, error) {
	if c.Target == "" {
		return nil, fmt.Errorf("qdrant target is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}
	host, port, useTLS, err := parseTarget(c.Target)
	if err != nil {
		return nil, err
	}
	collection := c.Collection
	if collection == "" {
		collection = DefaultCollectionName
	}
	logger := c.Logger
	if logger == nil {
		logger = factorylogger.Nop()
	}

	client, err := qc.NewClient(&qc.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection: %w", vector.ErrConnection, err)
	}
	if !exists {
		err = client.CreateCollection(ctx, &qc.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qc.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("creating collection %q: %w", collection, err)
		}
	}

	logger.Info("connected to qdrant",
		"host", host,
		"port", port,
		"collection", collection,
	)
	return &Driver{client: client, collection: collection, logger: logger}, nil
}

func parseTarget(target string) (string, int, bool, error) {
	hostport := target
	useTLS := false
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		hostport = u.Host
		useTLS = u.Scheme == "https"
	}

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, DefaultPort, useTLS, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, useTLS, nil
}

// PointID maps a document id onto the UUID Qdrant requires. The mapping is
// stable so upserts replace the same point.
func PointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String()
}

func pointIDs(ids []string) []*qc.PointId {
	out := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		out[i] = qc.NewID(PointID(id))
	}
	return out
}

func payloadToDocument(payload map[string]*qc.Value, vectors *qc.VectorsOutput) vector.Document {
	raw := make(map[string]any, len(payload))
	for k, v := range payload {
		switch kind := v.GetKind().(type) {
		case *qc.Value_StringValue:
			raw[k] = kind.StringValue
		case *qc.Value_DoubleValue:
			raw[k] = kind.DoubleValue
		case *qc.Value_IntegerValue:
			raw[k] = kind.IntegerValue
		}
	}

	doc := vector.Document{Metadata: vector.MetadataFromMap(raw)}
	if id, ok := raw[docIDKey].(string); ok {
		doc.ID = id
	}
	if vectors != nil {
		doc.Embedding = vectors.GetVector().GetData()
	}
	return doc
}

func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qc.PointStruct, len(docs))
	for i, doc := range docs {
		payload := doc.Metadata.ToMap()
		payload[docIDKey] = doc.ID
		points[i] = &qc.PointStruct{
			Id:      qc.NewID(PointID(doc.ID)),
			Vectors: qc.NewVectors(doc.Embedding...),
			Payload: qc.NewValueMap(payload),
		}
	}

	_, err := d.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qc.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	d.logger.Debug("upserted points to qdrant", "count", len(docs))
	return nil
}

func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	points, err := d.client.Query(ctx, &qc.QueryPoints{
		CollectionName: d.collection,
		Query:          qc.NewQuery(embedding...),
		Limit:          qc.PtrOf(uint64(topK)),
		WithPayload:    qc.NewWithPayload(true),
		WithVectors:    qc.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		results = append(results, vector.QueryResult{
			Document: payloadToDocument(p.GetPayload(), p.GetVectors()),
			Score:    p.GetScore(),
		})
	}
	d.logger.Debug("queried qdrant", "results", len(results))
	return results, nil
}

func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	points, err := d.client.Get(ctx, &qc.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs(ids),
		WithPayload:    qc.NewWithPayload(true),
		WithVectors:    qc.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, payloadToDocument(p.GetPayload(), p.GetVectors()))
	}
	return docs, nil
}

func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := d.client.Delete(ctx, &qc.DeletePoints{
		CollectionName: d.collection,
		Wait:           qc.PtrOf(true),
		Points:         qc.NewPointsSelector(pointIDs(ids)...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	d.logger.Debug("deleted points from qdrant", "count", len(ids))
	return nil
}

func (d *Driver) Close() error {
	return d.client.Close()
}
