// Package stack assembles the factory runtime from configuration: stores,
// vector index, embedder, provider registry, memory engine, pipeline and
// event publisher.
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/papercomputeco/factory/pkg/blob"
	blobutils "github.com/papercomputeco/factory/pkg/blob/utils"
	"github.com/papercomputeco/factory/pkg/config"
	"github.com/papercomputeco/factory/pkg/dotdir"
	"github.com/papercomputeco/factory/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/factory/pkg/embeddings/utils"
	"github.com/papercomputeco/factory/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/factory/pkg/eventstream/utils"
	"github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/pipeline"
	"github.com/papercomputeco/factory/pkg/prompts"
	"github.com/papercomputeco/factory/pkg/provider"
	providerutils "github.com/papercomputeco/factory/pkg/provider/utils"
	"github.com/papercomputeco/factory/pkg/storage"
	storageutils "github.com/papercomputeco/factory/pkg/storage/utils"
	"github.com/papercomputeco/factory/pkg/vector"
	vectorutils "github.com/papercomputeco/factory/pkg/vector/utils"
)

const (
	sqliteFile  = "factory.db"
	vectorsFile = "vectors.db"
	blobsDir    = "blobs"
)

// Options configures Build.
type Options struct {
	Config *config.Config

	// ConfigDir overrides .factory/ resolution for default file paths.
	ConfigDir string

	// Keys maps provider name to API key.
	Keys map[string]string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Stack is a fully wired factory runtime.
type Stack struct {
	Store     storage.Driver
	Blobs     blob.Store
	Vectors   vector.Driver
	Embedder  embeddings.Embedder
	Registry  *provider.Registry
	Prompts   *prompts.Loader
	Publisher eventstream.Publisher
	Memory    *memory.Engine
	Pipeline  *pipeline.Pipeline

	closers []func() error
}

// Build opens every backend named by o.Config. On error, anything already
// opened is closed.
func Build(ctx context.Context, o Options) (_ *Stack, err error) {
	if o.Config == nil {
		return nil, errors.New("config is required")
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	cfg := o.Config
	s := &Stack{}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	s.Store, err = OpenStore(ctx, cfg, o.ConfigDir)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, s.Store.Close)
	o.Logger.Info("using storage", "provider", cfg.Storage.Provider)

	s.Blobs, err = blobutils.NewStore(&blobutils.NewStoreOpts{
		ProviderType: cfg.Blob.Provider,
		Root:         orPath(cfg.Blob.Root, o.ConfigDir, blobsDir),
	})
	if err != nil {
		return nil, fmt.Errorf("creating blob store: %w", err)
	}
	s.closers = append(s.closers, s.Blobs.Close)

	embedOpts := &embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		APIKey:       o.Keys[cfg.Embedding.Provider],
		HTTPClient:   o.HTTPClient,
	}
	s.Embedder, err = embeddingutils.NewEmbedder(ctx, embedOpts)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	s.closers = append(s.closers, s.Embedder.Close)

	vectorTarget := cfg.VectorStore.Target
	if cfg.VectorStore.Provider == "sqlite" {
		vectorTarget = orPath(vectorTarget, o.ConfigDir, vectorsFile)
	}
	s.Vectors, err = vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    vectorTarget,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       o.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}
	s.closers = append(s.closers, s.Vectors.Close)
	o.Logger.Info("using vector store", "provider", cfg.VectorStore.Provider)

	s.Registry, err = providerutils.NewRegistry(&providerutils.NewRegistryOpts{
		Config:     cfg.Providers,
		Keys:       o.Keys,
		HTTPClient: o.HTTPClient,
		Logger:     o.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating provider registry: %w", err)
	}

	s.Publisher, err = eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.Events.Brokers,
		Topic:        cfg.Events.Topic,
		Logger:       o.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	s.closers = append(s.closers, s.Publisher.Close)

	s.Prompts = prompts.NewLoader(s.Store)

	policy, err := memory.NewPolicy(cfg.Memory.Policy)
	if err != nil {
		return nil, err
	}

	reflectProvider, err := optionalName(cfg.Providers.Reflect)
	if err != nil {
		return nil, fmt.Errorf("providers.reflect: %w", err)
	}
	s.Memory, err = memory.NewEngine(memory.Config{
		Store:           s.Store,
		Vectors:         s.Vectors,
		Embedder:        s.Embedder,
		EmbeddingModel:  embeddingutils.ModelID(embedOpts),
		Policy:          policy,
		Registry:        s.Registry,
		ReflectProvider: reflectProvider,
		Prompts:         s.Prompts,
		RecallK:         cfg.Memory.RecallK,
		ReflectMin:      cfg.Memory.ReflectMin,
		ReflectWindow:   cfg.Memory.ReflectWindow,
		ReflectKeep:     cfg.Memory.ReflectKeep,
		ReconcileBatch:  cfg.Memory.ReconcileBatch,
		Logger:          o.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating memory engine: %w", err)
	}

	pipeCfg := pipeline.Config{
		Registry:         s.Registry,
		Store:            s.Store,
		Blobs:            s.Blobs,
		Memory:           s.Memory,
		Prompts:          s.Prompts,
		Publisher:        s.Publisher,
		DefaultProviders: provider.ParseNames(cfg.Providers.Default),
		Logger:           o.Logger,
	}
	if pipeCfg.PreferSynthesize, err = optionalName(cfg.Providers.PreferSynthesize); err != nil {
		return nil, fmt.Errorf("providers.prefer_synthesize: %w", err)
	}
	if pipeCfg.PreferBootstrap, err = optionalName(cfg.Providers.PreferBootstrap); err != nil {
		return nil, fmt.Errorf("providers.prefer_bootstrap: %w", err)
	}
	if pipeCfg.PreferResearch, err = optionalName(cfg.Providers.PreferResearch); err != nil {
		return nil, fmt.Errorf("providers.prefer_research: %w", err)
	}
	s.Pipeline, err = pipeline.New(pipeCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	return s, nil
}

// OpenStore opens only the relational store named by cfg. Commands that
// edit stored state without serving, such as prompt overrides, use it.
func OpenStore(ctx context.Context, cfg *config.Config, configDir string) (storage.Driver, error) {
	store, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		ProviderType: cfg.Storage.Provider,
		SQLitePath:   orPath(cfg.Storage.SQLitePath, configDir, sqliteFile),
		PostgresDSN:  cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage driver: %w", err)
	}
	return store, nil
}

// Close releases every backend in reverse open order.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// orPath returns p, or name inside the resolved .factory/ directory.
func orPath(p, configDir, name string) string {
	if p != "" {
		return p
	}
	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return name
	}
	return filepath.Join(dir, name)
}

func optionalName(s string) (provider.Name, error) {
	if s == "" {
		return "", nil
	}
	return provider.ParseName(s)
}
