package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config is the persistent factory configuration stored as config.toml in
// the .factory/ directory.
type Config struct {
	Version     int               `toml:"version" mapstructure:"version"`
	Storage     StorageConfig     `toml:"storage" mapstructure:"storage"`
	Blob        BlobConfig        `toml:"blob" mapstructure:"blob"`
	VectorStore VectorStoreConfig `toml:"vector_store" mapstructure:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding" mapstructure:"embedding"`
	Providers   ProvidersConfig   `toml:"providers" mapstructure:"providers"`
	Server      ServerConfig      `toml:"server" mapstructure:"server"`
	Client      ClientConfig      `toml:"client" mapstructure:"client"`
	Events      EventsConfig      `toml:"events" mapstructure:"events"`
	Memory      MemoryConfig      `toml:"memory" mapstructure:"memory"`
}

// StorageConfig selects the relational store. Provider is one of sqlite,
// postgres or memory.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty" mapstructure:"provider"`
	SQLitePath  string `toml:"sqlite_path,omitempty" mapstructure:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn,omitempty" mapstructure:"postgres_dsn"`
}

// BlobConfig selects the artifact blob store. Provider is filesystem or
// memory; Root defaults to <dotdir>/blobs.
type BlobConfig struct {
	Provider string `toml:"provider,omitempty" mapstructure:"provider"`
	Root     string `toml:"root,omitempty" mapstructure:"root"`
}

// VectorStoreConfig selects the vector index. Provider is one of sqlite,
// chroma, qdrant, pgvector or memory.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty" mapstructure:"provider"`
	Target     string `toml:"target,omitempty" mapstructure:"target"`
	Collection string `toml:"collection,omitempty" mapstructure:"collection"`
}

// EmbeddingConfig selects the embedder. Provider is one of ollama, openai,
// gemini or hash.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty" mapstructure:"provider"`
	Target     string `toml:"target,omitempty" mapstructure:"target"`
	Model      string `toml:"model,omitempty" mapstructure:"model"`
	Dimensions uint   `toml:"dimensions,omitempty" mapstructure:"dimensions"`
}

// ProvidersConfig holds model provider endpoints, models and stage
// preferences. API keys live in credentials.toml or the environment.
type ProvidersConfig struct {
	Default            []string          `toml:"default,omitempty" mapstructure:"default"`
	LocalTarget        string            `toml:"local_target,omitempty" mapstructure:"local_target"`
	LocalModel         string            `toml:"local_model,omitempty" mapstructure:"local_model"`
	LocalFallbackModel string            `toml:"local_fallback_model,omitempty" mapstructure:"local_fallback_model"`
	PreferSynthesize   string            `toml:"prefer_synthesize,omitempty" mapstructure:"prefer_synthesize"`
	PreferBootstrap    string            `toml:"prefer_bootstrap,omitempty" mapstructure:"prefer_bootstrap"`
	PreferResearch     string            `toml:"prefer_research,omitempty" mapstructure:"prefer_research"`
	Reflect            string            `toml:"reflect,omitempty" mapstructure:"reflect"`
	BaseURLs           map[string]string `toml:"base_urls,omitempty" mapstructure:"base_urls"`
	Timeouts           map[string]string `toml:"timeouts,omitempty" mapstructure:"timeouts"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Listen       string `toml:"listen,omitempty" mapstructure:"listen"`
	DefaultOwner string `toml:"default_owner,omitempty" mapstructure:"default_owner"`
}

// ClientConfig holds settings for CLI commands that talk to a running server.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty" mapstructure:"api_target"`
}

// EventsConfig selects where run events are published. Provider is nop or
// kafka.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty" mapstructure:"provider"`
	Brokers  []string `toml:"brokers,omitempty" mapstructure:"brokers"`
	Topic    string   `toml:"topic,omitempty" mapstructure:"topic"`
}

// MemoryConfig tunes the memory engine.
type MemoryConfig struct {
	Policy         string `toml:"policy,omitempty" mapstructure:"policy"`
	RecallK        int    `toml:"recall_k,omitempty" mapstructure:"recall_k"`
	ReflectMin     int    `toml:"reflect_min,omitempty" mapstructure:"reflect_min"`
	ReflectWindow  int    `toml:"reflect_window,omitempty" mapstructure:"reflect_window"`
	ReflectKeep    int    `toml:"reflect_keep,omitempty" mapstructure:"reflect_keep"`
	ReconcileBatch int    `toml:"reconcile_batch,omitempty" mapstructure:"reconcile_batch"`
}

// configKeyInfo maps a dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			if v == "" {
				*field(c) = 0
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func listKey(field func(c *Config) *[]string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strings.Join(*field(c), ",") },
		set: func(c *Config, v string) error {
			var out []string
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
			*field(c) = out
			return nil
		},
	}
}

// configKeys is the authoritative map of supported dotted keys.
var configKeys = map[string]configKeyInfo{
	"storage.provider":     stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"blob.provider": stringKey(func(c *Config) *string { return &c.Blob.Provider }),
	"blob.root":     stringKey(func(c *Config) *string { return &c.Blob.Root }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			if v == "" {
				c.Embedding.Dimensions = 0
				return nil
			}
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},

	"providers.default":              listKey(func(c *Config) *[]string { return &c.Providers.Default }),
	"providers.local_target":         stringKey(func(c *Config) *string { return &c.Providers.LocalTarget }),
	"providers.local_model":          stringKey(func(c *Config) *string { return &c.Providers.LocalModel }),
	"providers.local_fallback_model": stringKey(func(c *Config) *string { return &c.Providers.LocalFallbackModel }),
	"providers.prefer_synthesize":    stringKey(func(c *Config) *string { return &c.Providers.PreferSynthesize }),
	"providers.prefer_bootstrap":     stringKey(func(c *Config) *string { return &c.Providers.PreferBootstrap }),
	"providers.prefer_research":      stringKey(func(c *Config) *string { return &c.Providers.PreferResearch }),
	"providers.reflect":              stringKey(func(c *Config) *string { return &c.Providers.Reflect }),

	"server.listen":        stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.default_owner": stringKey(func(c *Config) *string { return &c.Server.DefaultOwner }),
	"client.api_target":    stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  listKey(func(c *Config) *[]string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"memory.policy":          stringKey(func(c *Config) *string { return &c.Memory.Policy }),
	"memory.recall_k":        intKey("memory.recall_k", func(c *Config) *int { return &c.Memory.RecallK }),
	"memory.reflect_min":     intKey("memory.reflect_min", func(c *Config) *int { return &c.Memory.ReflectMin }),
	"memory.reflect_window":  intKey("memory.reflect_window", func(c *Config) *int { return &c.Memory.ReflectWindow }),
	"memory.reflect_keep":    intKey("memory.reflect_keep", func(c *Config) *int { return &c.Memory.ReflectKeep }),
	"memory.reconcile_batch": intKey("memory.reconcile_batch", func(c *Config) *int { return &c.Memory.ReconcileBatch }),
}

// orderedKeys follows the TOML section layout for list output.
var orderedKeys = []string{
	"storage.provider", "storage.sqlite_path", "storage.postgres_dsn",
	"blob.provider", "blob.root",
	"vector_store.provider", "vector_store.target", "vector_store.collection",
	"embedding.provider", "embedding.target", "embedding.model", "embedding.dimensions",
	"providers.default", "providers.local_target", "providers.local_model", "providers.local_fallback_model",
	"providers.prefer_synthesize", "providers.prefer_bootstrap", "providers.prefer_research", "providers.reflect",
	"server.listen", "server.default_owner", "client.api_target",
	"events.provider", "events.brokers", "events.topic",
	"memory.policy", "memory.recall_k", "memory.reflect_min", "memory.reflect_window",
	"memory.reflect_keep", "memory.reconcile_batch",
}
