package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single definition of a CLI flag that maps onto a config key,
// so the same logical flag cannot drift between commands.
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag. Empty for none.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to.
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet maps registry keys to flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagListen          = "listen"
	FlagOwner           = "owner"
	FlagStorageProv     = "storage-provider"
	FlagSQLite          = "sqlite"
	FlagPostgresDSN     = "postgres-dsn"
	FlagBlobRoot        = "blob-root"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagLocalTarget     = "local-target"
	FlagAPITarget       = "api-target"
	FlagEventsProv      = "events-provider"
)

// Registry holds every flag definition shared by factory commands.
var Registry = FlagSet{
	FlagListen:          {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the API server to listen on"},
	FlagOwner:           {Name: "owner", ViperKey: "server.default_owner", Description: "Owner identity applied when a request omits user_id"},
	FlagStorageProv:     {Name: "storage-provider", ViperKey: "storage.provider", Description: "Relational store (sqlite, postgres, memory)"},
	FlagSQLite:          {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to the SQLite database (default: <config-dir>/factory.db)"},
	FlagPostgresDSN:     {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagBlobRoot:        {Name: "blob-root", ViperKey: "blob.root", Description: "Directory for artifact blobs (default: <config-dir>/blobs)"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector index (sqlite, chroma, qdrant, pgvector, memory)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector index target (URL, address, DSN or file path)"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedder (ollama, openai, gemini, hash)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedder base URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding vector dimensions"},
	FlagLocalTarget:     {Name: "local-target", ViperKey: "providers.local_target", Description: "Ollama URL used by the local model provider"},
	FlagAPITarget:       {Name: "api-target", ViperKey: "client.api_target", Description: "Factory API server URL"},
	FlagEventsProv:      {Name: "events-provider", ViperKey: "events.provider", Description: "Run event publisher (nop, kafka)"},
}

// AddStringFlag registers the string flag for key on cmd.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers the uint flag for key on cmd.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, key string, target *uint) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags into v so the chain
// flag > env > config file > default applies. Call it after InitViper.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
