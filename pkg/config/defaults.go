package config

const (
	defaultStorageProvider = "sqlite"
	defaultBlobProvider    = "filesystem"

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "memories"

	defaultOllamaTarget        = "http://localhost:11434"
	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768

	defaultLocalModel         = "llama3.1:70b"
	defaultLocalFallbackModel = "llama3.1:8b"

	defaultListen       = ":8080"
	defaultAPITarget    = "http://localhost:8080"
	defaultOwner        = "default"
	defaultEventsTopic  = "factory.runs"
	defaultEventsSource = "nop"

	defaultPolicy         = "patterns"
	defaultRecallK        = 8
	defaultReflectMin     = 8
	defaultReflectWindow  = 40
	defaultReflectKeep    = 3
	defaultReconcileBatch = 100
)

// NewDefaultConfig returns a fully populated Config. It is the single source
// of default values for the file, viper and flag layers.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		Blob: BlobConfig{
			Provider: defaultBlobProvider,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Providers: ProvidersConfig{
			Default:            []string{"local"},
			LocalTarget:        defaultOllamaTarget,
			LocalModel:         defaultLocalModel,
			LocalFallbackModel: defaultLocalFallbackModel,
			PreferSynthesize:   "anthropic",
			PreferBootstrap:    "anthropic",
			PreferResearch:     "openrouter",
			Reflect:            "local",
		},
		Server: ServerConfig{
			Listen:       defaultListen,
			DefaultOwner: defaultOwner,
		},
		Client: ClientConfig{
			APITarget: defaultAPITarget,
		},
		Events: EventsConfig{
			Provider: defaultEventsSource,
			Topic:    defaultEventsTopic,
		},
		Memory: MemoryConfig{
			Policy:         defaultPolicy,
			RecallK:        defaultRecallK,
			ReflectMin:     defaultReflectMin,
			ReflectWindow:  defaultReflectWindow,
			ReflectKeep:    defaultReflectKeep,
			ReconcileBatch: defaultReconcileBatch,
		},
	}
}
