package credentials

// Credentials is the on-disk layout of credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential holds the API key for one keyed model provider.
type ProviderCredential struct {
	APIKey string `toml:"api_key"`
}

// EnvKeys are provider API keys read from the process environment. Values
// found here take precedence over credentials.toml.
type EnvKeys struct {
	Anthropic  string `env:"ANTHROPIC_API_KEY"`
	OpenAI     string `env:"OPENAI_API_KEY"`
	Gemini     string `env:"GEMINI_API_KEY"`
	Grok       string `env:"GROK_API_KEY"`
	OpenRouter string `env:"OPENROUTER_API_KEY"`
}

func (k EnvKeys) byProvider() map[string]string {
	return map[string]string{
		"anthropic":  k.Anthropic,
		"openai":     k.OpenAI,
		"gemini":     k.Gemini,
		"grok":       k.Grok,
		"openrouter": k.OpenRouter,
	}
}
