package config

// defaultModels maps each provider to its default chat model.
var defaultModels = map[ProviderType]string{
	ProviderOpenAI:     "gpt-4o",
	ProviderAnthropic:  "claude-sonnet-4-5-20250929",
	ProviderOllama:     "llama3",
	ProviderOpenRouter: "openai/gpt-4o",
}

// defaultEmbeddingModels maps each embedding provider to its default model.
var defaultEmbeddingModels = map[ProviderType]string{
	ProviderOpenAI: "text-embedding-3-small",
	ProviderOllama: "nomic-embed-text",
}

// DefaultExcludes are URL path patterns skipped during crawling by default.
var DefaultExcludes = []string{
	"login/**",
	"logout/**",
	"cart/**",
	"checkout/**",
	"search/**",
	"tag/**",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             defaultModels[ProviderOpenAI],
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    defaultEmbeddingModels[ProviderOpenAI],
		DataDir:           ".sitechat",
		Namespace:         "default",
		RateLimitRPM:      0,
		Chunk: ChunkConfig{
			Size:    1000,
			Overlap: 100,
		},
		Crawl: CrawlConfig{
			MaxDepth:    2,
			MaxPages:    50,
			Concurrency: 3,
			UseSitemap:  true,
			Exclude:     DefaultExcludes,
		},
		Retrieval: Retrieval{
			TopK:         5,
			HistoryLimit: 10,
		},
		Cache: CacheConfig{
			TTLMinutes: 60,
			MaxEntries: 256,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// DefaultModel returns the default chat model for the given provider.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderOpenAI]
}

// DefaultEmbeddingModel returns the default embedding model for the
// given embedding provider.
func DefaultEmbeddingModel(provider ProviderType) string {
	if m, ok := defaultEmbeddingModels[provider]; ok {
		return m
	}
	return defaultEmbeddingModels[ProviderOpenAI]
}
