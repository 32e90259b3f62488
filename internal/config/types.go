package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOllama     ProviderType = "ollama"
	ProviderOpenRouter ProviderType = "openrouter"
)

// Config is the top-level sitechat configuration, corresponding to .sitechat.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`
	Namespace         string       `yaml:"namespace" koanf:"namespace"`
	RateLimitRPM      int          `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	Chunk             ChunkConfig  `yaml:"chunk" koanf:"chunk"`
	Crawl             CrawlConfig  `yaml:"crawl" koanf:"crawl"`
	Retrieval         Retrieval    `yaml:"retrieval" koanf:"retrieval"`
	Cache             CacheConfig  `yaml:"cache" koanf:"cache"`
	Server            ServerConfig `yaml:"server" koanf:"server"`
}

// ChunkConfig controls how documents are split before embedding.
type ChunkConfig struct {
	Size    int `yaml:"size" koanf:"size"`       // max chunk size in bytes
	Overlap int `yaml:"overlap" koanf:"overlap"` // bytes carried across chunk boundaries
}

// CrawlConfig holds website traversal limits.
type CrawlConfig struct {
	MaxDepth            int      `yaml:"max_depth" koanf:"max_depth"`
	MaxPages            int      `yaml:"max_pages" koanf:"max_pages"`
	Concurrency         int      `yaml:"concurrency" koanf:"concurrency"`
	FollowExternalLinks bool     `yaml:"follow_external_links" koanf:"follow_external_links"`
	UseSitemap          bool     `yaml:"use_sitemap" koanf:"use_sitemap"`
	Include             []string `yaml:"include" koanf:"include"`
	Exclude             []string `yaml:"exclude" koanf:"exclude"`
}

// Retrieval holds query-time settings.
type Retrieval struct {
	TopK         int `yaml:"top_k" koanf:"top_k"`
	HistoryLimit int `yaml:"history_limit" koanf:"history_limit"` // messages kept in the prompt window
}

// CacheConfig bounds the one-shot query response cache.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" koanf:"ttl_minutes"`
	MaxEntries int `yaml:"max_entries" koanf:"max_entries"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"` // allow all CORS origins (dev mode)
}
