package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ziadkadry99/sitechat/internal/config"
	"github.com/ziadkadry99/sitechat/internal/db"
	"github.com/ziadkadry99/sitechat/internal/embeddings"
	"github.com/ziadkadry99/sitechat/internal/llm"
	"github.com/ziadkadry99/sitechat/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `sitechat init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
// Shared by the train, query, chat, serve and mcp commands.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		if cfg.Provider == config.ProviderOllama {
			provider = config.ProviderOllama
		} else {
			provider = config.ProviderOpenAI
		}
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.DefaultEmbeddingModel(provider)
	}

	switch provider {
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, 768, os.Getenv("OLLAMA_HOST")), nil
	default:
		// Providers without native embeddings use OpenAI.
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	}
}

// createLLMProviderFromConfig creates an LLM provider based on config
// settings, wrapped in a rate limiter when rate_limit_rpm is set.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRPM > 0 {
		return llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM), nil
	}
	return provider, nil
}

// openStore creates the vector store and restores any persisted index
// from the data directory. A missing index is not an error; the store
// starts empty.
func openStore(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) vectordb.Store {
	store := vectordb.NewChromemStore(embedder)
	if cfg.DataDir == "" {
		return store
	}
	if err := store.Load(ctx, cfg.DataDir); err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Warning: could not load vector index from %s: %v\n", cfg.DataDir, err)
		}
	}
	return store
}

// openDatabase opens (creating if needed) the SQLite job database under
// the data directory.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	if cfg.DataDir == "" {
		return db.OpenMemory()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return db.Open(cfg.DataDir + "/sitechat.db")
}
