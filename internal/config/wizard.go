package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .sitechat.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to sitechat! Let's configure your project.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "anthropic", "ollama", "openrouter"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)
	cfg.Model = DefaultModel(cfg.Provider)
	cfg.EmbeddingProvider = embeddingProviderFor(cfg.Provider)
	cfg.EmbeddingModel = DefaultEmbeddingModel(cfg.EmbeddingProvider)

	// 2. Default namespace.
	nsPrompt := promptui.Prompt{
		Label:   "Default namespace for ingested content",
		Default: "default",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("namespace must not be empty")
			}
			return nil
		},
	}
	ns, err := nsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("namespace: %w", err)
	}
	cfg.Namespace = strings.TrimSpace(ns)

	// 3. Crawl depth.
	depthPrompt := promptui.Prompt{
		Label:    "Maximum crawl depth",
		Default:  strconv.Itoa(cfg.Crawl.MaxDepth),
		Validate: validatePositiveInt,
	}
	depthStr, err := depthPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("crawl depth: %w", err)
	}
	cfg.Crawl.MaxDepth, _ = strconv.Atoi(depthStr)

	// 4. Page budget.
	pagesPrompt := promptui.Prompt{
		Label:    "Maximum pages per crawl",
		Default:  strconv.Itoa(cfg.Crawl.MaxPages),
		Validate: validatePositiveInt,
	}
	pagesStr, err := pagesPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("page budget: %w", err)
	}
	cfg.Crawl.MaxPages, _ = strconv.Atoi(pagesStr)

	// 5. Extra exclude patterns.
	excludePrompt := promptui.Prompt{
		Label:   "Extra URL exclude patterns (comma-separated globs, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	if excludeStr != "" {
		cfg.Crawl.Exclude = append(cfg.Crawl.Exclude, splitAndTrim(excludeStr)...)
	}

	// Check for API keys.
	for _, p := range []ProviderType{cfg.Provider, cfg.EmbeddingProvider} {
		envVar := APIKeyEnvVar(p)
		if envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running sitechat train.\n", envVar)
		}
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider. OpenAI embeddings are used for all cloud providers.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderOllama {
		return ProviderOllama
	}
	return ProviderOpenAI
}

// ValidateURL checks that s parses as an absolute http(s) URL. Exposed
// for CLI prompts that collect a site URL.
func ValidateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("must be an absolute http(s) URL")
	}
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
