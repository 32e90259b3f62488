package llm

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider creates a provider for the OpenRouter API.
// OpenRouter is OpenAI-compatible, so it reuses the OpenAI client.
func NewOpenRouterProvider(apiKey string, model string) *OpenAIProvider {
	p := NewOpenAIProviderWithBaseURL(apiKey, openRouterBaseURL, model)
	p.name = "openrouter"
	return p
}
