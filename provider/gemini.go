package provider

import "os"

const (
	// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	// DefaultGeminiModel is the model used when GeminiConfig.Model is empty.
	DefaultGeminiModel = "gemini-2.5-pro"
)

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
	APIKey      string  // API key (uses GEMINI_API_KEY env var if empty)
	Model       string  // Model to use (default: "gemini-2.5-pro")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Overrides GeminiBaseURL
}

// NewGeminiProvider creates a provider talking to Gemini through its
// OpenAI-compatible chat API.
func NewGeminiProvider(cfg GeminiConfig) *OpenAIProvider {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = GeminiBaseURL
	}

	return newChatProvider("Gemini", apiKey, baseURL, model, cfg.Temperature)
}
