package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/ZaguanLabs/pagetl"
	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the model used when OpenAIConfig.Model is empty.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider implements AIProvider using an OpenAI-compatible chat API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	name        string
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // API key (uses OPENAI_API_KEY env var if empty)
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return newChatProvider("OpenAI", apiKey, cfg.BaseURL, model, cfg.Temperature)
}

func newChatProvider(name, apiKey, baseURL, model string, temperature float32) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		name:        name,
	}
}

// Model returns the model requests are sent to.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Translate sends the batch record as the user message and returns the
// first choice's content unparsed. A batch without fragment lines is
// answered locally.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if len(pagetl.DecodeBatch(req.Batch)) == 0 {
		return pagetl.BatchHeader + "\n", nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Batch},
		},
		Temperature: p.temperature,
	})
	if err != nil {
		return "", &pagetl.ProviderError{
			Message:   p.name + " API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return "", &pagetl.ProviderError{
			Message:   "no response from " + p.name,
			Retryable: true,
		}
	}

	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) buildSystemPrompt(req TranslateRequest) string {
	sourceLang := req.SourceLang
	if sourceLang == "" {
		sourceLang = "en"
	}

	targetName := pagetl.GetLanguageName(req.TargetLang)

	contextText := "The content is text taken from a web page, in page order."
	if req.Context != "" {
		contextText = fmt.Sprintf("The content is for: %s. Adapt the tone to be appropriate for this context.", req.Context)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `# Role
You are a CSV translator. You translate web page text from %s to %s with the fluency of a native speaker.

# Context
%s

# Register
%s

# Input
A CSV record with the header line "id,text" followed by one line per text: id,"text content".
Double quotes inside the text are escaped as "".

# Task
Translate every "text content" into idiomatic %s.

# Rules
1. Keep every id exactly the same, and keep one output line per input line.
2. Do NOT translate content inside HTML-like tags if any exist, but translate the text around them.
3. Do NOT translate URLs, email addresses, code or placeholders (e.g. {{name}}, {count}, %%s, $1).
4. If a text is already in %s, keep it as is.
5. Escape double quotes in the output with "".`,
		pagetl.GetLanguageName(sourceLang), targetName, contextText,
		pagetl.GetStyleDescription(req.Style), targetName, targetName)

	if hint := pagetl.GetLocaleClarification(req.TargetLang); hint != "" {
		fmt.Fprintf(&b, "\n6. %s", hint)
	}

	if len(req.Glossary) > 0 {
		b.WriteString("\n\n# Glossary\nWhen you encounter these phrases, prefer these translations (unless context demands otherwise):")
		sources := make([]string, 0, len(req.Glossary))
		for source := range req.Glossary {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		for _, source := range sources {
			fmt.Fprintf(&b, "\n- \"%s\" → %s", source, req.Glossary[source])
		}
	}

	if len(req.ExcludedTerms) > 0 {
		fmt.Fprintf(&b, "\n\n# Exclusions\nDo NOT translate the following terms. Keep them exactly as they appear in the source:\n- %s",
			strings.Join(req.ExcludedTerms, "\n- "))
	}

	b.WriteString(`

# Format
Output only the CSV: the header line id,text then one line id,"translated text" per input line.
Do NOT add explanations.`)

	return b.String()
}

func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"503",
		"502",
		"429",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Verify OpenAIProvider implements AIProvider
var _ AIProvider = (*OpenAIProvider)(nil)
