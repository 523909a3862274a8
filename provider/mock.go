package provider

import (
	"context"
	"sync"

	"github.com/ZaguanLabs/pagetl"
)

// MockProvider is a mock AI provider for testing. It decodes the batch,
// translates each text through Translations and answers with a batch.
type MockProvider struct {
	Translations map[string]string // Map of source text to translation
	CallCount    int               // Number of times Translate was called
	LastRequest  *TranslateRequest // Last request received
	Err          error             // Returned instead of a response when set

	mu sync.Mutex
}

// NewMockProvider creates a new mock provider with default translations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{
			"Hello":                "你好",
			"World":                "世界",
			"Hello World":          "你好，世界",
			"Welcome to our site.": "欢迎访问我们的网站。",
		},
	}
}

// Translate returns mock translations. Unknown text comes back in brackets.
func (m *MockProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastRequest = &req
	if m.Err != nil {
		return "", m.Err
	}

	decoded := pagetl.DecodeBatch(req.Batch)
	out := make([]pagetl.Fragment, len(decoded))
	for i, f := range decoded {
		text, ok := m.Translations[f.Text]
		if !ok {
			text = "[" + f.Text + "]"
		}
		out[i] = pagetl.Fragment{ID: f.ID, Text: text}
	}

	return pagetl.EncodeBatch(out), nil
}

// Calls returns CallCount under the lock.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Reset resets the call count and last request.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.LastRequest = nil
}

// Verify MockProvider implements AIProvider
var _ AIProvider = (*MockProvider)(nil)
