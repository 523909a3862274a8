package pagetl

import (
	"context"
	"time"

	"github.com/ZaguanLabs/pagetl/cache"
)

// TranslationStyle controls the tone and formality of translations.
type TranslationStyle string

const (
	// StyleFormal uses formal, professional language suitable for official documents.
	StyleFormal TranslationStyle = "formal"
	// StyleNeutral uses a neutral, professional tone suitable for general content.
	StyleNeutral TranslationStyle = "neutral"
	// StyleCasual uses casual, conversational language suitable for blogs/social media.
	StyleCasual TranslationStyle = "casual"
	// StyleMarketing uses persuasive, engaging language for promotional content.
	StyleMarketing TranslationStyle = "marketing"
	// StyleTechnical uses precise, technical language for documentation.
	StyleTechnical TranslationStyle = "technical"
)

// Fragment is one translatable text unit. ID is unique within a run.
type Fragment struct {
	ID   string
	Text string
}

// FragmentSource produces the ordered fragments of a document.
type FragmentSource interface {
	Extract() ([]Fragment, error)
}

// TextTarget receives the translated text of one fragment.
type TextTarget interface {
	SetText(text string)
}

// Sink resolves fragment ids to writable targets.
type Sink interface {
	Resolve(id string) (TextTarget, bool)
}

// Document is a fragment source that translations are applied back onto.
type Document interface {
	FragmentSource
	Sink
}

// AIProvider is the interface for translation backends. Translate sends a
// batch record and returns the service's batch record, unparsed.
type AIProvider interface {
	Translate(ctx context.Context, req TranslateRequest) (string, error)
}

// TranslateRequest contains the parameters for a translation request.
type TranslateRequest struct {
	Batch         string // Encoded batch record
	TargetLang    string
	SourceLang    string
	ExcludedTerms []string
	Context       string
	Glossary      map[string]string
	Style         TranslationStyle
}

// PageCache is the URL-addressed cache the pipeline consults.
// *cache.Store implements it.
type PageCache interface {
	Lookup(rawURL string, ttl time.Duration, threshold float64) (*cache.Match, bool)
	Put(rawURL string, payload []byte, maxTotalBytes int64) error
}

// RunStatus is the terminal status of a pipeline run.
type RunStatus string

const (
	// StatusSuccess means translations were applied (possibly zero).
	StatusSuccess RunStatus = "success"
	// StatusFailed means the run ended in the error state.
	StatusFailed RunStatus = "failed"
	// StatusRejected means another run was already active.
	StatusRejected RunStatus = "rejected"
)

// RunResult is the single terminal outcome of Pipeline.Run.
type RunResult struct {
	RunID     string
	URL       string
	Status    RunStatus
	Applied   int     // Fragments written into the document
	Total     int     // Fragments extracted
	FromCache bool    // Served from cache without dispatch
	Score     float64 // Similarity of the cache entry used (1.0 = exact)
	Message   string  // Human-readable status
	Err       error   // Cause when Status is StatusFailed
	Elapsed   time.Duration
}

// OK reports whether the run completed successfully.
func (r RunResult) OK() bool {
	return r.Status == StatusSuccess
}

var styleDescriptions = map[TranslationStyle]string{
	StyleFormal:    "Use formal, professional language suitable for official documents.",
	StyleNeutral:   "Use a neutral, professional tone suitable for general web content.",
	StyleCasual:    "Use casual, conversational language as in blogs and social media.",
	StyleMarketing: "Use persuasive, engaging language suitable for promotional content.",
	StyleTechnical: "Use precise technical language and keep terminology consistent.",
}

// GetStyleDescription returns the prompt instruction for a style. Unknown
// or empty styles fall back to StyleNeutral.
func GetStyleDescription(style TranslationStyle) string {
	if desc, ok := styleDescriptions[style]; ok {
		return desc
	}
	return styleDescriptions[StyleNeutral]
}
