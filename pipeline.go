package pagetl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a step of the pipeline state machine.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateEncoding
	StateCacheLookup
	StateCacheHit
	StateCacheMiss
	StateDispatching
	StateDecoding
	StateApplying
	StateStoring
	StateError
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateExtracting:  "extracting",
	StateEncoding:    "encoding",
	StateCacheLookup: "cache_lookup",
	StateCacheHit:    "cache_hit",
	StateCacheMiss:   "cache_miss",
	StateDispatching: "dispatching",
	StateDecoding:    "decoding",
	StateApplying:    "applying",
	StateStoring:     "storing",
	StateError:       "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Pipeline runs one page translation at a time: extract, encode, consult
// the cache, dispatch on a miss, decode, apply and store. A cache hit never
// calls the provider.
type Pipeline struct {
	provider      AIProvider
	cache         PageCache
	cfg           Config
	log           *slog.Logger
	targetLang    string
	sourceLang    string
	context       string
	glossary      map[string]string
	style         TranslationStyle
	excludedTerms []string

	mu    sync.Mutex
	state State
	last  RunResult
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithCache sets the page cache. Without one every run dispatches.
func WithCache(c PageCache) PipelineOption {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) PipelineOption {
	return func(p *Pipeline) {
		p.cfg = cfg
	}
}

// WithLogger sets the logger. Runs log with run_id and url attributes.
func WithLogger(log *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithTargetLang sets the target language.
func WithTargetLang(lang string) PipelineOption {
	return func(p *Pipeline) {
		p.targetLang = lang
	}
}

// WithSourceLang sets the source language.
func WithSourceLang(lang string) PipelineOption {
	return func(p *Pipeline) {
		p.sourceLang = lang
	}
}

// WithContext sets the global translation context.
func WithContext(ctx string) PipelineOption {
	return func(p *Pipeline) {
		p.context = ctx
	}
}

// WithGlossary sets preferred translations for specific phrases.
func WithGlossary(glossary map[string]string) PipelineOption {
	return func(p *Pipeline) {
		p.glossary = glossary
	}
}

// WithStyle sets the translation style/register.
func WithStyle(style TranslationStyle) PipelineOption {
	return func(p *Pipeline) {
		p.style = style
	}
}

// WithExcludedTerms sets terms that should not be translated.
func WithExcludedTerms(terms []string) PipelineOption {
	return func(p *Pipeline) {
		p.excludedTerms = terms
	}
}

// NewPipeline creates a Pipeline dispatching to provider. The target
// language defaults to DefaultTargetLang.
func NewPipeline(provider AIProvider, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		provider:   provider,
		cfg:        DefaultConfig(),
		log:        slog.Default(),
		targetLang: DefaultTargetLang,
		sourceLang: "en",
		style:      StyleNeutral,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// TargetLang returns the target language.
func (p *Pipeline) TargetLang() string {
	return p.targetLang
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastResult returns the result of the most recent completed run. Rejected
// calls do not replace it.
func (p *Pipeline) LastResult() RunResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Run translates doc, the page at rawURL, and writes the translations into
// it. A call made while another run is in progress is rejected at once.
// Every run ends with exactly one terminal status and leaves the pipeline
// idle.
func (p *Pipeline) Run(ctx context.Context, rawURL string, doc Document) RunResult {
	start := time.Now()
	res := RunResult{RunID: uuid.NewString(), URL: rawURL}

	if !p.begin() {
		res.Status = StatusRejected
		res.Message = "Translation already in progress"
		return res
	}

	log := p.log.With("run_id", res.RunID, "url", rawURL)
	log.Debug("State transition", "from", StateIdle, "to", StateExtracting)

	res = p.run(ctx, log, doc, res)
	res.Elapsed = time.Since(start)

	if res.Status == StatusFailed {
		log.Warn("Translation failed", "err", res.Err)
	} else {
		log.Info("Translation applied",
			"applied", res.Applied,
			"total", res.Total,
			"from_cache", res.FromCache,
			"elapsed", res.Elapsed)
	}

	p.mu.Lock()
	p.state = StateIdle
	p.last = res
	p.mu.Unlock()

	return res
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, doc Document, res RunResult) RunResult {
	fail := func(err error) RunResult {
		p.transition(log, StateError)
		res.Status = StatusFailed
		res.Err = err
		res.Message = err.Error()
		return res
	}

	if err := p.cfg.Validate(); err != nil {
		return fail(err)
	}

	fragments, err := doc.Extract()
	if err != nil {
		return fail(err)
	}
	if len(fragments) == 0 {
		return fail(&NoContentError{URL: res.URL})
	}
	res.Total = len(fragments)

	p.transition(log, StateEncoding)
	batch := EncodeBatch(fragments)

	useCache := p.cfg.CacheEnabled && p.cache != nil
	if useCache {
		p.transition(log, StateCacheLookup)

		if match, ok := p.cache.Lookup(res.URL, p.cfg.TTL, p.cfg.SimilarityThreshold); ok {
			p.transition(log, StateCacheHit)
			log.Debug("Cache hit", "key", match.Key, "cached_url", match.SourceURL, "score", match.Score)

			p.transition(log, StateApplying)
			res.Applied = ApplyBatch(DecodeBatch(string(match.Payload)), doc)
			res.FromCache = true
			res.Score = match.Score
			res.Status = StatusSuccess
			res.Message = fmt.Sprintf("Applied %d of %d translations from cache", res.Applied, res.Total)
			return res
		}

		p.transition(log, StateCacheMiss)
	}

	p.transition(log, StateDispatching)
	response, err := p.dispatch(ctx, TranslateRequest{
		Batch:         batch,
		TargetLang:    p.targetLang,
		SourceLang:    p.sourceLang,
		ExcludedTerms: p.excludedTerms,
		Context:       p.context,
		Glossary:      p.glossary,
		Style:         p.style,
	})
	if err != nil {
		return fail(&DispatchError{Cause: err})
	}

	p.transition(log, StateDecoding)
	record := StripCodeFence(response)
	if record == "" {
		return fail(&MalformedResponseError{Response: response})
	}
	decoded := DecodeBatch(record)

	p.transition(log, StateApplying)
	res.Applied = ApplyBatch(decoded, doc)
	res.Status = StatusSuccess

	if res.Applied == 0 {
		res.Message = "No translations matched the page"
		return res
	}
	res.Message = fmt.Sprintf("Translated %d of %d fragments", res.Applied, res.Total)

	if useCache {
		p.transition(log, StateStoring)
		if err := p.cache.Put(res.URL, []byte(record), p.cfg.MaxTotalBytes); err != nil {
			log.Warn("Failed to store translation",
				"err", &CacheError{Message: "storing page", Cause: err})
		}
	}

	return res
}

// dispatch calls the provider once, bounded by the dispatch timeout even if
// the provider ignores its context.
func (p *Pipeline) dispatch(ctx context.Context, req TranslateRequest) (string, error) {
	if p.provider == nil {
		return "", errors.New("no provider configured")
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.DispatchTimeout)
	defer cancel()

	type reply struct {
		text string
		err  error
	}
	done := make(chan reply, 1)

	go func() {
		text, err := p.provider.Translate(ctx, req)
		done <- reply{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("translation call: %w", ctx.Err())
	}
}

func (p *Pipeline) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return false
	}
	p.state = StateExtracting
	return true
}

func (p *Pipeline) transition(log *slog.Logger, to State) {
	p.mu.Lock()
	from := p.state
	p.state = to
	p.mu.Unlock()

	log.Debug("State transition", "from", from, "to", to)
}
