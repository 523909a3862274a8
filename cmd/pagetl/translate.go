package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/processor"
	"github.com/ZaguanLabs/pagetl/provider"
	"github.com/spf13/cobra"
)

type translateOptions struct {
	pageURL       string
	targetLang    string
	sourceLang    string
	providerName  string
	model         string
	apiKey        string
	output        string
	contextStr    string
	exclude       []string
	glossary      map[string]string
	style         string
	ttl           time.Duration
	maxCacheBytes int64
	threshold     float64
	noCache       bool
	timeout       time.Duration
	rpm           int
	jsonOutput    bool
	dryRun        bool
	quiet         bool
}

func newTranslateCmd(a *app) *cobra.Command {
	defaults := pagetl.DefaultConfig()
	opts := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [file|url]",
		Short: "Translate an HTML page",
		Long: `Translate an HTML page read from a file, a URL or stdin.

The page URL addresses the cache: a page already translated, or one whose
URL is nearly the same, is served from the cache without calling the API.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTranslate(cmd.Context(), opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.pageURL, "url", "", "Page URL used as cache key (default: the input URL or file path)")
	f.StringVarP(&opts.targetLang, "lang", "l", pagetl.DefaultTargetLang, "Target language code (e.g., zh_CN, es_ES)")
	f.StringVar(&opts.sourceLang, "source", "en", "Source language code")
	f.StringVar(&opts.providerName, "provider", "gemini", "Translation provider: gemini, openai or mock")
	f.StringVar(&opts.model, "model", "", "Model to use (default depends on the provider)")
	f.StringVar(&opts.apiKey, "api-key", "", "API key (default: GEMINI_API_KEY or OPENAI_API_KEY env)")
	f.StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	f.StringVar(&opts.contextStr, "context", "", "Translation context (e.g., 'E-commerce website')")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "Comma-separated terms to never translate")
	f.StringToStringVar(&opts.glossary, "glossary", nil, "Preferred translations as source=target pairs")
	f.StringVar(&opts.style, "style", string(pagetl.StyleNeutral), "Register: formal, neutral, casual, marketing or technical")
	f.DurationVar(&opts.ttl, "ttl", defaults.TTL, "Cache entry lifetime (0 never expires)")
	f.Int64Var(&opts.maxCacheBytes, "max-cache-bytes", defaults.MaxTotalBytes, "Budget for all cached translations")
	f.Float64Var(&opts.threshold, "threshold", defaults.SimilarityThreshold, "Minimum URL similarity for a fuzzy cache hit")
	f.BoolVar(&opts.noCache, "no-cache", false, "Neither read nor write the cache")
	f.DurationVar(&opts.timeout, "timeout", defaults.DispatchTimeout, "Bound on one translation call")
	f.IntVar(&opts.rpm, "rpm", 0, "Maximum translation calls per minute (0 for no limit)")
	f.BoolVar(&opts.jsonOutput, "json", false, "Output result as JSON")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Print the batch that would be sent without calling the API")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress output")

	return cmd
}

func (a *app) runTranslate(ctx context.Context, opts *translateOptions, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	content, source, err := a.readInput(ctx, args)
	if err != nil {
		return err
	}

	pageURL := opts.pageURL
	if pageURL == "" {
		pageURL = source
	}

	doc, err := processor.NewHTMLDocument(content)
	if err != nil {
		return err
	}

	cfg := pagetl.DefaultConfig()
	cfg.CacheEnabled = !opts.noCache && pageURL != ""
	cfg.TTL = opts.ttl
	cfg.MaxTotalBytes = opts.maxCacheBytes
	cfg.SimilarityThreshold = opts.threshold
	cfg.DispatchTimeout = opts.timeout
	if err := cfg.Validate(); err != nil {
		return err
	}

	targetLang := pagetl.ResolveLocale(opts.targetLang)

	if opts.dryRun {
		return a.runDryRun(doc, pageURL, targetLang, cfg, opts.jsonOutput)
	}

	p, err := a.newProvider(opts)
	if err != nil {
		return err
	}

	pipelineOpts := []pagetl.PipelineOption{
		pagetl.WithConfig(cfg),
		pagetl.WithLogger(a.log),
		pagetl.WithTargetLang(targetLang),
		pagetl.WithSourceLang(pagetl.ResolveLocale(opts.sourceLang)),
		pagetl.WithStyle(pagetl.TranslationStyle(opts.style)),
	}
	if opts.contextStr != "" {
		pipelineOpts = append(pipelineOpts, pagetl.WithContext(opts.contextStr))
	}
	if len(opts.exclude) > 0 {
		pipelineOpts = append(pipelineOpts, pagetl.WithExcludedTerms(trimAll(opts.exclude)))
	}
	if len(opts.glossary) > 0 {
		pipelineOpts = append(pipelineOpts, pagetl.WithGlossary(opts.glossary))
	}

	if cfg.CacheEnabled {
		store, closeStore, err := a.openStore()
		if err != nil {
			return err
		}
		defer closeStore()
		pipelineOpts = append(pipelineOpts, pagetl.WithCache(store))
	}

	if !opts.quiet && !opts.jsonOutput {
		fmt.Fprintf(a.stderr, "Translating %s to %s...\n", displayName(source), targetLang)
	}

	result := pagetl.NewPipeline(p, pipelineOpts...).Run(ctx, pageURL, doc)
	if !result.OK() {
		return fmt.Errorf("translation failed: %w", result.Err)
	}

	doc.SetLang(targetLang)
	html, err := doc.Render()
	if err != nil {
		return err
	}

	out := a.stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if opts.jsonOutput {
		return writeJSON(out, newJSONResult(result, html))
	}

	fmt.Fprint(out, html)

	if !opts.quiet {
		fmt.Fprintf(a.stderr, "\n%s in %v\n", result.Message, result.Elapsed.Round(time.Millisecond))
		if result.FromCache {
			fmt.Fprintf(a.stderr, "  From cache:   yes (similarity %.2f)\n", result.Score)
		}
	}

	return nil
}

// readInput returns the page content and where it came from: the URL or
// the file:// URL of the file read, or "" for stdin.
func (a *app) readInput(ctx context.Context, args []string) (string, string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "", nil
	}

	arg := args[0]
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		content, err := fetchPage(ctx, arg)
		return content, arg, err
	}

	data, err := os.ReadFile(arg) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return "", "", fmt.Errorf("reading file: %w", err)
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		abs = arg
	}
	return string(data), "file://" + filepath.ToSlash(abs), nil
}

func fetchPage(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	req.Header.Set("User-Agent", pagetl.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching page: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("reading page: %w", err)
	}
	return string(data), nil
}

func (a *app) newProvider(opts *translateOptions) (pagetl.AIProvider, error) {
	var p pagetl.AIProvider

	switch opts.providerName {
	case "gemini":
		key := firstNonEmpty(opts.apiKey, os.Getenv("GEMINI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("Gemini API key required (--api-key or GEMINI_API_KEY env)")
		}
		p = provider.NewGeminiProvider(provider.GeminiConfig{APIKey: key, Model: opts.model})

	case "openai":
		key := firstNonEmpty(opts.apiKey, os.Getenv("OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("OpenAI API key required (--api-key or OPENAI_API_KEY env)")
		}
		p = provider.NewOpenAIProvider(provider.OpenAIConfig{APIKey: key, Model: opts.model})

	case "mock":
		return provider.NewMockProvider(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q (want gemini, openai or mock)", opts.providerName)
	}

	p = pagetl.NewRetryableProvider(p, pagetl.DefaultRetryConfig()).WithLogger(a.log)
	if opts.rpm > 0 {
		p = pagetl.NewRateLimitedProvider(p, pagetl.RateLimitConfig{RequestsPerMinute: opts.rpm, BurstSize: 1})
	}
	return p, nil
}

// runDryRun prints the batch that would be dispatched and whether the
// cache would answer it.
func (a *app) runDryRun(doc *processor.HTMLDocument, pageURL, targetLang string, cfg pagetl.Config, jsonOut bool) error {
	fragments, err := doc.Extract()
	if err != nil {
		return err
	}
	batch := pagetl.EncodeBatch(fragments)

	cacheState := "disabled"
	var score float64
	if cfg.CacheEnabled {
		store, closeStore, err := a.openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		match, ok, err := store.Peek(pageURL, cfg.TTL, cfg.SimilarityThreshold)
		if err != nil {
			return err
		}
		cacheState = "miss"
		if ok {
			cacheState = "hit"
			score = match.Score
		}
	}

	if jsonOut {
		type dryRunFragment struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		}
		out := struct {
			URL           string           `json:"url,omitempty"`
			TargetLang    string           `json:"target_lang"`
			FragmentCount int              `json:"fragment_count"`
			Fragments     []dryRunFragment `json:"fragments"`
			Cache         string           `json:"cache"`
			Score         float64          `json:"score,omitempty"`
			Batch         string           `json:"batch"`
		}{
			URL:           pageURL,
			TargetLang:    targetLang,
			FragmentCount: len(fragments),
			Fragments:     []dryRunFragment{},
			Cache:         cacheState,
			Score:         score,
			Batch:         batch,
		}
		for _, f := range fragments {
			out.Fragments = append(out.Fragments, dryRunFragment{ID: f.ID, Text: f.Text})
		}
		return writeJSON(a.stdout, out)
	}

	fmt.Fprintf(a.stdout, "Dry run: %s -> %s\n", displayName(pageURL), targetLang)
	fmt.Fprintf(a.stdout, "Found %d translatable fragments (cache: %s)\n\n", len(fragments), cacheState)
	fmt.Fprint(a.stdout, batch)

	return nil
}

// jsonResult is the --json output of translate.
type jsonResult struct {
	RunID     string  `json:"run_id"`
	URL       string  `json:"url,omitempty"`
	Content   string  `json:"content"`
	Applied   int     `json:"applied"`
	Total     int     `json:"total"`
	FromCache bool    `json:"from_cache"`
	Score     float64 `json:"score"`
	Message   string  `json:"message"`
	ElapsedMs int64   `json:"elapsed_ms"`
}

func newJSONResult(r pagetl.RunResult, content string) jsonResult {
	return jsonResult{
		RunID:     r.RunID,
		URL:       r.URL,
		Content:   content,
		Applied:   r.Applied,
		Total:     r.Total,
		FromCache: r.FromCache,
		Score:     r.Score,
		Message:   r.Message,
		ElapsedMs: r.Elapsed.Milliseconds(),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayName(source string) string {
	if source == "" {
		return "stdin"
	}
	return source
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func trimAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
