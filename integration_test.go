package pagetl_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/cache"
	"github.com/ZaguanLabs/pagetl/processor"
	"github.com/ZaguanLabs/pagetl/provider"
)

// Integration tests using all real components

func parse(t *testing.T, html string) *processor.HTMLDocument {
	t.Helper()
	doc, err := processor.NewHTMLDocument(html)
	if err != nil {
		t.Fatalf("NewHTMLDocument failed: %v", err)
	}
	return doc
}

func body(t *testing.T, doc *processor.HTMLDocument) string {
	t.Helper()
	out, err := doc.RenderBody()
	if err != nil {
		t.Fatalf("RenderBody failed: %v", err)
	}
	return out
}

func TestIntegration_BasicTranslation(t *testing.T) {
	p := provider.NewMockProvider()
	pipeline := pagetl.NewPipeline(p, pagetl.WithCache(cache.NewStore(cache.NewMemoryKV())))

	doc := parse(t, `<div><h1>Hello World</h1><p>Welcome to our site.</p></div>`)
	result := pipeline.Run(context.Background(), "https://example.com/", doc)

	if !result.OK() {
		t.Fatalf("Run failed: %v", result.Err)
	}
	if got := body(t, doc); got != "<div><h1>你好，世界</h1><p>欢迎访问我们的网站。</p></div>" {
		t.Errorf("unexpected body: %s", got)
	}
	if result.Applied != 2 || result.FromCache {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestIntegration_CacheHitAcrossRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	html := `<p>Hello</p><p>World</p>`

	kv, err := cache.OpenSQLiteKV(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLiteKV failed: %v", err)
	}
	first := provider.NewMockProvider()
	result := pagetl.NewPipeline(first, pagetl.WithCache(cache.NewStore(kv))).
		Run(context.Background(), "https://example.com/blog/post-1", parse(t, html))
	kv.Close()

	if !result.OK() || first.Calls() != 1 {
		t.Fatalf("first run: %+v, calls %d", result, first.Calls())
	}

	kv, err = cache.OpenSQLiteKV(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer kv.Close()

	second := provider.NewMockProvider()
	doc := parse(t, html)
	result = pagetl.NewPipeline(second, pagetl.WithCache(cache.NewStore(kv))).
		Run(context.Background(), "https://example.com/blog/post-1?utm_source=feed", doc)

	if !result.FromCache || second.Calls() != 0 {
		t.Errorf("expected a cache hit without dispatch, got %+v, calls %d", result, second.Calls())
	}
	if got := body(t, doc); got != "<p>你好</p><p>世界</p>" {
		t.Errorf("unexpected body: %s", got)
	}
}

func TestIntegration_FuzzyHitOnFileBackend(t *testing.T) {
	kv, err := cache.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	p := provider.NewMockProvider()
	pipeline := pagetl.NewPipeline(p, pagetl.WithCache(cache.NewStore(kv)))

	pipeline.Run(context.Background(), "https://news.example.com/articles/2024/10/18", parse(t, `<p>Hello</p>`))
	result := pipeline.Run(context.Background(), "https://news.example.com/articles/2024/10/19", parse(t, `<p>Hello</p>`))

	if !result.FromCache || result.Score >= 1 {
		t.Errorf("expected a fuzzy hit, got %+v", result)
	}
	if p.Calls() != 1 {
		t.Errorf("expected 1 dispatch, got %d", p.Calls())
	}
}

func TestIntegration_ExpiredEntryDispatchesAgain(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	store := cache.NewStore(cache.NewMemoryKV(), cache.WithClock(func() time.Time { return now }))

	cfg := pagetl.DefaultConfig()
	cfg.TTL = time.Hour
	p := provider.NewMockProvider()
	pipeline := pagetl.NewPipeline(p, pagetl.WithCache(store), pagetl.WithConfig(cfg))

	pipeline.Run(context.Background(), "https://example.com/", parse(t, `<p>Hello</p>`))
	now = now.Add(2 * time.Hour)
	result := pipeline.Run(context.Background(), "https://example.com/", parse(t, `<p>Hello</p>`))

	if result.FromCache || p.Calls() != 2 {
		t.Errorf("expired entry should not be served: %+v, calls %d", result, p.Calls())
	}
	if store.Stats().Count != 1 {
		t.Errorf("expected the refreshed entry only, got %d", store.Stats().Count)
	}
}

func TestIntegration_FilteredContent(t *testing.T) {
	p := provider.NewMockProvider()
	doc := parse(t, `<div>
		<p>Hello</p>
		<p translate="no">World</p>
		<code>World</code>
		<p style="display:none">World</p>
		<p>2024</p>
	</div>`)

	result := pagetl.NewPipeline(p).Run(context.Background(), "https://example.com/", doc)

	if result.Total != 1 || result.Applied != 1 {
		t.Errorf("expected a single fragment, got %+v", result)
	}
	if strings.Contains(p.LastRequest.Batch, "World") || strings.Contains(p.LastRequest.Batch, "2024") {
		t.Errorf("filtered text was sent: %q", p.LastRequest.Batch)
	}
}

func TestIntegration_EmptyPage(t *testing.T) {
	p := provider.NewMockProvider()
	result := pagetl.NewPipeline(p).Run(context.Background(), "https://example.com/", parse(t, `<div>  </div>`))

	var noContent *pagetl.NoContentError
	if !errors.As(result.Err, &noContent) {
		t.Errorf("expected NoContentError, got %v", result.Err)
	}
	if p.Calls() != 0 {
		t.Error("provider called for an empty page")
	}
}

func TestIntegration_RTLLanguage(t *testing.T) {
	doc := parse(t, `<html><body><p>Hello</p></body></html>`)
	pipeline := pagetl.NewPipeline(provider.NewMockProvider(), pagetl.WithTargetLang("ar_SA"))

	if result := pipeline.Run(context.Background(), "https://example.com/", doc); !result.OK() {
		t.Fatalf("Run failed: %v", result.Err)
	}
	doc.SetLang(pipeline.TargetLang())

	out, _ := doc.Render()
	if !strings.Contains(out, `dir="rtl"`) || !strings.Contains(out, `lang="ar-SA"`) {
		t.Errorf("expected rtl attributes, got: %s", out)
	}
}

func TestIntegration_WhitespacePreserved(t *testing.T) {
	doc := parse(t, "<p>\n  Hello  \n</p>")
	pagetl.NewPipeline(provider.NewMockProvider()).Run(context.Background(), "https://example.com/", doc)

	if got := body(t, doc); got != "<p>\n  你好  \n</p>" {
		t.Errorf("whitespace not preserved: %q", got)
	}
}

type flakyProvider struct {
	inner *provider.MockProvider
	fails int
	calls int
}

func (p *flakyProvider) Translate(ctx context.Context, req pagetl.TranslateRequest) (string, error) {
	p.calls++
	if p.calls <= p.fails {
		return "", &pagetl.ProviderError{Message: "overloaded", Retryable: true}
	}
	return p.inner.Translate(ctx, req)
}

func TestIntegration_RetryableProvider(t *testing.T) {
	flaky := &flakyProvider{inner: provider.NewMockProvider(), fails: 2}
	retrying := pagetl.NewRetryableProvider(flaky, pagetl.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	})

	doc := parse(t, `<p>Hello</p>`)
	result := pagetl.NewPipeline(retrying).Run(context.Background(), "https://example.com/", doc)

	if !result.OK() || flaky.calls != 3 {
		t.Errorf("expected success on the third call, got %+v after %d calls", result, flaky.calls)
	}
}

func TestIntegration_ProviderFailureLeavesPageUntouched(t *testing.T) {
	p := provider.NewMockProvider()
	p.Err = &pagetl.ProviderError{Message: "invalid API key"}
	store := cache.NewStore(cache.NewMemoryKV())

	doc := parse(t, `<p>Hello</p>`)
	result := pagetl.NewPipeline(p, pagetl.WithCache(store)).Run(context.Background(), "https://example.com/", doc)

	var dispatchErr *pagetl.DispatchError
	if !errors.As(result.Err, &dispatchErr) {
		t.Errorf("expected DispatchError, got %v", result.Err)
	}
	if got := body(t, doc); got != "<p>Hello</p>" {
		t.Errorf("page modified on failure: %s", got)
	}
	if store.Stats().Count != 0 {
		t.Error("failure should not be cached")
	}
}
