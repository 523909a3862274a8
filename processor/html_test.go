package processor

import (
	"strings"
	"testing"

	"github.com/ZaguanLabs/pagetl"
)

func mustParse(t *testing.T, content string, opts ...HTMLOption) *HTMLDocument {
	t.Helper()
	doc, err := NewHTMLDocument(content, opts...)
	if err != nil {
		t.Fatalf("NewHTMLDocument failed: %v", err)
	}
	return doc
}

func texts(fragments []Fragment) []string {
	out := make([]string, len(fragments))
	for i, f := range fragments {
		out[i] = f.Text
	}
	return out
}

func TestHTMLDocument_Extract_Basic(t *testing.T) {
	doc := mustParse(t, `<div><h1>Hello World</h1><p>Welcome to our site.</p><p>Hello World</p></div>`)

	fragments, err := doc.Extract()
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(fragments) != 3 {
		t.Fatalf("Expected 3 fragments, got %d: %v", len(fragments), fragments)
	}

	want := []Fragment{
		{ID: "H1_0_0", Text: "Hello World"},
		{ID: "P_0_1", Text: "Welcome to our site."},
		{ID: "P_1_2", Text: "Hello World"},
	}
	for i := range want {
		if fragments[i] != want[i] {
			t.Errorf("fragment %d = %+v, want %+v", i, fragments[i], want[i])
		}
	}
}

func TestHTMLDocument_Extract_IgnoredTags(t *testing.T) {
	doc := mustParse(t, `<div>
		<p>Translate me</p>
		<script>doNotTranslate();</script>
		<style>.class { color: red; }</style>
		<code>const x = 1;</code>
		<pre><span>preformatted</span></pre>
		<textarea>form input</textarea>
		<kbd>Ctrl</kbd><var>x</var>
		<svg><text>chart</text></svg>
	</div>`)

	fragments, _ := doc.Extract()
	if got := texts(fragments); len(got) != 1 || got[0] != "Translate me" {
		t.Errorf("Expected only 'Translate me', got %q", got)
	}
}

func TestHTMLDocument_Extract_NoTranslateMarkers(t *testing.T) {
	doc := mustParse(t, `<div>
		<p translate="no">Brand</p>
		<div class="footer notranslate"><span>Keep this</span></div>
		<p data-no-translate>Keep that</p>
		<p>Translate this</p>
	</div>`)

	fragments, _ := doc.Extract()
	if got := texts(fragments); len(got) != 1 || got[0] != "Translate this" {
		t.Errorf("Expected only 'Translate this', got %q", got)
	}
}

func TestHTMLDocument_Extract_Hidden(t *testing.T) {
	doc := mustParse(t, `<div>
		<p hidden>Hidden attribute</p>
		<div style="display: none"><p>Display none</p></div>
		<p style="color:red; visibility:hidden !important">Invisible</p>
		<p style="opacity: 0.0">Transparent</p>
		<p style="opacity: 0.5">Faded</p>
	</div>`)

	fragments, _ := doc.Extract()
	if got := texts(fragments); len(got) != 1 || got[0] != "Faded" {
		t.Errorf("Expected only 'Faded', got %q", got)
	}
}

func TestHTMLDocument_Extract_SkipsDigitsAndWhitespace(t *testing.T) {
	doc := mustParse(t, "<ul><li>  </li><li>2024</li><li> 42 \n 7 </li><li>Page 2</li><li>1.5</li></ul>")

	fragments, _ := doc.Extract()
	got := texts(fragments)
	if len(got) != 2 || got[0] != "Page 2" || got[1] != "1.5" {
		t.Errorf("Expected [Page 2 1.5], got %q", got)
	}
}

func TestHTMLDocument_Extract_BodyOnly(t *testing.T) {
	doc := mustParse(t, `<html><head><title>Title</title></head><body>Direct text<p>Para</p></body></html>`)

	fragments, _ := doc.Extract()
	if len(fragments) != 2 {
		t.Fatalf("Expected 2 fragments, got %v", fragments)
	}
	if fragments[0].ID != "BODY_0_0" {
		t.Errorf("Expected BODY_0_0, got %q", fragments[0].ID)
	}
}

func TestHTMLDocument_WithIgnoredTags(t *testing.T) {
	doc := mustParse(t, `<div><code>let x</code><nav>Menu</nav><p>Text</p></div>`, WithIgnoredTags([]string{"NAV"}))

	fragments, _ := doc.Extract()
	got := texts(fragments)
	if len(got) != 2 || got[0] != "let x" || got[1] != "Text" {
		t.Errorf("Expected [let x Text], got %q", got)
	}
}

func TestHTMLDocument_ApplyBatch(t *testing.T) {
	doc := mustParse(t, `<div><h1>Hello</h1><p>World</p></div>`)

	applied := pagetl.ApplyBatch(pagetl.DecodeBatch("id,text\nH1_0_0,\"你好\"\nP_0_1,\"世界\"\nX_9_9,\"skip\"\n"), doc)
	if applied != 2 {
		t.Errorf("Expected 2 applied, got %d", applied)
	}

	body, err := doc.RenderBody()
	if err != nil {
		t.Fatalf("RenderBody failed: %v", err)
	}
	if body != "<div><h1>你好</h1><p>世界</p></div>" {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestHTMLDocument_PreservesWhitespace(t *testing.T) {
	doc := mustParse(t, "<p>\n    Hello World  \n</p>")

	fragments, _ := doc.Extract()
	if fragments[0].Text != "Hello World" {
		t.Fatalf("Expected trimmed text, got %q", fragments[0].Text)
	}

	target, ok := doc.Resolve(fragments[0].ID)
	if !ok {
		t.Fatal("Resolve failed")
	}
	target.SetText("Hola Mundo")

	body, _ := doc.RenderBody()
	if body != "<p>\n    Hola Mundo  \n</p>" {
		t.Errorf("whitespace not preserved: %q", body)
	}
}

func TestHTMLDocument_PreservesNonBreakingSpace(t *testing.T) {
	doc := mustParse(t, "<p>&nbsp;Hello World&nbsp;</p>")

	fragments, _ := doc.Extract()
	if fragments[0].Text != "Hello World" {
		t.Fatalf("Expected trimmed text, got %q", fragments[0].Text)
	}

	target, _ := doc.Resolve(fragments[0].ID)
	target.SetText("Hola Mundo")

	body, _ := doc.RenderBody()
	if body != "<p>\u00a0Hola Mundo\u00a0</p>" {
		t.Errorf("non-breaking spaces not preserved: %q", body)
	}
}

func TestHTMLDocument_EscapesOnRender(t *testing.T) {
	doc := mustParse(t, `<p>Fish &amp; chips</p>`)

	fragments, _ := doc.Extract()
	if fragments[0].Text != "Fish & chips" {
		t.Fatalf("Expected decoded text, got %q", fragments[0].Text)
	}

	target, _ := doc.Resolve(fragments[0].ID)
	target.SetText("<b>Fisch</b> & Pommes")

	body, _ := doc.RenderBody()
	if body != "<p>&lt;b&gt;Fisch&lt;/b&gt; &amp; Pommes</p>" {
		t.Errorf("translation not escaped: %s", body)
	}
}

func TestHTMLDocument_SetLang(t *testing.T) {
	doc := mustParse(t, `<html><body><p>Hello</p></body></html>`)
	doc.SetLang("ar_SA")

	out, err := doc.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, `lang="ar-SA"`) || !strings.Contains(out, `dir="rtl"`) {
		t.Errorf("lang/dir not set: %s", out)
	}
}

func TestHTMLDocument_ResolveUnknown(t *testing.T) {
	doc := mustParse(t, `<p>Hello</p>`)

	if _, ok := doc.Resolve("P_5_5"); ok {
		t.Error("unknown id should not resolve")
	}
}

func TestHTMLDocument_Empty(t *testing.T) {
	for _, content := range []string{"", "   \n\t  ", "<div></div>"} {
		doc := mustParse(t, content)
		fragments, err := doc.Extract()
		if err != nil {
			t.Fatalf("Extract(%q) failed: %v", content, err)
		}
		if len(fragments) != 0 {
			t.Errorf("Extract(%q) = %v, want none", content, fragments)
		}
	}
}

func TestPreserveWhitespace(t *testing.T) {
	tests := []struct {
		original   string
		translated string
		expected   string
	}{
		{"Hello", "Hola", "Hola"},
		{"  Hello  ", "Hola", "  Hola  "},
		{"\n\tHello\n", " Hola ", "\n\tHola\n"},
		{"Hello ", "Hola", "Hola "},
		{"\u00a0Hello\u00a0", "Hola", "\u00a0Hola\u00a0"},
		{" \u3000Hello", "Hola", " \u3000Hola"},
	}

	for _, tt := range tests {
		if got := preserveWhitespace(tt.original, tt.translated); got != tt.expected {
			t.Errorf("preserveWhitespace(%q, %q) = %q, want %q", tt.original, tt.translated, got, tt.expected)
		}
	}
}

func TestHiddenByStyle(t *testing.T) {
	tests := []struct {
		style  string
		hidden bool
	}{
		{"display:none", true},
		{"DISPLAY: NONE;", true},
		{"display: block", false},
		{"visibility: collapse", true},
		{"opacity:0", true},
		{"opacity: 0.01", false},
		{"opacity: inherit", false},
		{"color: red", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := hiddenByStyle(tt.style); got != tt.hidden {
			t.Errorf("hiddenByStyle(%q) = %v, want %v", tt.style, got, tt.hidden)
		}
	}
}
