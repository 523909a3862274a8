package processor

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/pagetl"
	"golang.org/x/net/html"
)

// HTMLDocument is a parsed HTML page. Its text nodes are extracted once,
// at parse time, as fragments with ids of the form TAG_n_i: the parent tag,
// a per-tag counter and the position in the page.
type HTMLDocument struct {
	doc         *goquery.Document
	ignoredTags map[string]bool
	fragments   []pagetl.Fragment
	nodes       map[string]*html.Node
}

// HTMLOption configures an HTMLDocument.
type HTMLOption func(*HTMLDocument)

// WithIgnoredTags replaces the tags whose text is skipped.
func WithIgnoredTags(tags []string) HTMLOption {
	return func(d *HTMLDocument) {
		d.ignoredTags = tagSet(tags)
	}
}

// NewHTMLDocument parses content and extracts its translatable text.
func NewHTMLDocument(content string, opts ...HTMLOption) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, &pagetl.ProcessorError{
			Message:     "failed to parse HTML",
			Cause:       err,
			ContentType: "html",
		}
	}

	d := &HTMLDocument{
		doc:         doc,
		ignoredTags: tagSet(DefaultIgnoredTags),
		nodes:       make(map[string]*html.Node),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.extract()
	return d, nil
}

// Extract returns the fragments in document order.
func (d *HTMLDocument) Extract() ([]pagetl.Fragment, error) {
	out := make([]pagetl.Fragment, len(d.fragments))
	copy(out, d.fragments)
	return out, nil
}

// Resolve returns the text node behind a fragment id.
func (d *HTMLDocument) Resolve(id string) (pagetl.TextTarget, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, false
	}
	return &textTarget{node: n, original: n.Data}, true
}

// SetLang sets the lang and dir attributes of the <html> element.
func (d *HTMLDocument) SetLang(lang string) {
	root := d.doc.Find("html")
	if root.Length() == 0 {
		return
	}
	root.SetAttr("lang", pagetl.ToHTMLLang(lang))
	root.SetAttr("dir", pagetl.GetDirection(lang))
}

// Render serializes the whole document.
func (d *HTMLDocument) Render() (string, error) {
	out, err := d.doc.Html()
	if err != nil {
		return "", &pagetl.ProcessorError{
			Message:     "failed to serialize HTML",
			Cause:       err,
			ContentType: "html",
		}
	}
	return out, nil
}

// RenderBody serializes the contents of <body> only.
func (d *HTMLDocument) RenderBody() (string, error) {
	out, err := d.doc.Find("body").Html()
	if err != nil {
		return "", &pagetl.ProcessorError{
			Message:     "failed to serialize HTML body",
			Cause:       err,
			ContentType: "html",
		}
	}
	return out, nil
}

func (d *HTMLDocument) extract() {
	body := d.doc.Find("body")
	if body.Length() == 0 {
		return
	}

	counters := make(map[string]int)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if d.ignoredTags[strings.ToLower(n.Data)] || skipElement(n) {
				return
			}
		case html.TextNode:
			if n.Parent == nil || n.Parent.Type != html.ElementNode || !hasLetters(n.Data) {
				return
			}

			tag := strings.ToUpper(n.Parent.Data)
			id := fmt.Sprintf("%s_%d_%d", tag, counters[tag], len(d.fragments))
			counters[tag]++

			d.fragments = append(d.fragments, pagetl.Fragment{
				ID:   id,
				Text: strings.TrimSpace(n.Data),
			})
			d.nodes[id] = n
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for c := body.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
}

// textTarget writes a translation into a text node, keeping the node's
// original leading and trailing whitespace.
type textTarget struct {
	node     *html.Node
	original string
}

func (t *textTarget) SetText(text string) {
	t.node.Data = preserveWhitespace(t.original, text)
}

// skipElement reports whether an element is marked untranslatable or is
// hidden by its own attributes.
func skipElement(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "translate":
			if strings.EqualFold(strings.TrimSpace(attr.Val), "no") {
				return true
			}
		case "data-no-translate", "hidden":
			return true
		case "class":
			for _, class := range strings.Fields(attr.Val) {
				if class == "notranslate" {
					return true
				}
			}
		case "style":
			if hiddenByStyle(attr.Val) {
				return true
			}
		}
	}
	return false
}

// hiddenByStyle reports whether an inline style hides the element.
func hiddenByStyle(style string) bool {
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		val = strings.TrimSpace(strings.TrimSuffix(val, "!important"))

		switch prop {
		case "display":
			if val == "none" {
				return true
			}
		case "visibility":
			if val == "hidden" || val == "collapse" {
				return true
			}
		case "opacity":
			if f, err := strconv.ParseFloat(val, 64); err == nil && f == 0 {
				return true
			}
		}
	}
	return false
}

// hasLetters reports whether s has a rune that is neither whitespace nor a
// decimal digit.
func hasLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && !('0' <= r && r <= '9') {
			return true
		}
	}
	return false
}

// preserveWhitespace preserves the original leading/trailing whitespace.
// It trims with unicode.IsSpace, as extraction does, so non-breaking
// spaces survive the round trip.
func preserveWhitespace(original, translated string) string {
	core := strings.TrimLeftFunc(original, unicode.IsSpace)
	leading := original[:len(original)-len(core)]

	core = strings.TrimRightFunc(core, unicode.IsSpace)
	trailing := ""
	if core != "" {
		trailing = original[len(leading)+len(core):]
	}

	return leading + strings.TrimSpace(translated) + trailing
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		set[strings.ToLower(strings.TrimSpace(tag))] = true
	}
	return set
}

var _ pagetl.Document = (*HTMLDocument)(nil)
