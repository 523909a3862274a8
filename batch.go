package pagetl

import (
	"regexp"
	"strings"
)

// BatchHeader is the first line of every encoded batch.
const BatchHeader = "id,text"

var (
	batchLineRE = regexp.MustCompile(`^([^,]+),"(.*)"$`)
	lineBreakRE = regexp.MustCompile(`[\r\n]+`)
	lineSplitRE = regexp.MustCompile(`\r?\n|\r`)
	fenceOpenRE = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n")
	fenceEndRE  = regexp.MustCompile("\r?\n?```[ \t]*$")
)

// EncodeBatch serializes fragments into a batch record: the header line,
// then one `id,"text"` line per fragment. Embedded quotes are doubled and
// line breaks collapse to a single space, so every fragment stays on one
// line. Each line, the last included, ends with a newline.
func EncodeBatch(fragments []Fragment) string {
	var b strings.Builder
	b.WriteString(BatchHeader)
	b.WriteByte('\n')

	for _, f := range fragments {
		text := lineBreakRE.ReplaceAllString(f.Text, " ")
		text = strings.ReplaceAll(text, `"`, `""`)

		b.WriteString(f.ID)
		b.WriteString(`,"`)
		b.WriteString(text)
		b.WriteString("\"\n")
	}

	return b.String()
}

// DecodeBatch parses a batch record returned by the translation service.
// A surrounding Markdown code fence is removed first. Blank lines, the
// header and any line that is not of the form `id,"text"` are skipped;
// DecodeBatch never fails.
func DecodeBatch(record string) []Fragment {
	record = StripCodeFence(record)

	var out []Fragment
	for _, line := range lineSplitRE.Split(record, -1) {
		line = strings.TrimSpace(line)
		if line == "" || line == BatchHeader {
			continue
		}

		m := batchLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		out = append(out, Fragment{
			ID:   strings.TrimSpace(m[1]),
			Text: strings.ReplaceAll(m[2], `""`, `"`),
		})
	}

	return out
}

// ApplyBatch writes each decoded fragment into the target its id resolves
// to in sink. Unknown ids are ignored. It returns the number of targets
// written.
func ApplyBatch(decoded []Fragment, sink Sink) int {
	applied := 0
	for _, f := range decoded {
		target, ok := sink.Resolve(f.ID)
		if !ok || target == nil {
			continue
		}
		target.SetText(f.Text)
		applied++
	}
	return applied
}

// StripCodeFence removes a Markdown code fence wrapping s, as language
// models often return (```csv ... ```). Text without a fence is returned
// trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	if loc := fenceOpenRE.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
	} else {
		// A fence with the body on the same line.
		s = strings.TrimLeft(strings.TrimPrefix(s, "```"), " \t")
	}
	s = fenceEndRE.ReplaceAllString(s, "")

	return strings.TrimSpace(s)
}
