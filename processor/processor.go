// Package processor turns page markup into translatable fragments and
// writes translations back into it.
package processor

import "github.com/ZaguanLabs/pagetl"

// Fragment is an alias to the main package type.
type Fragment = pagetl.Fragment

// Document is an alias to the main package interface.
type Document = pagetl.Document

// DefaultIgnoredTags contains tags whose text is never translated.
var DefaultIgnoredTags = []string{
	"script", "style", "noscript", "textarea", "code",
	"pre", "svg", "path", "kbd", "var",
}
