// Package content screens user supplied event text for disallowed language
// and strips markup before it is stored.
package content

import (
	"html"
	"strings"

	goaway "github.com/TwiN/go-away"
	"github.com/microcosm-cc/bluemonday"
)

// Classifier decides whether a piece of text contains disallowed language.
type Classifier interface {
	IsProfane(text string) bool
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(text string) bool

// IsProfane implements Classifier.
func (f ClassifierFunc) IsProfane(text string) bool {
	return f(text)
}

// campusFalsePositives are substrings of ordinary event wording that would
// otherwise match the default word list.
var campusFalsePositives = []string{
	"assembl", // assembly, assemble
	"assess",
	"dickens",
	"hancock",
}

// NewDetector returns the word-list classifier used in production. Words are
// matched within their own token; spaces are not collapsed, so "hit practice"
// is never read as one word.
func NewDetector() Classifier {
	falsePositives := make([]string, 0, len(goaway.DefaultFalsePositives)+len(campusFalsePositives))
	falsePositives = append(falsePositives, goaway.DefaultFalsePositives...)
	falsePositives = append(falsePositives, campusFalsePositives...)

	return goaway.NewProfanityDetector().
		WithSanitizeSpaces(false).
		WithCustomDictionary(goaway.DefaultProfanities, falsePositives, goaway.DefaultFalseNegatives)
}

// Field names screened on create and update.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldLocation    = "location"
)

// Policy applies a Classifier to each screened field independently.
type Policy struct {
	classifier Classifier
}

// NewPolicy returns a Policy backed by classifier. A nil classifier uses NewDetector.
func NewPolicy(classifier Classifier) *Policy {
	if classifier == nil {
		classifier = NewDetector()
	}
	return &Policy{classifier: classifier}
}

// IsProfane reports whether text is flagged. Blank text never is.
func (p *Policy) IsProfane(text string) bool {
	if p == nil || strings.TrimSpace(text) == "" {
		return false
	}
	return p.classifier.IsProfane(text)
}

// Screen checks every field and returns the names of those flagged, in the
// order given. A nil result means all fields passed.
func (p *Policy) Screen(fields ...Field) []string {
	var flagged []string
	for _, field := range fields {
		if p.IsProfane(field.Value) {
			flagged = append(flagged, field.Name)
		}
	}
	return flagged
}

// Field pairs a field name with the text to screen.
type Field struct {
	Name  string
	Value string
}

// Sanitizer removes markup from free text.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns a Sanitizer that allows no elements at all.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

const maxSanitizePasses = 8

// Text strips tags from value and trims surrounding whitespace. The policy
// output is entity decoded so plain text round trips, and the decoded text is
// sanitized again until it stops changing: "&lt;b&gt;" must not come back as
// a live tag.
func (s *Sanitizer) Text(value string) string {
	if s == nil || s.policy == nil {
		return strings.TrimSpace(value)
	}
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(value))
		if next == value {
			return strings.TrimSpace(value)
		}
		value = next
	}
	// Still unwinding nested encodings; drop the brackets outright.
	return strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(value))
}
