// Package categories models the closed set of report classifications a
// deployment accepts, along with the response templates for the subset that
// receives an automated reply.
//
// The set is built once from validated configuration. Category values can only
// be obtained from a Set, so any Category in hand is known to be valid.
package categories

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// Sanitize converts a human category name into its stored label: every rune
// that is not a letter, digit or underscore becomes an underscore, a leading
// digit gains an underscore prefix, and the result is upper-cased.
//
//	Sanitize("Functional Bugs or Glitches") == "FUNCTIONAL_BUGS_OR_GLITCHES"
func Sanitize(name string) string {
	s := nonWord.ReplaceAllString(name, "_")
	if r, _ := utf8.DecodeRuneInString(s); unicode.IsDigit(r) {
		s = "_" + s
	}
	return strings.TrimSpace(strings.ToUpper(s))
}

// Category is one member of a Set.
type Category struct {
	label string
}

// String returns the sanitized label, the form persisted in storage.
func (c Category) String() string {
	return c.label
}

// Response pairs a category name with the reply template posted for it.
type Response struct {
	Name     string `toml:"name"`
	Template string `toml:"response"`
}

// Set is the validated, immutable category configuration.
type Set struct {
	valid     []Category
	index     map[string]Category
	fallback  Category
	responses map[Category]string
	ordered   []Category
}

// New validates the category configuration and builds a Set.
// The valid list must be non-empty, the default and every response name must
// be members of it, and every response must carry both a name and a template.
// Two different names that sanitize to the same label are rejected.
func New(valid []string, defaultName string, responses []Response) (*Set, error) {
	if len(valid) == 0 {
		return nil, ErrNoCategories
	}

	s := &Set{
		index:     make(map[string]Category, len(valid)),
		responses: make(map[Category]string, len(responses)),
	}
	names := make(map[string]string, len(valid))

	for _, name := range valid {
		label := Sanitize(name)
		if label == "" {
			return nil, fmt.Errorf("%w: empty category name", ErrInvalidCategory)
		}
		if prev, exists := names[label]; exists {
			if prev == name {
				continue
			}
			return nil, fmt.Errorf("%w: %q and %q both map to %s", ErrDuplicateCategory, prev, name, label)
		}
		names[label] = name
		c := Category{label: label}
		s.index[label] = c
		s.valid = append(s.valid, c)
	}

	fallback, ok := s.index[Sanitize(defaultName)]
	if !ok {
		return nil, fmt.Errorf("%w: default %q is not a valid category", ErrInvalidCategory, defaultName)
	}
	s.fallback = fallback

	for i, r := range responses {
		if r.Name == "" || r.Template == "" {
			return nil, fmt.Errorf("%w: response %d", ErrIncompleteResponse, i)
		}
		c, ok := s.index[Sanitize(r.Name)]
		if !ok {
			return nil, fmt.Errorf("%w: response category %q is not a valid category", ErrInvalidCategory, r.Name)
		}
		if _, exists := s.responses[c]; !exists {
			s.ordered = append(s.ordered, c)
		}
		s.responses[c] = r.Template
	}

	return s, nil
}

// Lookup resolves a stored label to its Category.
func (s *Set) Lookup(label string) (Category, bool) {
	c, ok := s.index[label]
	return c, ok
}

// Parse resolves a model-produced label to a Category. The label is trimmed,
// spaces become underscores and the result is upper-cased. Other punctuation
// is kept, so "Valid-Bug" does not match VALID_BUG.
func (s *Set) Parse(text string) (Category, bool) {
	return s.Lookup(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(text), " ", "_")))
}

// Default returns the category substituted for unrecognized labels.
func (s *Set) Default() Category {
	return s.fallback
}

// Valid returns every category in configuration order.
func (s *Set) Valid() []Category {
	return append([]Category(nil), s.valid...)
}

// Response returns the reply template configured for c.
func (s *Set) Response(c Category) (string, bool) {
	t, ok := s.responses[c]
	return t, ok
}

// ResponseCategories returns the categories that receive an automated reply,
// in configuration order.
func (s *Set) ResponseCategories() []Category {
	return append([]Category(nil), s.ordered...)
}

// Labels returns the stored labels of cs.
func Labels(cs []Category) []string {
	labels := make([]string, len(cs))
	for i, c := range cs {
		labels[i] = c.label
	}
	return labels
}
