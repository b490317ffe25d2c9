package extract

import (
	"fmt"
	"regexp"
	"sort"
)

// Category is a semantic column kind recognized in header rows.
type Category string

const (
	CategoryDescription Category = "description"
	CategoryQuantity    Category = "quantity"
	CategoryUnit        Category = "unit"
	CategoryRate        Category = "rate"
	CategoryAmount      Category = "amount"
	CategoryImage       Category = "image"
	CategorySerial      Category = "serial"
)

// DefaultHeaderThreshold is the number of distinct categories a row must hit to
// be taken as a header.
const DefaultHeaderThreshold = 2

// Keywords configures header detection. Patterns are case-insensitive regular
// expressions matched against each cell's normalized text.
type Keywords struct {
	Patterns  map[Category][]string
	Threshold int
}

// DefaultKeywords returns the built-in BOQ header vocabulary.
func DefaultKeywords() Keywords {
	return Keywords{
		Patterns: map[Category][]string{
			CategoryDescription: {`\bdescription\b`, `\bparticulars\b`, `\bspecifications?\b`, `\bdesc\b`},
			CategoryQuantity:    {`\bqty\b`, `\bquantit(y|ies)\b`},
			CategoryUnit:        {`\bunits?\b`, `\buom\b`},
			CategoryRate:        {`\brates?\b`, `\bprice\b`, `\bunit\s*cost\b`},
			CategoryAmount:      {`\bamount\b`, `\btotal\b`, `\bvalue\b`},
			CategoryImage:       {`\bimages?\b`, `\bphotos?\b`, `\bpictures?\b`, `\bimg\b`},
			CategorySerial:      {`\bs\.?\s*no\b`, `\bsr\.?\s*no\b`, `\bsl\.?\s*no\b`, `\bs/n\b`, `\bserial\b`, `\bitem\s*(no|#)`, `^items?$`, `^#$`},
		},
		Threshold: DefaultHeaderThreshold,
	}
}

// Merge returns k with the categories in override replacing its own.
func (k Keywords) Merge(override map[string][]string, threshold int) Keywords {
	out := Keywords{Patterns: make(map[Category][]string, len(k.Patterns)), Threshold: k.Threshold}
	for c, p := range k.Patterns {
		out.Patterns[c] = p
	}
	for c, p := range override {
		if len(p) == 0 {
			continue
		}
		out.Patterns[Category(c)] = p
	}
	if threshold > 0 {
		out.Threshold = threshold
	}
	return out
}

type categoryMatcher struct {
	category Category
	patterns []*regexp.Regexp
}

// Matcher is a compiled Keywords set. It is safe for concurrent use.
type Matcher struct {
	categories []categoryMatcher
	threshold  int
}

// NewMatcher compiles k.
func NewMatcher(k Keywords) (*Matcher, error) {
	names := make([]string, 0, len(k.Patterns))
	for c := range k.Patterns {
		names = append(names, string(c))
	}
	sort.Strings(names)

	m := &Matcher{threshold: k.Threshold}
	if m.threshold <= 0 {
		m.threshold = DefaultHeaderThreshold
	}
	for _, name := range names {
		cm := categoryMatcher{category: Category(name)}
		for _, p := range k.Patterns[Category(name)] {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("compile %s keyword %q: %w", name, p, err)
			}
			cm.patterns = append(cm.patterns, re)
		}
		m.categories = append(m.categories, cm)
	}
	return m, nil
}

// Threshold returns the number of categories required for a header.
func (m *Matcher) Threshold() int { return m.threshold }

// Classify returns the first category text matches.
func (m *Matcher) Classify(text string) (Category, bool) {
	if text == "" {
		return "", false
	}
	for _, cm := range m.categories {
		if cm.matches(text) {
			return cm.category, true
		}
	}
	return "", false
}

// Match returns the distinct categories hit anywhere in texts.
func (m *Matcher) Match(texts []string) []Category {
	var hits []Category
	for _, cm := range m.categories {
		for _, t := range texts {
			if t != "" && cm.matches(t) {
				hits = append(hits, cm.category)
				break
			}
		}
	}
	return hits
}

// IsHeader reports whether texts hit at least the threshold of categories.
func (m *Matcher) IsHeader(texts []string) bool {
	n := 0
	for _, cm := range m.categories {
		for _, t := range texts {
			if t != "" && cm.matches(t) {
				n++
				break
			}
		}
		if n >= m.threshold {
			return true
		}
	}
	return false
}

func (cm categoryMatcher) matches(text string) bool {
	for _, re := range cm.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
