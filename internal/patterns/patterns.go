package patterns

import (
	"strings"

	"github.com/saitarunaditya/truthguard/internal/types"
)

// Pattern is one credibility rule: a case-insensitive trigger phrase, a
// signed score adjustment applied per match, and the category it counts
// toward.
type Pattern struct {
	Trigger  string
	Weight   int
	Category string
}

// Table is the precompiled, immutable pattern set. Triggers are lowercased
// once at build time so scoring never re-normalizes them.
type Table struct {
	patterns []Pattern
}

// builtin is the fixed rule set. Loaded once at startup, never mutated.
var builtin = []Pattern{
	// Sensationalism
	{Trigger: "shocking", Weight: -15, Category: types.CategorySensationalism},
	{Trigger: "you won't believe", Weight: -20, Category: types.CategorySensationalism},
	{Trigger: "unbelievable", Weight: -10, Category: types.CategorySensationalism},
	{Trigger: "mind-blowing", Weight: -15, Category: types.CategorySensationalism},
	{Trigger: "jaw-dropping", Weight: -15, Category: types.CategorySensationalism},
	{Trigger: "bombshell", Weight: -12, Category: types.CategorySensationalism},
	{Trigger: "destroyed", Weight: -8, Category: types.CategorySensationalism},
	{Trigger: "slams", Weight: -8, Category: types.CategorySensationalism},

	// Clickbait
	{Trigger: "click here", Weight: -20, Category: types.CategoryClickbait},
	{Trigger: "doctors hate", Weight: -25, Category: types.CategoryClickbait},
	{Trigger: "one weird trick", Weight: -25, Category: types.CategoryClickbait},
	{Trigger: "number 7 will", Weight: -20, Category: types.CategoryClickbait},
	{Trigger: "what happened next", Weight: -15, Category: types.CategoryClickbait},
	{Trigger: "before it's deleted", Weight: -20, Category: types.CategoryClickbait},
	{Trigger: "going viral", Weight: -10, Category: types.CategoryClickbait},

	// Conspiracy
	{Trigger: "they don't want you to know", Weight: -25, Category: types.CategoryConspiracy},
	{Trigger: "wake up", Weight: -10, Category: types.CategoryConspiracy},
	{Trigger: "mainstream media won't", Weight: -20, Category: types.CategoryConspiracy},
	{Trigger: "cover-up", Weight: -15, Category: types.CategoryConspiracy},
	{Trigger: "secret agenda", Weight: -20, Category: types.CategoryConspiracy},
	{Trigger: "deep state", Weight: -20, Category: types.CategoryConspiracy},
	{Trigger: "do your own research", Weight: -12, Category: types.CategoryConspiracy},
	{Trigger: "sheeple", Weight: -18, Category: types.CategoryConspiracy},

	// Credibility markers
	{Trigger: "according to", Weight: 5, Category: types.CategoryCredible},
	{Trigger: "study published", Weight: 10, Category: types.CategoryCredible},
	{Trigger: "peer-reviewed", Weight: 12, Category: types.CategoryCredible},
	{Trigger: "researchers found", Weight: 8, Category: types.CategoryCredible},
	{Trigger: "official statement", Weight: 6, Category: types.CategoryCredible},
	{Trigger: "data shows", Weight: 6, Category: types.CategoryCredible},
	{Trigger: "sources confirmed", Weight: 5, Category: types.CategoryCredible},
	{Trigger: "experts say", Weight: 4, Category: types.CategoryCredible},
}

// NewTable builds the default table from the builtin rule set.
func NewTable() *Table {
	return NewTableFrom(builtin)
}

// NewTableFrom precompiles an arbitrary rule set. Triggers are lowercased
// and empty triggers are skipped.
func NewTableFrom(rules []Pattern) *Table {
	ps := make([]Pattern, 0, len(rules))
	for _, r := range rules {
		t := strings.ToLower(strings.TrimSpace(r.Trigger))
		if t == "" {
			continue
		}
		ps = append(ps, Pattern{Trigger: t, Weight: r.Weight, Category: r.Category})
	}
	return &Table{patterns: ps}
}

// Patterns returns the compiled rules in table order. Callers must not
// modify the returned slice.
func (t *Table) Patterns() []Pattern {
	return t.patterns
}

// Len returns the number of compiled rules.
func (t *Table) Len() int {
	return len(t.patterns)
}
