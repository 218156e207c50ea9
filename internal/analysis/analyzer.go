package analysis

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saitarunaditya/truthguard/internal/cache"
	"github.com/saitarunaditya/truthguard/internal/patterns"
	"github.com/saitarunaditya/truthguard/internal/types"
)

const (
	// CacheNamespace is the dedicated cache namespace for analysis results.
	CacheNamespace = "analysis"

	// cacheKeyLen is the text prefix length used as the cache key.
	cacheKeyLen = 100

	baseScore = 100
	minScore  = 10
	maxScore  = 100
)

// Analyzer scores text against a precompiled credibility pattern table.
// Stateless per call apart from the shared read-through cache, so a single
// instance serves all sessions.
type Analyzer struct {
	table    *patterns.Table
	cache    *cache.Cache
	cacheTTL time.Duration
	log      *logrus.Logger
}

// New creates an analyzer. cache may be nil, in which case every call
// computes from scratch.
func New(table *patterns.Table, c *cache.Cache, cacheTTL time.Duration, log *logrus.Logger) *Analyzer {
	return &Analyzer{
		table:    table,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Analyze scores text and returns a verdict, a confidence in [10,100], a
// per-category match breakdown, and the list of detected patterns in table
// order. Results are cached keyed by the first 100 characters of the text;
// a hit is returned unchanged, including the metadata of the call that
// populated it.
func (a *Analyzer) Analyze(text string, meta types.AnalysisMeta) *types.AnalysisResult {
	key := cacheKey(text)

	if a.cache != nil {
		if v, ok := a.cache.Get(CacheNamespace, key); ok {
			if cached, ok := v.(*types.AnalysisResult); ok {
				return cached
			}
		}
	}

	result := a.compute(text, meta)

	if a.cache != nil {
		if err := a.cache.Set(CacheNamespace, key, result, a.cacheTTL); err != nil {
			// Cache failure degrades to bypass, never to an analysis error.
			a.log.WithError(err).Warn("analysis cache write failed")
		}
	}

	return result
}

func (a *Analyzer) compute(text string, meta types.AnalysisMeta) *types.AnalysisResult {
	lowered := strings.ToLower(text)

	score := baseScore
	counts := make(map[string]int)
	var detected []types.DetectedPattern

	for _, p := range a.table.Patterns() {
		n := strings.Count(lowered, p.Trigger)
		if n == 0 {
			continue
		}
		impact := p.Weight * n
		score += impact
		counts[p.Category] += n
		detected = append(detected, types.DetectedPattern{
			Pattern:  p.Trigger,
			Category: p.Category,
			Matches:  n,
			Impact:   impact,
		})
	}

	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}

	return &types.AnalysisResult{
		Verdict:          verdict(score),
		Confidence:       score,
		CategoryCounts:   counts,
		DetectedPatterns: detected,
		Meta:             meta,
	}
}

func verdict(score int) string {
	switch {
	case score > 70:
		return types.VerdictHighlyCredible
	case score > 50:
		return types.VerdictSomewhatCredible
	default:
		return types.VerdictLowCredibility
	}
}

// cacheKey is the first 100 characters of the text. Counted in runes so a
// multi-byte character at the boundary is never split.
func cacheKey(text string) string {
	n := 0
	for i := range text {
		if n == cacheKeyLen {
			return text[:i]
		}
		n++
	}
	return text
}
