package matching

import (
	"strings"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
)

// similarityThreshold is the minimum edit-distance score accepted as a
// match. Weaker candidates are reported as no match.
const similarityThreshold = 0.4

// confidenceFloor is the minimum confidence recorded for an accepted match.
const confidenceFloor = 0.2

// Engine is the offline fallback matcher: an ordered synonym rule table
// first, edit-distance scoring second. Deterministic, no I/O.
type Engine struct {
	rules []domain.SynonymRule
}

func NewEngine(rules []domain.SynonymRule) *Engine {
	return &Engine{rules: rules}
}

// Match resolves one source field against the catalog. Rule order is
// significant: the first rule whose pattern matches and whose target is a
// catalog member wins. Ties on the edit-distance path keep the earliest
// catalog entry.
func (e *Engine) Match(sourceField string, catalog []domain.TargetField) (domain.FallbackMatch, bool) {
	if len(catalog) == 0 {
		return domain.FallbackMatch{}, false
	}
	lower := strings.ToLower(strings.TrimSpace(sourceField))

	inCatalog := make(map[string]bool, len(catalog))
	for _, tf := range catalog {
		inCatalog[tf.Name] = true
	}

	for _, rule := range e.rules {
		if !inCatalog[rule.Target] {
			continue
		}
		for _, pattern := range rule.Patterns {
			if strings.Contains(lower, pattern) {
				return domain.FallbackMatch{
					Target:     rule.Target,
					Confidence: max(Similarity(lower, strings.ToLower(rule.Target)), confidenceFloor),
					Rule:       true,
				}, true
			}
		}
	}

	var best domain.FallbackMatch
	bestScore := -1.0
	for _, tf := range catalog {
		score := Similarity(lower, strings.ToLower(tf.Name))
		if score > bestScore {
			bestScore = score
			best = domain.FallbackMatch{Target: tf.Name, Confidence: score}
		}
	}
	if bestScore < similarityThreshold {
		return domain.FallbackMatch{}, false
	}
	best.Confidence = max(best.Confidence, confidenceFloor)
	return best, true
}
