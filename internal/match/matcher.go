/**
 * Catalog matcher
 *
 * Scores one invoice line (plus its neighboring lines) against every
 * catalog product and returns the best candidate above the confidence
 * threshold. The score is an additive sum of independent signals, not a
 * normalized probability: keyword hits, code-pattern hits, name
 * similarity and context keywords each contribute a fixed weight.
 * Operators can read a score and see exactly why a line matched, which a
 * statistical classifier would not give them for a catalog this small.
 */

package match

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/clubefast/invoice-worker/internal/catalog"
)

// Weights holds the scoring weights and acceptance threshold. These are
// tuning knobs, not principled constants; the defaults are the values the
// program has always shipped with.
type Weights struct {
	Keyword         float64 // per keyword phrase found in the line
	CodePattern     float64 // per code pattern matching the line
	NameSimilarity  float64 // scale for the similarity ratio when > SimilarityFloor
	Context         float64 // per keyword found in a neighboring line
	SimilarityFloor float64 // minimum similarity ratio before it contributes
	MinScore        float64 // candidate accepted only if score strictly exceeds this
}

// DefaultWeights returns the shipped scoring configuration
func DefaultWeights() Weights {
	return Weights{
		Keyword:         0.4,
		CodePattern:     0.6,
		NameSimilarity:  0.3,
		Context:         0.1,
		SimilarityFloor: 0.6,
		MinScore:        0.3,
	}
}

// Candidate is the best-scoring product for a line
type Candidate struct {
	Product   *catalog.Product
	Score     float64
	LineIndex int // 0-based position in the document, set by the caller
}

// Matcher scores lines against the product catalog
type Matcher struct {
	catalog *catalog.Catalog
	weights Weights
}

// NewMatcher creates a matcher over the given catalog
func NewMatcher(c *catalog.Catalog, w Weights) *Matcher {
	return &Matcher{catalog: c, weights: w}
}

// Match scores the line against every catalog product and returns the
// single best candidate, or nil when no product's score strictly exceeds
// the threshold. Exact ties resolve to the product that comes first in
// catalog order.
func (m *Matcher) Match(line string, contextLines []string) *Candidate {
	upper := strings.ToUpper(line)

	var best *catalog.Product
	bestScore := 0.0

	for _, product := range m.catalog.Products() {
		score := m.keywordScore(upper, product) +
			m.codeScore(upper, product) +
			m.similarityScore(line, product) +
			m.contextScore(contextLines, product)

		if score > bestScore && score > m.weights.MinScore {
			bestScore = score
			best = product
		}
	}

	if best == nil {
		return nil
	}
	return &Candidate{Product: best, Score: bestScore}
}

// keywordScore accumulates one weight per keyword phrase of the product
// present in the line
func (m *Matcher) keywordScore(upperLine string, p *catalog.Product) float64 {
	return float64(p.KeywordHits(upperLine)) * m.weights.Keyword
}

// codeScore accumulates one weight per code pattern matching the line
func (m *Matcher) codeScore(upperLine string, p *catalog.Product) float64 {
	return float64(p.CodeHits(upperLine)) * m.weights.CodePattern
}

// similarityScore adds a scaled edit-distance similarity between the raw
// line and the product display name, but only once the ratio clears the
// floor; weak similarity on long noisy lines is meaningless.
func (m *Matcher) similarityScore(line string, p *catalog.Product) float64 {
	ratio := levenshtein.Match(strings.ToLower(line), strings.ToLower(p.Name), nil)
	if ratio > m.weights.SimilarityFloor {
		return ratio * m.weights.NameSimilarity
	}
	return 0
}

// contextScore adds a small bonus for every product keyword found in the
// neighboring lines (the caller passes up to two lines on each side,
// excluding the line itself)
func (m *Matcher) contextScore(contextLines []string, p *catalog.Product) float64 {
	score := 0.0
	for _, ctx := range contextLines {
		score += float64(p.KeywordHits(strings.ToUpper(ctx))) * m.weights.Context
	}
	return score
}
