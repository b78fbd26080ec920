/**
 * Invoice assembler
 *
 * Orchestrates the extraction pipeline over corrected invoice text:
 * splits it into lines, matches each line against the catalog with its
 * surrounding context, extracts per-line numeric values, computes loyalty
 * points, and extracts invoice-level metadata from the whole text.
 *
 * No per-line failure aborts assembly. A line that matches nothing simply
 * contributes nothing; only completely empty input is an error.
 */

package invoice

import (
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/clubefast/invoice-worker/internal/extract"
	"github.com/clubefast/invoice-worker/internal/logging"
	"github.com/clubefast/invoice-worker/internal/match"
)

// ErrEmptyInput is returned when there is no text to process at all
var ErrEmptyInput = errors.New("invoice text is empty")

// Lines shorter than this cannot carry a product description and are
// discarded before any downstream step sees them.
const minLineLength = 10

// Lines longer than this that carry a unit or currency marker qualify
// for the generic (audit) line-item list.
const minItemLineLength = 20

// contextRadius is how many lines on each side of a line form its
// context window for the matcher.
const contextRadius = 2

// genericMarkers are the unit/currency fragments whose presence makes a
// line a candidate for the generic line-item list
var genericMarkers = []string{"UN", "PC", "KG", "M", "R$"}

// Product-code recovery patterns, most specific first; first match wins
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z]{2}\d{5}`),
	regexp.MustCompile(`[A-Z]{2}\d{3}`),
	regexp.MustCompile(`\d{4,6}`),
}

// Assembler builds a Result from corrected invoice text
type Assembler struct {
	matcher *match.Matcher
	numbers *extract.NumericExtractor
	meta    *extract.MetadataExtractor
	log     *logging.Logger
}

// NewAssembler creates an assembler over the given matcher
func NewAssembler(matcher *match.Matcher) *Assembler {
	return &Assembler{
		matcher: matcher,
		numbers: extract.NewNumericExtractor(),
		meta:    extract.NewMetadataExtractor(),
		log:     logging.NewLogger("assembler"),
	}
}

// Assemble processes corrected invoice text into the final structured
// result. The only failure mode is empty input; everything else degrades
// to documented fallback values per field or per line.
func (a *Assembler) Assemble(correctedText string) (*Result, error) {
	if strings.TrimSpace(correctedText) == "" {
		return nil, ErrEmptyInput
	}

	lines := strings.Split(correctedText, "\n")

	result := &Result{
		Products:  []Product{},
		LineItems: []LineItem{},
	}

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) < minLineLength {
			continue
		}

		candidate := a.matcher.Match(line, contextWindow(lines, i))
		if candidate != nil {
			candidate.LineIndex = i
			result.Products = append(result.Products, a.buildProduct(line, candidate))
		} else {
			a.log.Debug("line matched no catalog product", "line", line)
		}

		if item, ok := a.genericItem(line); ok {
			result.LineItems = append(result.LineItems, item)
		}
	}

	for _, p := range result.Products {
		result.TotalPoints += p.Points
	}

	meta := a.meta.ExtractMetadata(correctedText)
	result.Metadata = Metadata{
		OrderNumber:   meta.OrderNumber,
		IssueDate:     meta.IssueDate,
		Customer:      meta.Customer,
		DeclaredTotal: meta.DeclaredTotal,
	}
	result.Method = MethodExtraction
	if meta.Synthesized {
		result.Method = MethodExtractionFallback
	}

	return result, nil
}

// contextWindow returns up to contextRadius lines on each side of index
// i, excluding line i itself
func contextWindow(lines []string, i int) []string {
	var window []string
	for j := i - contextRadius; j <= i+contextRadius; j++ {
		if j == i || j < 0 || j >= len(lines) {
			continue
		}
		window = append(window, lines[j])
	}
	return window
}

// buildProduct creates the eligible-product record for an accepted
// candidate. Missing numeric fields default to quantity 1 and zero
// prices; points are floor(lineTotal × rate) when the total is positive.
func (a *Assembler) buildProduct(line string, candidate *match.Candidate) Product {
	fields := a.numbers.Extract(line)

	p := Product{
		Name:       candidate.Product.Name,
		Code:       recoverCode(line),
		Quantity:   1,
		Category:   candidate.Product.Category,
		PointsRate: candidate.Product.PointsRate,
		Confidence: candidate.Score,
		SourceLine: line,
	}
	if fields.HasQuantity {
		p.Quantity = fields.Quantity
	}
	if fields.HasUnitPrice {
		p.UnitPrice = fields.UnitPrice
	}
	if fields.HasLineTotal {
		p.LineTotal = fields.LineTotal
	}
	if p.LineTotal > 0 {
		p.Points = int64(math.Floor(p.LineTotal * p.PointsRate))
	}

	return p
}

// recoverCode pulls a product code out of the line on a best-effort
// basis: two letters + 5 digits, then two letters + 3 digits, then a
// bare 4-6 digit run. "N/A" when nothing code-shaped is present.
func recoverCode(line string) string {
	upper := strings.ToUpper(line)
	for _, pattern := range codePatterns {
		if code := pattern.FindString(upper); code != "" {
			return code
		}
	}
	return "N/A"
}

// genericItem records any plausible priced line for the audit list:
// long enough to be a row, carries a unit or currency marker, and has a
// positive parsed total. Catalog membership is irrelevant here.
func (a *Assembler) genericItem(line string) (LineItem, bool) {
	if len(line) <= minItemLineLength {
		return LineItem{}, false
	}

	upper := strings.ToUpper(line)
	marked := false
	for _, marker := range genericMarkers {
		if strings.Contains(upper, marker) {
			marked = true
			break
		}
	}
	if !marked {
		return LineItem{}, false
	}

	fields := a.numbers.Extract(line)
	if !fields.HasLineTotal || fields.LineTotal <= 0 {
		return LineItem{}, false
	}

	item := LineItem{
		Description: line,
		Value:       fields.LineTotal,
		Quantity:    1,
	}
	if fields.HasQuantity {
		item.Quantity = fields.Quantity
	}
	if fields.HasUnitPrice {
		item.UnitPrice = fields.UnitPrice
	}
	return item, true
}
