/**
 * Per-line numeric extraction
 *
 * Pulls quantity, unit price and line total out of a single invoice row.
 * Works on one line at a time with no cross-line state. All values use
 * the target locale's conventions: comma decimal separator, period
 * grouping separator, R$ currency marker.
 */

package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Fields holds the numeric values recovered from one line. Each value is
// only meaningful when its Has flag is set.
type Fields struct {
	Quantity     float64
	UnitPrice    float64
	LineTotal    float64
	HasQuantity  bool
	HasUnitPrice bool
	HasLineTotal bool
}

// Unit-of-measure abbreviations as printed on supplier invoices:
// unit, piece, meter variants, kilogram, sack, roll, box.
const unitTokens = `UN|PC|ML|M2|KG|SC|RL|CX|M`

var (
	// quantity written before its unit ("20 UN"). Word-bounded so a size
	// label like 15MM does not read as 15 meters.
	qtyBeforeUnit = regexp.MustCompile(`(\d+(?:[,.]\d+)?)\s*(?:` + unitTokens + `)\b`)

	// quantity written after the unit column ("UN  20"), the common
	// tabular layout
	qtyAfterUnit = regexp.MustCompile(`\b(?:` + unitTokens + `)\b\s+(\d+(?:[,.]\d+)?)\b`)

	// Monetary values, tried from most to least specific:
	// currency-marked grouped decimal, grouped decimal, plain two-decimal.
	moneyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`R\$\s*(\d+(?:[,.]\d{3})*[,.]\d{2})`),
		regexp.MustCompile(`(\d+(?:[,.]\d{3})*[,.]\d{2})`),
		regexp.MustCompile(`(\d+[,.]\d{2})`),
	}
)

// NumericExtractor extracts quantity and monetary values from lines
type NumericExtractor struct{}

// NewNumericExtractor creates a numeric extractor
func NewNumericExtractor() *NumericExtractor {
	return &NumericExtractor{}
}

// Extract parses one line. At most one quantity is taken (first match
// wins). All monetary values are collected left to right; when two or
// more are present, the second-to-last is the unit price and the last is
// the line total (rightmost two columns of a tabular row). A single
// value is taken as the line total only. This positional rule is a
// heuristic: a trailing non-price number that happens to parse will
// misassign the columns.
func (e *NumericExtractor) Extract(line string) Fields {
	var f Fields

	if m := qtyBeforeUnit.FindStringSubmatch(line); m != nil {
		if v, err := parseDecimal(m[1]); err == nil {
			f.Quantity = v
			f.HasQuantity = true
		}
	} else if m := qtyAfterUnit.FindStringSubmatch(line); m != nil {
		if v, err := parseDecimal(m[1]); err == nil {
			f.Quantity = v
			f.HasQuantity = true
		}
	}

	values := e.moneyValues(line)
	switch {
	case len(values) >= 2:
		f.UnitPrice = values[len(values)-2]
		f.HasUnitPrice = true
		f.LineTotal = values[len(values)-1]
		f.HasLineTotal = true
	case len(values) == 1:
		f.LineTotal = values[0]
		f.HasLineTotal = true
	}

	return f
}

// moneyValues collects every monetary value on the line in left-to-right
// order. The three patterns overlap on purpose (a currency-marked value
// also matches the plainer patterns), so spans already claimed by a more
// specific pattern are skipped. A value that fails to parse is dropped.
func (e *NumericExtractor) moneyValues(line string) []float64 {
	type span struct {
		start, end int
		value      float64
	}
	var spans []span

	overlaps := func(s, e int) bool {
		for _, sp := range spans {
			if s < sp.end && e > sp.start {
				return true
			}
		}
		return false
	}

	for _, pattern := range moneyPatterns {
		for _, idx := range pattern.FindAllStringSubmatchIndex(line, -1) {
			start, end := idx[2], idx[3]
			if start < 0 || overlaps(start, end) {
				continue
			}
			v, err := parseMoney(line[start:end])
			if err != nil {
				continue
			}
			spans = append(spans, span{start: start, end: end, value: v})
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	values := make([]float64, len(spans))
	for i, sp := range spans {
		values[i] = sp.value
	}
	return values
}

// parseMoney converts a grouped-decimal money string to a number:
// group separators (periods) are removed, the decimal comma becomes a
// period. "1.234,56" → 1234.56.
func parseMoney(s string) (float64, error) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

// parseDecimal parses a plain decimal that may use a comma separator
func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
