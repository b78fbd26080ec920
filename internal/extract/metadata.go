/**
 * Invoice-level metadata extraction
 *
 * Each field is extracted independently by trying an ordered list of
 * patterns against the whole corrected text and taking the first match.
 * Extraction never fails: every field has a documented fallback value,
 * and the Synthesized flag records when the order number had to be
 * invented so callers can tag the result accordingly.
 */

package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// FallbackCustomer is the sentinel used when no customer name can be
// recovered from the text.
const FallbackCustomer = "CLIENTE NÃO IDENTIFICADO"

// Metadata holds the invoice-level fields
type Metadata struct {
	OrderNumber   string  // always non-empty; "NF-<digits>" or synthesized
	IssueDate     string  // ISO calendar date
	Customer      string  // extracted name or FallbackCustomer
	DeclaredTotal float64 // declared total value, 0 if unrecoverable
	Synthesized   bool    // true when the order number was invented
}

var (
	orderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)NOTA\s+FISCAL[^\d]*(\d+)`),
		regexp.MustCompile(`(?i)NF[^\d]*(\d+)`),
		regexp.MustCompile(`(?i)N[Fºª°]\s*(\d+)`),
		regexp.MustCompile(`(?i)NÚMERO[^\d]*(\d+)`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,2}[/\-]\d{1,2}[/\-]\d{4})`),
		regexp.MustCompile(`(\d{4}[/\-]\d{1,2}[/\-]\d{1,2})`),
		regexp.MustCompile(`(?i)DATA[:\s]*(\d{1,2}[/\-]\d{1,2}[/\-]\d{4})`),
	}

	dateLayouts = []string{"02/01/2006", "02-01-2006", "2006/01/02", "2006-01-02"}

	customerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)CLIENTE[:\s]+([^\n\r]+)`),
		regexp.MustCompile(`(?i)RAZÃO\s+SOCIAL[:\s]+([^\n\r]+)`),
		regexp.MustCompile(`(?i)CNPJ[:\s]+[\d.\-/]+\s+([^\n\r]+)`),
	}

	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)TOTAL[:\s]*R?\$?\s*(\d+(?:[,.]\d{3})*[,.]\d{2})`),
		regexp.MustCompile(`(?i)VALOR\s+TOTAL[:\s]*R?\$?\s*(\d+(?:[,.]\d{3})*[,.]\d{2})`),
		regexp.MustCompile(`(?i)L[ÍI]QUIDO[:\s]*R?\$?\s*(\d+(?:[,.]\d{3})*[,.]\d{2})`),
	}
)

// MetadataExtractor extracts invoice-level fields from the whole text
type MetadataExtractor struct {
	now func() time.Time
}

// NewMetadataExtractor creates a metadata extractor
func NewMetadataExtractor() *MetadataExtractor {
	return &MetadataExtractor{now: time.Now}
}

// ExtractMetadata extracts all invoice-level fields from the text
func (e *MetadataExtractor) ExtractMetadata(fullText string) Metadata {
	order, synthesized := e.orderNumber(fullText)
	return Metadata{
		OrderNumber:   order,
		IssueDate:     e.issueDate(fullText),
		Customer:      e.customer(fullText),
		DeclaredTotal: e.declaredTotal(fullText),
		Synthesized:   synthesized,
	}
}

// orderNumber recovers the invoice number, formatted NF-<digits>. When no
// pattern matches, a timestamp placeholder is synthesized; it is unique
// enough for record keeping but is not a real invoice number, which the
// second return value flags.
func (e *MetadataExtractor) orderNumber(text string) (string, bool) {
	for _, pattern := range orderPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return "NF-" + m[1], false
		}
	}
	return fmt.Sprintf("AUTO-%d", e.now().Unix()), true
}

// issueDate recovers the issue date as an ISO calendar date, trying the
// supported layouts in fixed order. Falls back to the processing date.
func (e *MetadataExtractor) issueDate(text string) string {
	for _, pattern := range datePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, m[1]); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return e.now().Format("2006-01-02")
}

// customer recovers the customer name. Captures shorter than 6
// characters are rejected as OCR garbage.
func (e *MetadataExtractor) customer(text string) string {
	for _, pattern := range customerPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			name := strings.TrimSpace(m[1])
			if utf8.RuneCountInString(name) > 5 {
				return name
			}
		}
	}
	return FallbackCustomer
}

// declaredTotal recovers the declared total value of the invoice
func (e *MetadataExtractor) declaredTotal(text string) float64 {
	for _, pattern := range totalPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			if v, err := parseMoney(m[1]); err == nil {
				return v
			}
		}
	}
	return 0
}
