/**
 * OCR text correction
 *
 * Normalizes raw OCR output before extraction: uppercases, applies an
 * ordered table of literal corrections for known character confusions,
 * then repairs product-code tokens (letter O misread for zero, dropped or
 * duplicated zero padding). Rules run in a fixed order because the code
 * repairs assume the literal corrections already happened.
 *
 * Corrections are confined to contexts recognizable as catalog codes
 * (two-letter prefix + digits). A global O→0 or I→1 rewrite would corrupt
 * legitimate words elsewhere in the document.
 */

package textproc

import (
	"regexp"
	"strings"
)

// Replacement is one literal substring correction, applied in table order
type Replacement struct {
	From string
	To   string
}

// DefaultCorrections covers the confusions Tesseract produces on
// photographed invoices from this supplier: misread product-name
// fragments and letter O inside known code prefixes.
var DefaultCorrections = []Replacement{
	{"PLAGA", "PLACA"},
	{"GLASROG", "GLASROC"},
	{"PLAGOMIX", "PLACOMIX"},
	{"DW0O", "DW00"},
	{"GR0O", "GR00"},
	{"BC0O", "BC00"},
	{"MT0O", "MT00"},
	{"PM0O", "PM00"},
}

// codeToken matches a product-code-shaped token: two uppercase letters
// followed by digits possibly containing a misread O.
var codeToken = regexp.MustCompile(`\b([A-Z]{2})([0-9O]*\d[0-9O]*)\b`)

// zeroPad rewrites a two-letter prefix followed by any run of zeros so
// exactly two zeros precede the significant digits (canonical code shape).
var zeroPad = regexp.MustCompile(`([A-Z]{2})0+([1-9]\d*)`)

// Corrector repairs known OCR error patterns in invoice text
type Corrector struct {
	corrections []Replacement
}

// NewCorrector creates a corrector with the given confusion table.
// A nil table uses DefaultCorrections.
func NewCorrector(corrections []Replacement) *Corrector {
	if corrections == nil {
		corrections = DefaultCorrections
	}
	return &Corrector{corrections: corrections}
}

// Correct normalizes and repairs raw OCR text. It never fails: text that
// matches no rule passes through unchanged (apart from uppercasing), and
// identical input always yields identical output.
func (c *Corrector) Correct(raw string) string {
	text := strings.ToUpper(raw)

	for _, r := range c.corrections {
		text = strings.ReplaceAll(text, r.From, r.To)
	}

	// O→0 inside code-shaped tokens only
	text = codeToken.ReplaceAllStringFunc(text, func(tok string) string {
		return tok[:2] + strings.ReplaceAll(tok[2:], "O", "0")
	})

	// Normalize zero padding: DW057, DW0057, DW000057 → DW0057
	text = zeroPad.ReplaceAllString(text, "${1}00${2}")

	return text
}
