/**
 * Product catalog for the loyalty points program
 *
 * The catalog is the only process-wide state: an immutable, ordered set of
 * products eligible for points, each carrying the matching metadata the
 * scorer consumes (keyword phrases, code patterns, size variants) and a
 * fixed points-per-currency-unit rate. Iteration order is part of the
 * matching contract (ties resolve to the first product), so products are
 * held in a slice, never a map.
 */

package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Product defines one catalog entry eligible for loyalty points
type Product struct {
	Key        string
	Name       string
	PointsRate float64 // points per currency unit of the line total
	Category   string
	Keywords   []string // uppercase phrases, matched on word boundaries
	Variants   []string // known size/variant labels, informational

	codePatterns []*regexp.Regexp
	keywordRes   []*regexp.Regexp
}

// CodeHits returns how many of the product's code patterns match the
// (uppercased) line.
func (p *Product) CodeHits(upperLine string) int {
	hits := 0
	for _, re := range p.codePatterns {
		if re.MatchString(upperLine) {
			hits++
		}
	}
	return hits
}

// KeywordHits returns how many of the product's keyword phrases occur in
// the (uppercased) line. Phrases match on word boundaries: the two-letter
// keyword "ST" must not hit inside "FAST" or "STEEL".
func (p *Product) KeywordHits(upperLine string) int {
	hits := 0
	for _, re := range p.keywordRes {
		if re.MatchString(upperLine) {
			hits++
		}
	}
	return hits
}

// Catalog is an ordered, read-only collection of products
type Catalog struct {
	products []*Product
	byKey    map[string]*Product
}

// Products returns the catalog entries in their fixed iteration order
func (c *Catalog) Products() []*Product {
	return c.products
}

// Get returns a product by catalog key
func (c *Catalog) Get(key string) (*Product, bool) {
	p, ok := c.byKey[key]
	return p, ok
}

// Len returns the number of catalog entries
func (c *Catalog) Len() int {
	return len(c.products)
}

// productSpec is the JSON form of a catalog entry
type productSpec struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	PointsRate   float64  `json:"points_rate"`
	Category     string   `json:"category"`
	Keywords     []string `json:"keywords"`
	CodePatterns []string `json:"code_patterns"`
	Variants     []string `json:"variants"`
}

// New builds a catalog from specs, compiling keyword and code patterns.
// Keys must be unique and rates non-negative.
func New(specs []productSpec) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]*Product, len(specs))}

	for _, s := range specs {
		if s.Key == "" || s.Name == "" {
			return nil, fmt.Errorf("catalog entry missing key or name: %+v", s)
		}
		if _, dup := c.byKey[s.Key]; dup {
			return nil, fmt.Errorf("duplicate catalog key: %s", s.Key)
		}
		if s.PointsRate < 0 {
			return nil, fmt.Errorf("catalog entry %s has negative points rate", s.Key)
		}

		p := &Product{
			Key:        s.Key,
			Name:       s.Name,
			PointsRate: s.PointsRate,
			Category:   s.Category,
			Keywords:   s.Keywords,
			Variants:   s.Variants,
		}

		for _, pat := range s.CodePatterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("catalog entry %s: invalid code pattern %q: %w", s.Key, pat, err)
			}
			p.codePatterns = append(p.codePatterns, re)
		}

		for _, kw := range s.Keywords {
			re, err := regexp.Compile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("catalog entry %s: invalid keyword %q: %w", s.Key, kw, err)
			}
			p.keywordRes = append(p.keywordRes, re)
		}

		c.products = append(c.products, p)
		c.byKey[p.Key] = p
	}

	return c, nil
}

// Load reads a catalog from a JSON file (array of entries, in order)
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var specs []productSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	return New(specs)
}

// Default returns the built-in product catalog. Keywords include known
// OCR misreads of the product names (PLAGA, GLASROG, PLAGOMIX) so lines
// the corrector could not repair still score.
func Default() *Catalog {
	c, err := New(defaultSpecs)
	if err != nil {
		// The built-in table is validated by tests; a compile failure
		// here is a programming error.
		panic(fmt.Sprintf("invalid built-in catalog: %v", err))
	}
	return c
}

var defaultSpecs = []productSpec{
	{
		Key:          "PLACA_ST",
		Name:         "Placa ST",
		PointsRate:   0.5,
		Category:     "placa_st",
		Keywords:     []string{"PLACA ST", "ST", "DW00057", "STANDARD", "PLAGA ST"},
		CodePatterns: []string{`DW\s*0*57`, `ST\s*\d+`, `PLACA\s*ST`, `PLAGA\s*ST`},
		Variants:     []string{"12mm", "15mm", "18mm", "20mm"},
	},
	{
		Key:          "GUIA_DRYWALL",
		Name:         "Guia Drywall",
		PointsRate:   1.0,
		Category:     "guia_drywall",
		Keywords:     []string{"GUIA DRYWALL", "GUIA", "DW00074", "PERFIL GUIA", "GUIA 48MM", "GUIA 70MM"},
		CodePatterns: []string{`DW\s*0*74`, `GUIA\s*\d+`, `PERFIL\s*GUIA`},
		Variants:     []string{"48mm", "70mm", "90mm"},
	},
	{
		Key:          "MONTANTE_DRYWALL",
		Name:         "Montante Drywall",
		PointsRate:   1.0,
		Category:     "montante_drywall",
		Keywords:     []string{"MONTANTE DRYWALL", "MONTANTE", "DW00087", "PERFIL MONTANTE", "MONTANTE 48MM", "MONTANTE 70MM"},
		CodePatterns: []string{`DW\s*0*87`, `MONTANTE\s*\d+`, `PERFIL\s*MONTANTE`},
		Variants:     []string{"48mm", "70mm", "90mm"},
	},
	{
		Key:          "PLACA_RU",
		Name:         "Placa RU",
		PointsRate:   1.0,
		Category:     "placa_ru",
		Keywords:     []string{"PLACA RU", "RU", "DW00007", "DW00075", "RESISTENTE UMIDADE", "PLAGA RU"},
		CodePatterns: []string{`DW\s*0*07`, `DW\s*0*75`, `PLACA\s*RU`, `RU\s*\d+`, `PLAGA\s*RU`},
		Variants:     []string{"12mm", "15mm", "18mm"},
	},
	{
		Key:        "PLACA_GLASROC_X",
		Name:       "Placa Glasroc X",
		PointsRate: 2.0,
		Category:   "glasroc_x",
		// No bare GLASROC keyword/pattern here: the mesh and basecoat
		// lines also carry the word and would be outscored on their own
		// rows by this entry.
		Keywords:     []string{"PLACA GLASROC", "GLASROC X", "GR00001", "GR00002", "GLASROG"},
		CodePatterns: []string{`GR\s*0*1`, `GR\s*0*2`, `PLACA\s*GLASROC`, `GLASROG`},
		Variants:     []string{"12mm", "15mm", "18mm"},
	},
	{
		Key:          "MALHA_GLASROC_X",
		Name:         "Malha telada para Glasroc X",
		PointsRate:   2.0,
		Category:     "malha_glasroc",
		Keywords:     []string{"MALHA GLASROC", "MALHA TELADA", "MT00001", "MT00002", "TELA GLASROC", "REDE GLASROC"},
		CodePatterns: []string{`MT\s*0*1`, `MT\s*0*2`, `MALHA\s*GLASROC`, `TELA\s*GLASROC`},
		Variants:     []string{"150g/m²", "160g/m²"},
	},
	{
		Key:          "BASECOAT_GLASROC_X",
		Name:         "Basecoat (massa para Glasroc X)",
		PointsRate:   2.0,
		Category:     "basecoat",
		Keywords:     []string{"BASECOAT", "BASE COAT", "BC00001", "BC00002", "MASSA GLASROC", "ARGAMASSA GLASROC"},
		CodePatterns: []string{`BC\s*0*1`, `BC\s*0*2`, `BASECOAT`, `BASE\s*COAT`},
		Variants:     []string{"20kg", "25kg"},
	},
	{
		Key:          "PLACOMIX",
		Name:         "Placomix",
		PointsRate:   1.0,
		Category:     "placomix",
		Keywords:     []string{"PLACOMIX", "PLACO MIX", "PM00001", "PM00002", "MASSA PLACA", "PLAGOMIX"},
		CodePatterns: []string{`PM\s*0*1`, `PM\s*0*2`, `PLACOMIX`, `PLACO\s*MIX`, `PLAGOMIX`},
		Variants:     []string{"18kg", "20kg", "25kg"},
	},
}
