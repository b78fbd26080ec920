/**
 * Numeric extraction tests
 *
 * Validates quantity recovery in both layouts (before and after the unit
 * token), locale-aware money parsing, and the positional unit-price /
 * line-total assignment rule.
 */

package extract

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestExtractTabularRow(t *testing.T) {
	e := NewNumericExtractor()

	f := e.Extract("02  PLACA RU 15MM                  UN    20    R$ 32,50    R$ 650,00")

	if !f.HasQuantity || !almostEqual(f.Quantity, 20) {
		t.Errorf("quantity = %v (has=%v), want 20", f.Quantity, f.HasQuantity)
	}
	if !f.HasUnitPrice || !almostEqual(f.UnitPrice, 32.50) {
		t.Errorf("unit price = %v (has=%v), want 32.50", f.UnitPrice, f.HasUnitPrice)
	}
	if !f.HasLineTotal || !almostEqual(f.LineTotal, 650.00) {
		t.Errorf("line total = %v (has=%v), want 650.00", f.LineTotal, f.HasLineTotal)
	}
}

func TestExtractQuantityPlacement(t *testing.T) {
	e := NewNumericExtractor()

	testCases := []struct {
		name        string
		line        string
		hasQuantity bool
		quantity    float64
	}{
		{
			name:        "quantity after unit column",
			line:        "PLACA GLASROC X UN    15    R$ 45,90",
			hasQuantity: true,
			quantity:    15,
		},
		{
			name:        "quantity before unit",
			line:        "5 SC PLACOMIX R$ 45,80",
			hasQuantity: true,
			quantity:    5,
		},
		{
			name:        "decimal quantity before unit",
			line:        "2,5 KG MASSA R$ 45,90",
			hasQuantity: true,
			quantity:    2.5,
		},
		{
			name:        "size label is not a quantity",
			line:        "PLACA RU 15MM R$ 32,50",
			hasQuantity: false,
		},
		{
			name:        "no numbers at all",
			line:        "PLACA RU QUINZE MILIMETROS",
			hasQuantity: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := e.Extract(tc.line)
			if f.HasQuantity != tc.hasQuantity {
				t.Fatalf("HasQuantity = %v, want %v", f.HasQuantity, tc.hasQuantity)
			}
			if tc.hasQuantity && !almostEqual(f.Quantity, tc.quantity) {
				t.Errorf("quantity = %v, want %v", f.Quantity, tc.quantity)
			}
		})
	}
}

func TestExtractMoneyAssignment(t *testing.T) {
	e := NewNumericExtractor()

	testCases := []struct {
		name         string
		line         string
		hasUnitPrice bool
		unitPrice    float64
		hasLineTotal bool
		lineTotal    float64
	}{
		{
			name:         "two values: unit price then total",
			line:         "MALHA GLASROC RL 3 R$ 125,00 R$ 375,00",
			hasUnitPrice: true,
			unitPrice:    125.00,
			hasLineTotal: true,
			lineTotal:    375.00,
		},
		{
			name:         "single value is the total",
			line:         "VALOR TOTAL GERAL R$ 1.234,56",
			hasLineTotal: true,
			lineTotal:    1234.56,
		},
		{
			name:         "grouped thousands without currency marker",
			line:         "SUBTOTAL 12.345,67",
			hasLineTotal: true,
			lineTotal:    12345.67,
		},
		{
			name:         "three values take the last two",
			line:         "ITEM UN 2 10,00 20,00 30,00",
			hasUnitPrice: true,
			unitPrice:    20.00,
			hasLineTotal: true,
			lineTotal:    30.00,
		},
		{
			name: "no monetary values",
			line: "PLACA RU 15MM SEM PRECO",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := e.Extract(tc.line)
			if f.HasUnitPrice != tc.hasUnitPrice {
				t.Fatalf("HasUnitPrice = %v, want %v", f.HasUnitPrice, tc.hasUnitPrice)
			}
			if tc.hasUnitPrice && !almostEqual(f.UnitPrice, tc.unitPrice) {
				t.Errorf("unit price = %v, want %v", f.UnitPrice, tc.unitPrice)
			}
			if f.HasLineTotal != tc.hasLineTotal {
				t.Fatalf("HasLineTotal = %v, want %v", f.HasLineTotal, tc.hasLineTotal)
			}
			if tc.hasLineTotal && !almostEqual(f.LineTotal, tc.lineTotal) {
				t.Errorf("line total = %v, want %v", f.LineTotal, tc.lineTotal)
			}
		})
	}
}

func TestParseMoney(t *testing.T) {
	testCases := []struct {
		input    string
		expected float64
	}{
		{"1.234,56", 1234.56},
		{"650,00", 650.00},
		{"32,50", 32.50},
		{"3.302,50", 3302.50},
		{"1.234.567,89", 1234567.89},
	}

	for _, tc := range testCases {
		got, err := parseMoney(tc.input)
		if err != nil {
			t.Errorf("parseMoney(%q) returned error: %v", tc.input, err)
			continue
		}
		if !almostEqual(got, tc.expected) {
			t.Errorf("parseMoney(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}
