package invoice

// Metadata holds the invoice-level fields of a processed invoice
type Metadata struct {
	OrderNumber   string  `json:"order_number"`
	IssueDate     string  `json:"order_date"`
	Customer      string  `json:"customer"`
	DeclaredTotal float64 `json:"total_value"`
}

// Product is one detected line item that matched a catalog product above
// the confidence threshold. Immutable once built.
type Product struct {
	Name       string  `json:"name"`
	Code       string  `json:"product_code"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	LineTotal  float64 `json:"total_value"`
	Category   string  `json:"category"`
	PointsRate float64 `json:"points_rate"`
	Confidence float64 `json:"confidence"`
	Points     int64   `json:"points"`
	SourceLine string  `json:"source_line"`
}

// LineItem is any line that looks like a priced item (unit or currency
// marker plus a parsed positive total), regardless of catalog
// membership. Kept for display and audit.
type LineItem struct {
	Description string  `json:"description"`
	Value       float64 `json:"value"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Processing-method tags reported in the result. The fallback tag means
// at least the order number had to be synthesized.
const (
	MethodExtraction         = "pattern_extraction"
	MethodExtractionFallback = "pattern_extraction_fallback"
)

// Result is the terminal artifact of processing one invoice. It is never
// mutated after Assemble returns it.
type Result struct {
	Metadata    Metadata   `json:"order_info"`
	Products    []Product  `json:"products"`
	LineItems   []LineItem `json:"all_products"`
	TotalPoints int64      `json:"total_points"`
	Method      string     `json:"processing_method"`
}
