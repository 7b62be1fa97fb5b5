package models

// PricingRequest is the pricing-oriented projection of a complete requirement.
type PricingRequest struct {
	BoxType    string         `json:"box_type"`
	Material   string         `json:"material"`
	Dimensions Dimensions     `json:"dimensions"`
	Quantity   int            `json:"quantity"`
	Inner      *string        `json:"inner"`
	Coatings   []string       `json:"coatings"`
	Stampings  []StampingSpec `json:"stampings"`
}

// StampingSpec is one stamping job in a pricing request.
type StampingSpec struct {
	Type     string `json:"type"`
	HasBlock bool   `json:"has_block"`
}

// LineItem is one priced component of a quote.
type LineItem struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	PricePerBox float64 `json:"price_per_box"`
	SetupCost   float64 `json:"setup_cost,omitempty"`
	Total       float64 `json:"total"`
}

// Breakdown is a priced quote.
type Breakdown struct {
	Quantity    int        `json:"quantity"`
	SurfaceArea float64    `json:"surface_area"`
	AreaRatio   float64    `json:"area_ratio"`
	Box         LineItem   `json:"box"`
	Inner       *LineItem  `json:"inner,omitempty"`
	Coatings    []LineItem `json:"coatings,omitempty"`
	Stampings   []LineItem `json:"stampings,omitempty"`
	Subtotal    float64    `json:"subtotal"`
	VATRate     float64    `json:"vat_rate"`
	VAT         float64    `json:"vat"`
	GrandTotal  float64    `json:"grand_total"`
	PerBox      float64    `json:"per_box"`
}
