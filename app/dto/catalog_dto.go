package dto

// ImportNumbersRequest merges a batch of numbers into a named range
type ImportNumbersRequest struct {
	RangeName string   `json:"range_name" validate:"required,min=1,max=255"`
	Numbers   []string `json:"numbers" validate:"required,min=1,max=10000,dive,required,max=32"`
}

// ImportNumbersResponse reports the outcome of an import
type ImportNumbersResponse struct {
	RangeID  string `json:"range_id"`
	Name     string `json:"name"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// SetPriceRequest sets the per-SMS price of a range
type SetPriceRequest struct {
	PriceCents int64 `json:"price_cents" validate:"required,gt=0"`
}

// RangeInventoryResponse is one row of the storefront range listing
type RangeInventoryResponse struct {
	RangeID      string `json:"range_id"`
	Name         string `json:"name"`
	TotalNumbers int64  `json:"total_numbers"`
	Available    int64  `json:"available"`
	PriceCents   int64  `json:"price_cents"`
}
