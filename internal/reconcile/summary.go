package reconcile

import (
	"strings"

	"catalogsync/internal/model"
)

// Summary aggregates a list of products for display.
type Summary struct {
	Total      int `json:"total"`
	WithPrice  int `json:"with_price"`
	WithImages int `json:"with_images"`
	Stock      int `json:"stock"`
	// PriceSum and AveragePrice only count products with a positive price.
	PriceSum     float64 `json:"price_sum"`
	AveragePrice float64 `json:"average_price"`
}

// Summarize computes the catalog statistics for products.
func Summarize(products []model.Product) Summary {
	var s Summary
	s.Total = len(products)

	for _, p := range products {
		if p.HasImage() {
			s.WithImages++
		}
		s.Stock += p.Stock
		if p.Price > 0 {
			s.WithPrice++
			s.PriceSum += p.Price
		}
	}

	if s.WithPrice > 0 {
		s.AveragePrice = s.PriceSum / float64(s.WithPrice)
	}

	return s
}

// Filter narrows a product listing the way the catalog views do.
type Filter struct {
	// Search matches name or SKU, case-insensitive.
	Search string
	// Category matches a substring of the joined category names.
	Category string
	// MaxPrice drops products above it when positive.
	MaxPrice float64
	// MinStock drops products with less stock when set.
	MinStock *int
	// Limit caps the returned rows when positive.
	Limit int
}

// Apply returns the matching products, at most Limit of them, and the
// number of matches before the limit.
func (f Filter) Apply(products []model.Product) ([]model.Product, int) {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		if f.Category != "" && !strings.Contains(p.Categories, f.Category) {
			continue
		}
		if f.MaxPrice > 0 && p.Price > f.MaxPrice {
			continue
		}
		if f.MinStock != nil && p.Stock < *f.MinStock {
			continue
		}
		out = append(out, p)
	}

	total := len(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}

	return out, total
}
