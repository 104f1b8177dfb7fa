package model

import "time"

// RawItem is one product object exactly as the store API returned it.
// No field is guaranteed to exist or to have the expected type.
type RawItem map[string]any

const (
	PlaceholderSKUPrefix = "PROD-"
	ErrorSKUPrefix       = "ERROR-"
)

// Product is the canonical shape of a catalog entry after normalization.
type Product struct {
	ID                string         `json:"id"`
	SKU               string         `json:"sku"`
	Name              string         `json:"name"`
	Slug              string         `json:"slug"`
	Permalink         string         `json:"permalink"`
	Categories        string         `json:"categories"`
	Material          string         `json:"material"`
	Price             float64        `json:"price"`
	DiscountPrice     float64        `json:"discount_price"`
	Stock             int            `json:"stock"`
	Status            string         `json:"status"`
	DateModified      time.Time      `json:"date_modified"`
	ImageURL          string         `json:"image_url"`
	Description       string         `json:"description"`
	ShortDescription  string         `json:"short_description"`
	Weight            string         `json:"weight"`
	Dimensions        map[string]any `json:"dimensions"`
	Tags              string         `json:"tags"`
	Attributes        []any          `json:"attributes"`
	Variations        []any          `json:"variations"`
	Type              string         `json:"type"`
	Featured          bool           `json:"featured"`
	CatalogVisibility string         `json:"catalog_visibility"`
	Raw               RawItem        `json:"raw"`
}

// HasImage reports whether the product carries a primary image.
func (p Product) HasImage() bool {
	return p.ImageURL != ""
}
