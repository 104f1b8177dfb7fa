// Package normalizer turns raw store API product objects into model.Product
// values of a fixed shape.
package normalizer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catalogsync/internal/model"
)

const (
	defaultName       = "Sin nombre"
	noCategory        = "Sin categoría"
	noMaterial        = "N/A"
	errorName         = "Error al procesar"
	errorCategory     = "Error"
	defaultStatus     = "draft"
	defaultType       = "simple"
	defaultVisibility = "visible"
)

// ErrMalformed marks a raw item whose fields could not be interpreted.
var ErrMalformed = errors.New("malformed product")

// Outcome is the result of normalizing one raw item. Record is always
// usable: on failure it holds the ERROR-<index> sentinel.
type Outcome struct {
	Record model.Product
	Err    error
}

// Failed reports whether Record is the error sentinel.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Normalizer maps raw items to products. It holds no state besides its
// settings and is safe to reuse.
type Normalizer struct {
	// DiscountPercentage is applied to Price to derive DiscountPrice.
	DiscountPercentage int
	// Now stamps products whose modification date is missing or unreadable.
	Now func() time.Time

	log *slog.Logger
}

// New creates a normalizer applying discountPercentage.
func New(discountPercentage int, log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}

	return &Normalizer{
		DiscountPercentage: discountPercentage,
		Now:                time.Now,
		log:                log,
	}
}

// Normalize converts raw, found at position index of its catalog, into a
// product. It never panics.
func (n *Normalizer) Normalize(raw model.RawItem, index int) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = n.failure(index, fmt.Errorf("%w: %v", ErrMalformed, r))
		}
	}()

	p, err := n.build(raw, index)
	if err != nil {
		return n.failure(index, err)
	}

	return Outcome{Record: p}
}

// NormalizeAll normalizes a whole catalog, indexing items by position.
// Failed items are kept as sentinels and counted.
func (n *Normalizer) NormalizeAll(catalog string, raws []model.RawItem) ([]model.Product, int) {
	products := make([]model.Product, 0, len(raws))
	failures := 0

	for i, raw := range raws {
		o := n.Normalize(raw, i)
		if o.Failed() {
			failures++
			n.log.Warn("failed to normalize product", "catalog", catalog, "index", i, "error", o.Err)
		}
		products = append(products, o.Record)
	}

	return products, failures
}

func (n *Normalizer) build(raw model.RawItem, index int) (model.Product, error) {
	price, err := extractPrice(raw)
	if err != nil {
		return model.Product{}, err
	}

	categories, err := extractCategories(raw)
	if err != nil {
		return model.Product{}, err
	}

	material, err := extractMaterial(raw)
	if err != nil {
		return model.Product{}, err
	}

	stock, err := extractStock(raw)
	if err != nil {
		return model.Product{}, err
	}

	imageURL, err := firstImage(raw)
	if err != nil {
		return model.Product{}, err
	}

	tags, err := joinNames(raw, "tags", "")
	if err != nil {
		return model.Product{}, err
	}

	return model.Product{
		ID:                identifier(raw["id"], fmt.Sprintf("temp_%d", index)),
		SKU:               identifier(raw["sku"], fmt.Sprintf("%s%d", model.PlaceholderSKUPrefix, index)),
		Name:              identifier(raw["name"], defaultName),
		Slug:              text(raw, "slug", ""),
		Permalink:         text(raw, "permalink", ""),
		Categories:        categories,
		Material:          material,
		Price:             price,
		DiscountPrice:     n.discounted(price),
		Stock:             stock,
		Status:            text(raw, "status", defaultStatus),
		DateModified:      n.modifiedAt(raw["date_modified"]),
		ImageURL:          imageURL,
		Description:       text(raw, "description", ""),
		ShortDescription:  text(raw, "short_description", ""),
		Weight:            text(raw, "weight", ""),
		Dimensions:        object(raw["dimensions"]),
		Tags:              tags,
		Attributes:        list(raw["attributes"]),
		Variations:        list(raw["variations"]),
		Type:              text(raw, "type", defaultType),
		Featured:          flag(raw["featured"]),
		CatalogVisibility: text(raw, "catalog_visibility", defaultVisibility),
		Raw:               raw,
	}, nil
}

func (n *Normalizer) discounted(price float64) float64 {
	return price * (1 - float64(n.DiscountPercentage)/100)
}

func (n *Normalizer) modifiedAt(v any) time.Time {
	if s, ok := v.(string); ok && s != "" {
		if t, err := ParseTimestamp(s); err == nil {
			return t
		}
	}

	return n.Now()
}

func (n *Normalizer) failure(index int, err error) Outcome {
	id := fmt.Sprintf("%s%d", model.ErrorSKUPrefix, index)

	return Outcome{
		Record: model.Product{
			ID:                id,
			SKU:               id,
			Name:              errorName,
			Categories:        errorCategory,
			Material:          errorCategory,
			Status:            defaultStatus,
			DateModified:      n.Now(),
			Dimensions:        map[string]any{},
			Attributes:        []any{},
			Variations:        []any{},
			Type:              defaultType,
			CatalogVisibility: defaultVisibility,
			Raw:               model.RawItem{},
		},
		Err: err,
	}
}

// isPlaceholderText reports values that count as a missing identifier.
func isPlaceholderText(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "None"
}
