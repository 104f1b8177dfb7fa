// Package export renders products as CSV files and terminal tables.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"catalogsync/internal/model"
)

// Kind selects the CSV layout.
type Kind string

const (
	// KindProducts writes the full product sheet.
	KindProducts Kind = "productos"
	// KindURLs writes image URLs only, for products that have one.
	KindURLs Kind = "urls"
)

const (
	dateLayout = "2006-01-02 15:04:05"
	bom        = "\ufeff"
)

var (
	ErrNothingToExport = errors.New("nothing to export")
	ErrUnknownKind     = errors.New("unknown export kind")
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindProducts, KindURLs:
		return Kind(s), nil
	case "":
		return KindProducts, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Exporter writes CSV sheets. DiscountPercentage only labels the discount
// column; the values come from the products.
type Exporter struct {
	DiscountPercentage int
}

// Write renders the products of kind to w, restricted to the selected SKUs
// when any are given, and returns the number of data rows. Nothing is
// written when no row qualifies.
func (e Exporter) Write(w io.Writer, kind Kind, products []model.Product, selected []string) (int, error) {
	rows := Select(products, selected)
	if kind == KindURLs {
		rows = withImages(rows)
	}
	if len(rows) == 0 {
		return 0, ErrNothingToExport
	}

	var header []string
	var record func(p model.Product) []string

	switch kind {
	case KindProducts:
		header = e.productHeader()
		record = productRecord
	case KindURLs:
		header = []string{"SKU", "Nombre Producto", "URL Imagen"}
		record = urlRecord
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if _, err := io.WriteString(w, bom); err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	for _, p := range rows {
		if err := cw.Write(record(p)); err != nil {
			return 0, err
		}
	}
	cw.Flush()

	return len(rows), cw.Error()
}

// Select keeps the products whose SKU is in selected, in their original
// order. An empty selection keeps everything.
func Select(products []model.Product, selected []string) []model.Product {
	if len(selected) == 0 {
		return products
	}

	want := make(map[string]struct{}, len(selected))
	for _, sku := range selected {
		want[sku] = struct{}{}
	}

	out := make([]model.Product, 0, len(selected))
	for _, p := range products {
		if _, ok := want[p.SKU]; ok {
			out = append(out, p)
		}
	}

	return out
}

func withImages(products []model.Product) []model.Product {
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.HasImage() {
			out = append(out, p)
		}
	}
	return out
}

func (e Exporter) productHeader() []string {
	return []string{
		"SKU",
		"Nombre",
		"Categorías",
		"Material",
		"Precio",
		fmt.Sprintf("Precio con Descuento %d%%", e.DiscountPercentage),
		"Stock",
		"Estado",
		"Fecha Modificación",
		"URL Imagen",
		"Enlace Producto",
	}
}

func productRecord(p model.Product) []string {
	return []string{
		p.SKU,
		p.Name,
		p.Categories,
		p.Material,
		Money(p.Price),
		Money(p.DiscountPrice),
		strconv.Itoa(p.Stock),
		p.Status,
		p.DateModified.Format(dateLayout),
		p.ImageURL,
		p.Permalink,
	}
}

func urlRecord(p model.Product) []string {
	return []string{p.SKU, p.Name, p.ImageURL}
}

// Money formats v rounded half away from zero to two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}
