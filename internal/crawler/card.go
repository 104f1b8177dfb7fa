package crawler

import (
	"fmt"
	"strings"

	"catalogsync/internal/model"
)

// ProductCard renders a normalized product as a plain-text sheet for
// terminal inspection.
func ProductCard(p model.Product) string {
	var sb strings.Builder

	sb.WriteString(p.Name + "\n")
	sb.WriteString(strings.Repeat("=", len([]rune(p.Name))) + "\n\n")

	sb.WriteString("SKU: " + p.SKU + "\n")
	sb.WriteString("ID: " + p.ID + "\n")
	sb.WriteString("Estado: " + p.Status + "\n")
	sb.WriteString("Categorías: " + p.Categories + "\n")
	sb.WriteString("Material: " + p.Material + "\n")
	if p.Tags != "" {
		sb.WriteString("Etiquetas: " + p.Tags + "\n")
	}
	sb.WriteString(fmt.Sprintf("Precio: %.2f\n", p.Price))
	sb.WriteString(fmt.Sprintf("Precio con descuento: %.2f\n", p.DiscountPrice))
	sb.WriteString(fmt.Sprintf("Stock: %d\n", p.Stock))
	if p.Weight != "" {
		sb.WriteString("Peso: " + p.Weight + "\n")
	}
	sb.WriteString("Modificado: " + p.DateModified.Format("2006-01-02 15:04:05") + "\n")

	if short := PlainText(p.ShortDescription); short != "" {
		sb.WriteString("\nResumen:\n" + short + "\n")
	}
	if long := PlainText(p.Description); long != "" {
		sb.WriteString("\nDescripción:\n" + long + "\n")
	}

	if p.Permalink != "" {
		sb.WriteString("\nURL: " + p.Permalink + "\n")
	}
	if p.ImageURL != "" {
		sb.WriteString("Imagen: " + p.ImageURL + "\n")
	}

	return sb.String()
}
