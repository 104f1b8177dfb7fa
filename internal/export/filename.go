package export

import (
	"fmt"
	"time"
)

const stampLayout = "20060102_150405"

// Filename names an export file. selected is the size of the SKU selection,
// 0 meaning the whole catalog.
func Filename(kind Kind, selected int, now time.Time) string {
	ts := now.Format(stampLayout)

	switch {
	case kind == KindURLs && selected > 0:
		return fmt.Sprintf("urls_imagenes_seleccionadas_%d_%s.csv", selected, ts)
	case kind == KindURLs:
		return fmt.Sprintf("urls_imagenes_todas_%s.csv", ts)
	case selected > 0:
		return fmt.Sprintf("productos_seleccionados_%d_%s.csv", selected, ts)
	default:
		return fmt.Sprintf("productos_todos_%s.csv", ts)
	}
}

// SelectionSize is the count Filename expects: the rows written for a SKU
// selection, 0 for a whole catalog.
func SelectionSize(rows int, selected []string) int {
	if len(selected) == 0 {
		return 0
	}
	return rows
}
