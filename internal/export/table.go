package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"catalogsync/internal/model"
)

const maxCellWidth = 40

var tableHeader = []string{"SKU", "Nombre", "Categorías", "Precio", "Descuento", "Stock", "Modificado"}

// WriteTable prints products as an aligned text table. Wide cells are
// truncated with an ellipsis; width accounts for accented and wide runes.
func WriteTable(w io.Writer, products []model.Product) error {
	rows := make([][]string, 0, len(products)+1)
	rows = append(rows, append([]string(nil), tableHeader...))
	for _, p := range products {
		rows = append(rows, []string{
			p.SKU,
			p.Name,
			p.Categories,
			Money(p.Price),
			Money(p.DiscountPrice),
			strconv.Itoa(p.Stock),
			p.DateModified.Format("2006-01-02"),
		})
	}

	widths := make([]int, len(tableHeader))
	for _, row := range rows {
		for i, cell := range row {
			row[i] = runewidth.Truncate(cell, maxCellWidth, "…")
			if cw := runewidth.StringWidth(row[i]); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for r, row := range rows {
		if err := writeRow(w, row, widths); err != nil {
			return err
		}
		if r == 0 {
			sep := make([]string, len(widths))
			for i, width := range widths {
				sep[i] = strings.Repeat("-", width)
			}
			if err := writeRow(w, sep, widths); err != nil {
				return err
			}
		}
	}

	return nil
}

func writeRow(w io.Writer, row []string, widths []int) error {
	cells := make([]string, len(row))
	for i, cell := range row {
		cells[i] = runewidth.FillRight(cell, widths[i])
	}

	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	return err
}
