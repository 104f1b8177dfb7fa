package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogsync/internal/model"
)

var modified = time.Date(2026, 3, 4, 15, 6, 7, 0, time.UTC)

func sampleProducts() []model.Product {
	return []model.Product{
		{
			SKU: "AN-01", Name: "Anillo Oro", Categories: "Anillos, Oro", Material: "Oro",
			Price: 100, DiscountPrice: 65, Stock: 3, Status: "publish", DateModified: modified,
			ImageURL: "https://cdn.example/an01.jpg", Permalink: "https://tienda.example/an-01",
		},
		{
			SKU: "CA-02", Name: "Cadena", Categories: "Cadenas", Material: "Plata",
			Price: 19.995, DiscountPrice: 12.99675, Stock: 1, Status: "publish", DateModified: modified,
		},
	}
}

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(b, []byte(bom)), "missing BOM")

	records, err := csv.NewReader(bytes.NewReader(b[len(bom):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWrite_Products(t *testing.T) {
	var buf bytes.Buffer
	n, err := Exporter{DiscountPercentage: 35}.Write(&buf, KindProducts, sampleProducts(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 3)
	assert.Equal(t, []string{
		"SKU", "Nombre", "Categorías", "Material", "Precio", "Precio con Descuento 35%",
		"Stock", "Estado", "Fecha Modificación", "URL Imagen", "Enlace Producto",
	}, records[0])
	assert.Equal(t, []string{
		"AN-01", "Anillo Oro", "Anillos, Oro", "Oro", "100.00", "65.00",
		"3", "publish", "2026-03-04 15:06:07", "https://cdn.example/an01.jpg", "https://tienda.example/an-01",
	}, records[1])
	assert.Equal(t, "20.00", records[2][4])
	assert.Equal(t, "13.00", records[2][5])
}

func TestWrite_URLsOnlyWithImages(t *testing.T) {
	var buf bytes.Buffer
	n, err := Exporter{}.Write(&buf, KindURLs, sampleProducts(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records := readCSV(t, buf.Bytes())
	assert.Equal(t, [][]string{
		{"SKU", "Nombre Producto", "URL Imagen"},
		{"AN-01", "Anillo Oro", "https://cdn.example/an01.jpg"},
	}, records)
}

func TestWrite_Selection(t *testing.T) {
	var buf bytes.Buffer
	n, err := Exporter{DiscountPercentage: 35}.Write(&buf, KindProducts, sampleProducts(), []string{"CA-02", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, "CA-02", records[1][0])
}

func TestWrite_NothingToExport(t *testing.T) {
	var buf bytes.Buffer

	_, err := Exporter{}.Write(&buf, KindProducts, nil, nil)
	assert.ErrorIs(t, err, ErrNothingToExport)

	_, err = Exporter{}.Write(&buf, KindURLs, sampleProducts(), []string{"CA-02"})
	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.Zero(t, buf.Len())
}

func TestWrite_UnknownKind(t *testing.T) {
	_, err := Exporter{}.Write(&bytes.Buffer{}, Kind("xml"), sampleProducts(), nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_WriterError(t *testing.T) {
	_, err := Exporter{}.Write(failingWriter{}, KindProducts, sampleProducts(), nil)
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("urls")
	require.NoError(t, err)
	assert.Equal(t, KindURLs, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindProducts, k)

	_, err = ParseKind("pdf")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 5, 3, 0, time.UTC)

	assert.Equal(t, "productos_todos_20261018_090503.csv", Filename(KindProducts, 0, now))
	assert.Equal(t, "productos_seleccionados_4_20261018_090503.csv", Filename(KindProducts, 4, now))
	assert.Equal(t, "urls_imagenes_todas_20261018_090503.csv", Filename(KindURLs, 0, now))
	assert.Equal(t, "urls_imagenes_seleccionadas_2_20261018_090503.csv", Filename(KindURLs, 2, now))
}

func TestSelectionSize(t *testing.T) {
	assert.Equal(t, 0, SelectionSize(12, nil))
	assert.Equal(t, 1, SelectionSize(1, []string{"CA-02", "unknown", "other"}))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.00", Money(0))
	assert.Equal(t, "65.00", Money(65))
	assert.Equal(t, "1234567.89", Money(1234567.891))
	assert.Equal(t, "0.13", Money(0.125))
}

func TestWriteTable(t *testing.T) {
	products := sampleProducts()
	products[1].Name = strings.Repeat("Collar largo ", 10)

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, products))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "SKU"))
	assert.True(t, strings.HasPrefix(lines[1], "---"))
	assert.Contains(t, lines[2], "AN-01")
	assert.Contains(t, lines[2], "65.00")
	assert.Contains(t, lines[3], "…")

	// Columns line up even with accented headers.
	idx := strings.Index(lines[0], "Categorías")
	assert.Equal(t, runewidth.StringWidth(lines[0][:idx]), runewidth.StringWidth(lines[2][:strings.Index(lines[2], "Anillos")]))
}
