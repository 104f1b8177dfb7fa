package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"catalogsync/internal/model"
)

var noveltyColumns = []string{
	"run_id", "position", "sku", "name", "categories", "material",
	"price", "discount_price", "stock", "image_url", "permalink", "date_modified",
}

// NoveltyItem is one stored novel product.
type NoveltyItem struct {
	RunID         string
	Position      int
	SKU           string
	Name          string
	Categories    string
	Material      string
	Price         float64
	DiscountPrice float64
	Stock         int
	ImageURL      string
	Permalink     string
}

// NoveltyRepository bulk-loads novelty items over a pgx pool.
type NoveltyRepository struct {
	DB *pgxpool.Pool
}

// SaveAll copies the products of a run in one round trip and returns the
// number of rows written.
func (r *NoveltyRepository) SaveAll(ctx context.Context, runID string, products []model.Product) (int64, error) {
	if len(products) == 0 {
		return 0, nil
	}

	id, err := uuid.Parse(runID)
	if err != nil {
		return 0, fmt.Errorf("run id %q: %w", runID, err)
	}

	n, err := r.DB.CopyFrom(ctx, pgx.Identifier{"novelty_items"}, noveltyColumns,
		pgx.CopyFromRows(noveltyRows(id, products)))
	if err != nil {
		return 0, fmt.Errorf("copy novelty items of run %s: %w", runID, err)
	}

	return n, nil
}

// ListByRun returns the novelty items of a run in their original order.
func (r *NoveltyRepository) ListByRun(ctx context.Context, runID string) ([]NoveltyItem, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("run id %q: %w", runID, err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT run_id, position, sku, name, categories, material,
		       price::float8, discount_price::float8, stock, image_url, permalink
		FROM novelty_items
		WHERE run_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []NoveltyItem
	for rows.Next() {
		var it NoveltyItem
		if err := rows.Scan(&it.RunID, &it.Position, &it.SKU, &it.Name, &it.Categories, &it.Material,
			&it.Price, &it.DiscountPrice, &it.Stock, &it.ImageURL, &it.Permalink); err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

func noveltyRows(runID uuid.UUID, products []model.Product) [][]any {
	rows := make([][]any, 0, len(products))
	for i, p := range products {
		rows = append(rows, []any{
			runID,
			i,
			p.SKU,
			strings.ToValidUTF8(p.Name, ""),
			strings.ToValidUTF8(p.Categories, ""),
			strings.ToValidUTF8(p.Material, ""),
			money(p.Price),
			money(p.DiscountPrice),
			p.Stock,
			p.ImageURL,
			p.Permalink,
			p.DateModified,
		})
	}

	return rows
}

func money(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
