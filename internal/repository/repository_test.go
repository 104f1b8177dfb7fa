package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogsync/internal/db"
	"catalogsync/internal/model"
)

var modified = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func testReport() *model.Report {
	novel := []model.Product{
		{SKU: "N1", Name: "Anillo", Categories: "Anillos", Material: "Oro", Price: 10.456, DiscountPrice: 6.7964, Stock: 2, DateModified: modified},
		{SKU: "N2", Name: "Aro\xff", Categories: "Aros", Material: "N/A", Price: 5, DiscountPrice: 3.25, Stock: 1, DateModified: modified},
	}

	return &model.Report{
		RunID:      uuid.NewString(),
		StartedAt:  modified,
		FinishedAt: modified.Add(time.Minute),
		Source:     model.NewSnapshot("tienda", modified, append([]model.Product{{SKU: "K"}}, novel...)),
		Reference:  model.NewSnapshot("referencia", modified, []model.Product{{SKU: "K"}}),
		Novelty:    model.NoveltySet{Products: novel, Candidates: 3, Known: 1},
		Statuses: []model.SourceStatus{
			{Catalog: "tienda", Items: 3, OK: true},
			{Catalog: "referencia", Items: 1, OK: false, Stop: "too_many_errors"},
		},
	}
}

func TestRunFromReport(t *testing.T) {
	report := testReport()
	run := RunFromReport(report)

	assert.Equal(t, report.RunID, run.ID)
	assert.Equal(t, "tienda", run.SourceCatalog)
	assert.Equal(t, "referencia", run.ReferenceCatalog)
	assert.Equal(t, 3, run.SourceProducts)
	assert.Equal(t, 1, run.ReferenceProducts)
	assert.Equal(t, 3, run.Candidates)
	assert.Equal(t, 1, run.Known)
	assert.Equal(t, 2, run.Novelty)
	assert.True(t, run.Partial)
	assert.Len(t, run.Statuses, 2)
}

func TestRunFromReport_NilStatuses(t *testing.T) {
	run := RunFromReport(&model.Report{})
	assert.NotNil(t, run.Statuses)
	assert.False(t, run.Partial)
}

func TestNoveltyRows(t *testing.T) {
	report := testReport()
	id := uuid.MustParse(report.RunID)
	rows := noveltyRows(id, report.Novelty.Products)

	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Len(t, row, len(noveltyColumns))
	}

	assert.Equal(t, id, rows[0][0])
	assert.Equal(t, 0, rows[0][1])
	assert.Equal(t, "N1", rows[0][2])
	assert.InDelta(t, 10.46, rows[0][6], 1e-9)
	assert.InDelta(t, 6.80, rows[0][7], 1e-9)
	assert.Equal(t, 1, rows[1][1])
	assert.Equal(t, "Aro", rows[1][3])
	assert.Equal(t, modified, rows[1][11])
}

func TestNoveltyRepository_RejectsBadRunID(t *testing.T) {
	r := &NoveltyRepository{}

	_, err := r.SaveAll(context.Background(), "not-a-uuid", []model.Product{{SKU: "A"}})
	assert.Error(t, err)

	n, err := r.SaveAll(context.Background(), "not-a-uuid", nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestMoney(t *testing.T) {
	assert.InDelta(t, 0.0, money(0), 1e-9)
	assert.InDelta(t, 19.99, money(19.985), 1e-9)
	assert.InDelta(t, 65.0, money(65.0000001), 1e-9)
}

// TestRecorder_Postgres needs a disposable database.
func TestRecorder_Postgres(t *testing.T) {
	url := os.Getenv("CATALOGSYNC_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CATALOGSYNC_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	conn, err := db.New(ctx, url)
	require.NoError(t, err)
	defer conn.Close()

	_, dirty, err := db.Migrate(conn)
	require.NoError(t, err)
	require.False(t, dirty)

	pool, err := db.NewPool(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	rec := &Recorder{Runs: &RunRepository{DB: conn}, Novelty: &NoveltyRepository{DB: pool}}
	report := testReport()
	require.NoError(t, rec.Record(ctx, report))

	runs, err := rec.Runs.ListRecent(ctx, 50)
	require.NoError(t, err)

	var found *Run
	for i := range runs {
		if runs[i].ID == report.RunID {
			found = &runs[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, 2, found.Novelty)
	assert.Len(t, found.Statuses, 2)

	items, err := rec.Novelty.ListByRun(ctx, report.RunID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "N1", items[0].SKU)
	assert.InDelta(t, 10.46, items[0].Price, 1e-9)
}
