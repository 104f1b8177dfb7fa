package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"catalogsync/internal/model"
)

// Run is the stored summary of one reconciliation run.
type Run struct {
	ID                string               `json:"id"`
	StartedAt         time.Time            `json:"started_at"`
	FinishedAt        time.Time            `json:"finished_at"`
	SourceCatalog     string               `json:"source_catalog"`
	ReferenceCatalog  string               `json:"reference_catalog"`
	SourceProducts    int                  `json:"source_products"`
	ReferenceProducts int                  `json:"reference_products"`
	Candidates        int                  `json:"candidates"`
	Known             int                  `json:"known"`
	Novelty           int                  `json:"novelty"`
	Partial           bool                 `json:"partial"`
	Statuses          []model.SourceStatus `json:"statuses"`
}

// RunFromReport summarizes r for storage.
func RunFromReport(r *model.Report) Run {
	statuses := r.Statuses
	if statuses == nil {
		statuses = []model.SourceStatus{}
	}

	return Run{
		ID:                r.RunID,
		StartedAt:         r.StartedAt,
		FinishedAt:        r.FinishedAt,
		SourceCatalog:     r.Source.Catalog,
		ReferenceCatalog:  r.Reference.Catalog,
		SourceProducts:    r.Source.Len(),
		ReferenceProducts: r.Reference.Len(),
		Candidates:        r.Novelty.Candidates,
		Known:             r.Novelty.Known,
		Novelty:           r.Novelty.Len(),
		Partial:           r.Partial(),
		Statuses:          statuses,
	}
}

// RunRepository stores run summaries through database/sql.
type RunRepository struct {
	DB *sql.DB
}

func (r *RunRepository) Create(ctx context.Context, run Run) error {
	statuses, err := json.Marshal(run.Statuses)
	if err != nil {
		return fmt.Errorf("encode statuses: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO reconciliation_runs
		(id, started_at, finished_at, source_catalog, reference_catalog,
		 source_products, reference_products, candidates, known, novelty, partial, statuses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, run.ID, run.StartedAt, run.FinishedAt, run.SourceCatalog, run.ReferenceCatalog,
		run.SourceProducts, run.ReferenceProducts, run.Candidates, run.Known, run.Novelty,
		run.Partial, string(statuses))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	return nil
}

// ListRecent returns up to limit runs, newest first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, started_at, finished_at, source_catalog, reference_catalog,
		       source_products, reference_products, candidates, known, novelty, partial, statuses
		FROM reconciliation_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Run{}
	for rows.Next() {
		var (
			run      Run
			statuses []byte
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.SourceCatalog, &run.ReferenceCatalog,
			&run.SourceProducts, &run.ReferenceProducts, &run.Candidates, &run.Known, &run.Novelty,
			&run.Partial, &statuses); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(statuses, &run.Statuses); err != nil {
			return nil, fmt.Errorf("decode statuses of run %s: %w", run.ID, err)
		}
		list = append(list, run)
	}

	return list, rows.Err()
}
