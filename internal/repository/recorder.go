// Package repository persists reconciliation runs in Postgres.
package repository

import (
	"context"
	"log/slog"

	"catalogsync/internal/model"
)

// Recorder stores a run summary and then its novelty items.
type Recorder struct {
	Runs    *RunRepository
	Novelty *NoveltyRepository
	Log     *slog.Logger
}

func (r *Recorder) Record(ctx context.Context, report *model.Report) error {
	if err := r.Runs.Create(ctx, RunFromReport(report)); err != nil {
		return err
	}

	n, err := r.Novelty.SaveAll(ctx, report.RunID, report.Novelty.Products)
	if err != nil {
		return err
	}

	if r.Log != nil {
		r.Log.Info("run recorded", "run_id", report.RunID, "novelty_items", n)
	}
	return nil
}
