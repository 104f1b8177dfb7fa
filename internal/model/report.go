package model

import "time"

// NoveltySet holds the source products whose SKU is unknown to the
// reference catalog, newest first.
type NoveltySet struct {
	Products []Product `json:"products"`
	// Candidates counts distinct valid SKUs in the source catalog.
	Candidates int `json:"candidates"`
	// Known counts the candidates already present in the reference catalog.
	Known int `json:"known"`
}

// Len returns the number of novel products.
func (n NoveltySet) Len() int {
	return len(n.Products)
}

// SourceStatus describes how the fetch of one catalog ended.
type SourceStatus struct {
	Catalog        string  `json:"catalog"`
	Items          int     `json:"items"`
	Pages          int     `json:"pages"`
	Stop           string  `json:"stop"`
	PageFailures   int     `json:"page_failures"`
	FailedRecords  int     `json:"failed_records"`
	OK             bool    `json:"ok"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Report is the outcome of one reconciliation run.
type Report struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Source     Snapshot       `json:"source"`
	Reference  Snapshot       `json:"reference"`
	Novelty    NoveltySet     `json:"novelty"`
	Statuses   []SourceStatus `json:"statuses"`
}

// Partial reports whether any catalog was truncated by fetch failures.
func (r *Report) Partial() bool {
	for _, s := range r.Statuses {
		if !s.OK {
			return true
		}
	}

	return false
}
