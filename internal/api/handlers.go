package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"catalogsync/internal/export"
	"catalogsync/internal/model"
	"catalogsync/internal/reconcile"
	"catalogsync/internal/repository"
)

// ReportService produces reconciliation reports. reconcile.Service
// implements it.
type ReportService interface {
	Run(ctx context.Context) (*model.Report, error)
	Refresh(ctx context.Context) (*model.Report, error)
}

// RunLister lists stored runs. repository.RunRepository implements it.
type RunLister interface {
	ListRecent(ctx context.Context, limit int) ([]repository.Run, error)
}

// Handler serves the API routes.
type Handler struct {
	service  ReportService
	runs     RunLister
	exporter export.Exporter
	log      *slog.Logger
	now      func() time.Time
}

// NewHandler creates a handler. runs may be nil when run history is not
// configured.
func NewHandler(service ReportService, runs RunLister, exporter export.Exporter, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		service:  service,
		runs:     runs,
		exporter: exporter,
		log:      log,
		now:      time.Now,
	}
}

type reportMeta struct {
	RunID      string               `json:"run_id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Partial    bool                 `json:"partial"`
	Statuses   []model.SourceStatus `json:"statuses"`
}

type listing struct {
	reportMeta
	Catalog  string            `json:"catalog"`
	Total    int               `json:"total"`
	Count    int               `json:"count"`
	Summary  reconcile.Summary `json:"summary"`
	Products []model.Product   `json:"products"`
}

func meta(r *model.Report) reportMeta {
	return reportMeta{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Partial:    r.Partial(),
		Statuses:   r.Statuses,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetNovelty lists the products only the source catalog offers.
func (h *Handler) GetNovelty(c *gin.Context) {
	h.list(c, "novelty")
}

// GetCatalog lists one catalog of the current report.
func (h *Handler) GetCatalog(c *gin.Context) {
	h.list(c, c.Param("catalog"))
}

func (h *Handler) list(c *gin.Context, catalog string) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, ok := h.report(c)
	if !ok {
		return
	}

	snap, err := reconcile.Catalog(report, catalog)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	products, total := filter.Apply(snap.Products)
	c.JSON(http.StatusOK, listing{
		reportMeta: meta(report),
		Catalog:    snap.Catalog,
		Total:      total,
		Count:      len(products),
		Summary:    reconcile.Summarize(snap.Products),
		Products:   products,
	})
}

// GetSummary returns the statistics of both catalogs and of the novelty set.
func (h *Handler) GetSummary(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run":        meta(report),
		"source":     reconcile.Summarize(report.Source.Products),
		"reference":  reconcile.Summarize(report.Reference.Products),
		"novelty":    reconcile.Summarize(report.Novelty.Products),
		"candidates": report.Novelty.Candidates,
		"known":      report.Novelty.Known,
	})
}

// Export downloads a CSV sheet. Query: catalog (default novelty) and any
// number of sku values.
func (h *Handler) Export(c *gin.Context) {
	kind, err := export.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, ok := h.report(c)
	if !ok {
		return
	}

	snap, err := reconcile.Catalog(report, c.DefaultQuery("catalog", "novelty"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	selected := c.QueryArray("sku")

	var buf bytes.Buffer
	n, err := h.exporter.Write(&buf, kind, snap.Products, selected)
	if err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("export failed", "kind", kind, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	filename := export.Filename(kind, export.SelectionSize(n, selected), h.now())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Refresh discards the cached report and runs the pipeline again.
func (h *Handler) Refresh(c *gin.Context) {
	report, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run":     meta(report),
		"novelty": report.Novelty.Len(),
	})
}

// ListRuns returns the stored run history, newest first.
func (h *Handler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run history is not configured"})
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("list runs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *Handler) report(c *gin.Context) (*model.Report, bool) {
	report, err := h.service.Run(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return report, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.log.Error("reconciliation failed", "error", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

func parseFilter(c *gin.Context) (reconcile.Filter, error) {
	f := reconcile.Filter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
	}

	if v := c.Query("max_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p < 0 {
			return f, errors.New("max_price must be a non-negative number")
		}
		f.MaxPrice = p
	}

	if v := c.Query("min_stock"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("min_stock must be an integer")
		}
		f.MinStock = &n
	}

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}

	return f, nil
}
