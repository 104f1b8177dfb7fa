package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"catalogsync/internal/api"
	"catalogsync/internal/crawler"
	"catalogsync/internal/db"
	"catalogsync/internal/export"
	"catalogsync/internal/model"
	"catalogsync/internal/observability"
	"catalogsync/internal/reconcile"
)

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Fetch both catalogs and list the new products",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Ignore the cached report",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "Write a CSV sheet to this file, or to a generated name inside this directory",
			},
			&cli.StringFlag{
				Name:  "kind",
				Value: string(export.KindProducts),
				Usage: "CSV sheet kind (productos, urls)",
			},
			&cli.StringSliceFlag{
				Name:  "sku",
				Usage: "Only export these SKUs",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 50,
				Usage: "Rows shown in the table (0 for all)",
			},
		},
		Action: runReconcile,
	}
}

func runReconcile(c *cli.Context) error {
	kind, err := export.ParseKind(c.String("kind"))
	if err != nil {
		return err
	}

	rt, err := newServices(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	var report *model.Report
	if c.Bool("refresh") {
		report, err = rt.service.Refresh(c.Context)
	} else {
		report, err = rt.service.Run(c.Context)
	}
	if err != nil {
		return err
	}

	printStatuses(report)
	fmt.Printf("\n%d new products (%d candidates, %d already listed)\n\n",
		report.Novelty.Len(), report.Novelty.Candidates, report.Novelty.Known)

	rows, _ := reconcile.Filter{Limit: c.Int("limit")}.Apply(report.Novelty.Products)
	if err := export.WriteTable(os.Stdout, rows); err != nil {
		return err
	}

	if target := c.String("export"); target != "" {
		exporter := export.Exporter{DiscountPercentage: rt.cfg.DiscountPercentage}
		return writeExport(exporter, target, kind, report.Novelty.Products, c.StringSlice("sku"))
	}

	return nil
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch and normalize a single catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "catalog",
				Value: "source",
				Usage: "Catalog to fetch (source, reference)",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "Write the product sheet to this file or directory",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 50,
				Usage: "Rows shown in the table (0 for all)",
			},
		},
		Action: runFetch,
	}
}

func runFetch(c *cli.Context) error {
	rt, err := newServices(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	var fetcher reconcile.CatalogFetcher
	switch c.String("catalog") {
	case "source":
		fetcher = rt.service.Source
	case "reference":
		fetcher = rt.service.Reference
	default:
		return fmt.Errorf("%w: %q", reconcile.ErrUnknownCatalog, c.String("catalog"))
	}

	res, err := fetcher.FetchAll(c.Context, progress)
	if err != nil {
		return err
	}

	products, failed := rt.service.Normalizer.NormalizeAll(fetcher.Name(), res.Items)
	summary := reconcile.Summarize(products)

	fmt.Printf("%s: %d products in %d pages (stop: %s, failed records: %d)\n",
		fetcher.Name(), summary.Total, res.Pages, res.Stop, failed)
	fmt.Printf("with price: %d, with images: %d, stock: %d, average price: %s\n\n",
		summary.WithPrice, summary.WithImages, summary.Stock, export.Money(summary.AveragePrice))
	if res.Partial() {
		fmt.Println("warning: the catalog is incomplete, pagination stopped on errors")
	}

	rows, _ := reconcile.Filter{Limit: c.Int("limit")}.Apply(products)
	if err := export.WriteTable(os.Stdout, rows); err != nil {
		return err
	}

	if target := c.String("export"); target != "" {
		exporter := export.Exporter{DiscountPercentage: rt.cfg.DiscountPercentage}
		return writeExport(exporter, target, export.KindProducts, products, nil)
	}

	return nil
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Show one product of the current report",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "sku",
				Usage:    "SKU to show",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "catalog",
				Value: "source",
				Usage: "Catalog to look in (source, reference, novelty)",
			},
		},
		Action: runInspect,
	}
}

func runInspect(c *cli.Context) error {
	rt, err := newServices(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.service.Run(c.Context)
	if err != nil {
		return err
	}

	snap, err := reconcile.Catalog(report, c.String("catalog"))
	if err != nil {
		return err
	}

	p, ok := snap.Lookup(c.String("sku"))
	if !ok {
		return fmt.Errorf("sku %q not found in %s catalog", c.String("sku"), snap.Catalog)
	}

	fmt.Print(crawler.ProductCard(p))
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the reports over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address; overrides LISTEN_ADDR",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	rt, err := newServices(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	addr := rt.cfg.ListenAddr
	if v := c.String("addr"); v != "" {
		addr = v
	}

	var runs api.RunLister
	if rt.runs != nil {
		runs = rt.runs
	}

	handler := api.NewHandler(rt.service, runs, export.Exporter{DiscountPercentage: rt.cfg.DiscountPercentage}, rt.log)
	srv := api.NewHTTPServer(addr, api.NewServer(handler, rt.log))

	if rt.cfg.MetricsPort != "" {
		observability.Start(rt.cfg.MetricsPort)
	}

	errCh := make(chan error, 1)
	go func() {
		rt.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-c.Context.Done():
	}

	rt.log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or upgrade the run history tables",
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c, false)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}

			conn, err := db.New(c.Context, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			version, dirty, err := db.Migrate(conn)
			if err != nil {
				return err
			}

			log.Info("migrations applied", "version", version, "dirty", dirty)
			return nil
		},
	}
}

func printStatuses(r *model.Report) {
	for _, s := range r.Statuses {
		state := "ok"
		if !s.OK {
			state = "PARTIAL"
		}
		fmt.Printf("%-12s %-8s %6d products  %3d pages  stop=%s  failed=%d  %.1fs\n",
			s.Catalog, state, s.Items, s.Pages, s.Stop, s.FailedRecords, s.ElapsedSeconds)
	}
}

// writeExport writes to target, or to a generated file name when target is
// a directory.
func writeExport(exporter export.Exporter, target string, kind export.Kind, products []model.Product, selected []string) error {
	var buf bytes.Buffer
	n, err := exporter.Write(&buf, kind, products, selected)
	if err != nil {
		return err
	}

	path := target
	if !strings.HasSuffix(strings.ToLower(target), ".csv") {
		path = filepath.Join(target, export.Filename(kind, export.SelectionSize(n, selected), time.Now()))
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return err
	}

	fmt.Printf("\nexported %d rows to %s\n", n, path)
	return nil
}
