package kitchenserver

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"kitchen-ledger/internal/archive"
	"kitchen-ledger/internal/catalog"
	"kitchen-ledger/internal/ledger"
	"kitchen-ledger/internal/reportapi"
	"kitchen-ledger/internal/stock"
	"kitchen-ledger/internal/storage"
	"kitchen-ledger/internal/syncserver"
	"kitchen-ledger/pkg/config"
	"kitchen-ledger/pkg/logger"
	"kitchen-ledger/pkg/rabbitmq"

	"golang.org/x/sync/errgroup"
)

// Run wires the whole kitchen server: store, catalog, the three ledgers,
// the websocket sync server and the report API, then blocks until the
// context is cancelled.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("kitchen-server", flag.ContinueOnError)
	configPath := fs.String("config-path", "config.yaml", "path to the yaml config file")
	wsPort := fs.Int("ws-port", 0, "override the websocket port")
	reportPort := fs.Int("report-port", 0, "override the report API port")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("cannot parse arguments: %w", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *wsPort != 0 {
		cfg.Server.WSPort = *wsPort
	}
	if *reportPort != 0 {
		cfg.Server.ReportPort = *reportPort
	}

	log := logger.NewLogger("kitchen-server")

	// One store for the whole process: Postgres when configured,
	// otherwise JSON files under the data directory.
	var store storage.Store
	if cfg.Database != nil {
		store, err = storage.ConnectPostgres(cfg.Database, log)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
	} else {
		store, err = storage.NewFileStore(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		log.Info("startup", "file_store_opened", "Using file store at "+cfg.Storage.DataDir)
	}
	defer store.Close()

	cat, err := catalog.Load(cfg.Server.MenuPath, cfg.Server.IngredientsPath, cfg.Server.RequiredLocales)
	if err != nil {
		return err
	}
	log.Info("startup", "catalog_loaded",
		fmt.Sprintf("Catalog loaded: %d items, %d ingredients", len(cat.Items()), len(cat.Ingredients())))

	// Restore persisted state before taking any traffic.
	st := stock.New(store, log)
	st.Seed(cat.Items())
	counters, err := store.LoadStock(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stock counters: %w", err)
	}
	st.Restore(counters)

	arch := archive.New(store, cfg.Server.Locale, log)
	days, err := store.LoadArchive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load archive: %w", err)
	}
	arch.Restore(days)

	led := ledger.New(store, st, arch, log)
	rec, err := store.LoadLedger(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ledger record: %w", err)
	}
	led.Restore(rec)
	log.Info("startup", "ledger_restored",
		fmt.Sprintf("Ledger restored: %d live lines", len(rec.Orders)))

	// Close-out events go to RabbitMQ when it is configured. Publish
	// failures are logged only; the archive already holds the record.
	if cfg.RabbitMQ != nil {
		rmq, err := rabbitmq.ConnectRabbitMQ(cfg.RabbitMQ, log)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer rmq.Close()

		led.Subscribe(func(change ledger.Change) {
			if change.Type != ledger.TableClosed || change.Closeout == nil {
				return
			}
			if err := rmq.PublishCloseout(change.Closeout); err != nil {
				log.Error("", "closeout_publish_failed", "Failed to publish close-out event", err)
			}
		})
	}

	syncSrv := syncserver.NewServer(cfg.Server.WSPort, cfg.Server.GridCols, cfg.Server.GridRows,
		cfg.Server.Locale, cfg.Server.RequiredLocales, led, cat, log)

	reportHandler := reportapi.NewHandler(led, arch, log)
	reportSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.ReportPort),
		Handler: reportHandler.Routes(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return syncSrv.Run(gctx)
	})

	g.Go(func() error {
		log.Info("startup", "report_api_listening", "Report API listening on "+reportSrv.Addr)
		if err := reportSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("report API failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return reportSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("shutdown", "server_stopped", "Kitchen server stopped")
	return err
}
