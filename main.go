package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"sheriff-scraper/config"
	"sheriff-scraper/parser"
	"sheriff-scraper/scraper"
	"sheriff-scraper/server"
	"sheriff-scraper/services"
	"sheriff-scraper/storage"
	"sheriff-scraper/utils"
)

func main() {
	once := flag.Bool("once", false, "scrape every configured source once and exit")
	flag.Parse()

	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Sheriff-Sale Scraping System starting ===")

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		logger.Error("Failed to load source layouts: %v", err)
		os.Exit(1)
	}
	logger.Info("Config — sources: %v | export: %s | settle: %dms",
		sources.IDs(), cfg.CSVExportPath, cfg.SettleDelayMs)

	store, err := storage.NewPostgresStore(cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	exporter, err := storage.NewCSVExporter(cfg.CSVExportPath)
	if err != nil {
		logger.Error("Failed to create CSV exporter: %v", err)
		os.Exit(1)
	}

	sync := services.NewSync(store, exporter, logger)
	pipeline := services.NewPipeline(
		sources,
		scraper.NewFetcher(cfg, logger),
		parser.NewParser(logger),
		services.NewNormalizer(logger),
		services.NewMerger(logger),
		store,
		sync,
		logger,
	)

	if *once {
		if err := pipeline.RunAll(context.Background()); err != nil {
			logger.Error("Scrape run finished with errors: %v", err)
			os.Exit(1)
		}
		logger.Info("Scrape run complete. Export → %s", cfg.CSVExportPath)
		return
	}

	srv := server.New(pipeline, store, sync, cfg.CSVExportPath, logger)
	logger.Info("Listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router()); err != nil {
		logger.Error("HTTP server stopped: %v", err)
		os.Exit(1)
	}
}
