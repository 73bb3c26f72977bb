package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/fetcher"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
	"github.com/aluiziolira/go-scrape-catalog/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const productDetailsOutput = "amazon_product_details.csv"

func main() {
	if err := run(); err != nil {
		slog.Error("scrape failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flag.StringVar(&cfg.Query, "query", cfg.Query, "Search term")
	flag.IntVar(&cfg.MaxPages, "pages", cfg.MaxPages, "Number of result pages to scrape")
	flag.StringVar(&cfg.Fetcher, "fetcher", cfg.Fetcher, "Page fetcher: browser or http")
	flag.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run the browser without a window")
	flag.StringVar(&cfg.OutputName, "output", cfg.OutputName, "Output file name")
	flag.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Output directory")
	flag.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: csv, json, or dual")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Storefront base URL")
	flag.DurationVar(&cfg.ReadyTimeout, "ready-timeout", cfg.ReadyTimeout, "How long to wait for search results to render")
	products := flag.String("product", "", "Comma-separated product URLs to scrape instead of a search")
	flag.Parse()

	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	cfg.Fetcher = strings.ToLower(cfg.Fetcher)

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := func(f fetcher.Fetcher) error {
		return scrape(ctx, cfg, f, splitURLs(*products))
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.String("query", cfg.Query),
		slog.Int("pages", cfg.MaxPages),
		slog.String("fetcher", cfg.Fetcher),
	)

	if cfg.Fetcher == "http" {
		return job(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.RequestTimeout,
		}))
	}
	return fetcher.WithBrowser(fetcher.BrowserOptions{
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
		Bin:       cfg.BrowserBin,
	}, func(bf *fetcher.BrowserFetcher) error {
		return job(bf)
	})
}

func scrape(ctx context.Context, cfg *config.Config, f fetcher.Fetcher, productURLs []string) error {
	sink := pipeline.NewFileSink(cfg.OutputDir, cfg.OutputFormat)
	s, err := scraper.NewScraper(cfg, f, sink)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, s.Metrics)
	defer stopMetricsServer(metricsServer)

	startTime := time.Now()

	if len(productURLs) > 0 {
		name := cfg.OutputName
		if name == config.DefaultConfig().OutputName {
			name = productDetailsOutput
		}
		records, err := s.ScrapeProducts(ctx, productURLs, name)
		if err != nil {
			return err
		}
		fmt.Printf("Scraped %d of %d products in %v into %s\n",
			len(records), len(productURLs), time.Since(startTime).Round(time.Millisecond), outputPath(cfg, name))
		return nil
	}

	result, err := s.Run(ctx, models.Query{Term: cfg.Query, MaxPages: cfg.MaxPages})
	if err != nil {
		return err
	}
	printSummary(result, outputPath(cfg, cfg.OutputName))
	return nil
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func stopMetricsServer(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func splitURLs(raw string) []string {
	var urls []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			urls = append(urls, part)
		}
	}
	return urls
}

func outputPath(cfg *config.Config, name string) string {
	return filepath.Join(cfg.OutputDir, name)
}

func printSummary(result *models.ScraperResult, outputFile string) {
	separator := "--------------------------------------------------"
	duration := result.EndTime.Sub(result.StartTime)

	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Query:         %s\n", result.Query.Term)
	fmt.Printf("  Pages:         %d (skipped %v)\n", result.PageCount, result.SkippedPages)
	fmt.Printf("  Records:       %d\n", len(result.Records))
	fmt.Printf("  Not products:  %d\n", result.ItemsSkipped)
	fmt.Printf("  Parse errors:  %d\n", result.ParseErrors)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
