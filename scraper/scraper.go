package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/fetcher"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Scraper walks the search result pages of a query one at a time and
// turns every product tile into a record.
type Scraper struct {
	cfg      *config.Config
	fetcher  fetcher.Fetcher
	sink     pipeline.Sink
	products *lru.Cache[string, models.ProductRecord]
	Metrics  *Metrics

	mu           sync.Mutex
	errorCount   int
	failedURLs   []string
	errorsByType map[string]int
}

// NewScraper builds a scraper on top of f. sink may be nil, in which case
// results are only returned.
func NewScraper(cfg *config.Config, f fetcher.Fetcher, sink pipeline.Sink) (*Scraper, error) {
	if f == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	products, err := lru.New[string, models.ProductRecord](cfg.ProductCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create product cache: %w", err)
	}

	return &Scraper{
		cfg:          cfg,
		fetcher:      f,
		sink:         sink,
		products:     products,
		Metrics:      NewMetrics(),
		errorsByType: make(map[string]int),
	}, nil
}

// BuildSearchURL returns the URL of one result page for term.
func BuildSearchURL(baseURL, term string, page int) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/s"
	u.RawQuery = url.Values{
		"k":    {term},
		"page": {strconv.Itoa(page)},
	}.Encode()
	return u.String(), nil
}

// Run scrapes pages 1..q.MaxPages in order, persists the collected records
// through the sink and returns them. A page that fails to load is logged
// and skipped; it never aborts the run. Cancellation is honoured between
// pages and still persists what was collected.
func (s *Scraper) Run(ctx context.Context, q models.Query) (*models.ScraperResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	s.resetStats()

	p := pipeline.NewPipeline(ProductMarker)
	if s.cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	result := &models.ScraperResult{
		Query:     q,
		StartTime: time.Now(),
	}

	for page := 1; page <= q.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			slog.Warn("run interrupted, keeping collected records",
				slog.Int("next_page", page),
				slog.Any("error", err),
			)
			break
		}
		result.PageCount++
		s.scrapePage(ctx, q, page, p, result)
	}

	if err := p.Close(); err != nil {
		slog.Error("pipeline close", slog.Any("error", err))
	}

	result.Records = p.Records()
	result.EndTime = time.Now()
	slog.Info("run finished",
		slog.String("query", q.Term),
		slog.Int("pages", result.PageCount),
		slog.Int("records", p.Len()),
		slog.Int("rejected", p.Rejected()),
		slog.Int("skipped_pages", len(result.SkippedPages)),
	)
	result.ErrorCount, result.FailedURLs, result.ErrorsByType = s.snapshotErrors()

	if s.sink != nil {
		if err := s.sink.Persist(result.Records, s.cfg.OutputName); err != nil {
			return result, fmt.Errorf("persist results: %w", err)
		}
	}
	return result, nil
}

func (s *Scraper) scrapePage(ctx context.Context, q models.Query, pageNum int, p *pipeline.Pipeline, result *models.ScraperResult) {
	pageURL, err := BuildSearchURL(s.cfg.BaseURL, q.Term, pageNum)
	if err != nil {
		s.recordError("", err)
		s.Metrics.IncPage("failed")
		result.SkippedPages = append(result.SkippedPages, pageNum)
		return
	}

	start := time.Now()
	page, err := s.fetcher.Fetch(ctx, pageURL, ReadySelector, s.cfg.ReadyTimeout)
	s.Metrics.ObserveFetch(time.Since(start))
	if err != nil {
		category := s.recordError(pageURL, err)
		if category == "page_timeout" {
			s.Metrics.IncPage("timeout")
		} else {
			s.Metrics.IncPage("failed")
		}
		slog.Error("search page not loaded, skipping",
			slog.Int("page", pageNum),
			slog.String("url", pageURL),
			slog.String("category", category),
			slog.Any("error", err),
		)
		result.SkippedPages = append(result.SkippedPages, pageNum)
		return
	}
	s.Metrics.IncPage("ready")

	items := LocateItems(page)
	extracted := 0
	for i, item := range items {
		record, err := ExtractRecord(page, item)
		switch {
		case errors.Is(err, ErrNotProduct):
			result.ItemsSkipped++
			s.Metrics.IncSkipped("not_product")
			slog.Debug("container skipped", slog.Int("page", pageNum), slog.Int("index", i))
		case err != nil:
			result.ParseErrors++
			s.Metrics.IncSkipped("parse_error")
			s.recordError("", err)
			slog.Warn("item not parsed",
				slog.Int("page", pageNum),
				slog.Int("index", i),
				slog.Any("error", err),
			)
		default:
			record.Page = pageNum
			if err := p.Process(record); err != nil {
				slog.Error("pipeline process error", slog.Any("error", err))
				continue
			}
			s.Metrics.IncItems()
			extracted++
		}
	}

	slog.Info("search page scraped",
		slog.Int("page", pageNum),
		slog.Int("containers", len(items)),
		slog.Int("records", extracted),
	)
}

// ScrapeProduct loads a product detail page and reads its title and
// price. Successful lookups are cached by URL.
func (s *Scraper) ScrapeProduct(ctx context.Context, productURL string) (models.ProductRecord, error) {
	if cached, ok := s.products.Get(productURL); ok {
		s.Metrics.IncCacheHit()
		return cached, nil
	}

	page, err := s.fetcher.Fetch(ctx, productURL, ProductReadySelector, s.cfg.ProductTimeout)
	if err != nil {
		s.recordError(productURL, err)
		return models.ProductRecord{}, fmt.Errorf("scrape product %s: %w", productURL, err)
	}

	record, err := extractProduct(page, productURL)
	if err != nil {
		s.recordError(productURL, err)
		return models.ProductRecord{}, fmt.Errorf("scrape product %s: %w", productURL, err)
	}

	s.products.Add(productURL, record)
	return record, nil
}

// ScrapeProducts looks up every URL in order, skipping the ones that fail,
// and persists the result under name when a sink is configured.
func (s *Scraper) ScrapeProducts(ctx context.Context, urls []string, name string) (models.ResultSet, error) {
	var records models.ResultSet
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			break
		}
		record, err := s.ScrapeProduct(ctx, u)
		if err != nil {
			slog.Error("product not scraped", slog.String("url", u), slog.Any("error", err))
			continue
		}
		records = append(records, record)
	}

	if s.sink != nil {
		if err := s.sink.Persist(records, name); err != nil {
			return records, fmt.Errorf("persist products: %w", err)
		}
	}
	return records, nil
}

func extractProduct(page *fetcher.Page, productURL string) (models.ProductRecord, error) {
	title := page.Doc.Find(ProductTitleSelector).First()
	if title.Length() == 0 {
		return models.ProductRecord{}, ErrItemParse{Field: "title", Err: fmt.Errorf("no %q", ProductTitleSelector)}
	}

	price := models.MissingPrice()
	// The whole part keeps its trailing decimal comma ("4.999,").
	if whole := page.Doc.Find(ProductPriceSelector).First(); whole.Length() > 0 {
		if text := parser.NormalizeText(whole.Text()); text != "" {
			price = models.TextPrice(text)
		}
	}

	return models.ProductRecord{
		Title: parser.NormalizeText(title.Text()),
		Price: price,
		Link:  productURL,
	}, nil
}

func (s *Scraper) recordError(target string, err error) string {
	category := errorTypeLabel(err)

	s.mu.Lock()
	s.errorCount++
	s.errorsByType[category]++
	if target != "" {
		s.failedURLs = append(s.failedURLs, target)
	}
	s.mu.Unlock()

	s.Metrics.IncError(category)
	return category
}

func (s *Scraper) resetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount = 0
	s.failedURLs = nil
	s.errorsByType = make(map[string]int)
}

func (s *Scraper) snapshotErrors() (int, []string, map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	failed := make([]string, len(s.failedURLs))
	copy(failed, s.failedURLs)
	byType := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		byType[k] = v
	}
	return s.errorCount, failed, byType
}
