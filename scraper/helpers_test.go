package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/fetcher"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

const testBaseURL = "https://www.example.test"

type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]error
	calls    []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:    make(map[string]string),
		failures: make(map[string]error),
	}
}

func (ff *fakeFetcher) Fetch(_ context.Context, url, readySelector string, _ time.Duration) (*fetcher.Page, error) {
	ff.mu.Lock()
	ff.calls = append(ff.calls, url)
	body, ok := ff.pages[url]
	failure := ff.failures[url]
	ff.mu.Unlock()

	if failure != nil {
		return nil, failure
	}
	if !ok {
		return nil, fmt.Errorf("unexpected url %s", url)
	}
	page, err := fetcher.ParsePage(url, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	if page.Doc.Find(readySelector).Length() == 0 {
		return nil, fetcher.ErrPageLoadTimeout{URL: url, Selector: readySelector, Err: context.DeadlineExceeded}
	}
	return page, nil
}

func (ff *fakeFetcher) callCount(url string) int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	n := 0
	for _, c := range ff.calls {
		if c == url {
			n++
		}
	}
	return n
}

type memorySink struct {
	mu    sync.Mutex
	names []string
	saved []models.ResultSet
	err   error
}

func (ms *memorySink) Persist(records models.ResultSet, name string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.err != nil {
		return ms.err
	}
	copied := make(models.ResultSet, len(records))
	copy(copied, records)
	ms.names = append(ms.names, name)
	ms.saved = append(ms.saved, copied)
	return nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBaseURL
	cfg.ReadyTimeout = 50 * time.Millisecond
	cfg.ProductTimeout = 50 * time.Millisecond
	return cfg
}

func searchURL(t *testing.T, term string, page int) string {
	t.Helper()
	u, err := BuildSearchURL(testBaseURL, term, page)
	if err != nil {
		t.Fatalf("build search url: %v", err)
	}
	return u
}

func priceBlock(whole, fraction string) string {
	return `<div data-cy="price-recipe"><div class="a-row"><a href="#"><span class="a-price">` +
		`<span class="a-offscreen">R$&nbsp;` + whole + `,` + fraction + `</span>` +
		`<span aria-hidden="true"><span class="a-price-symbol">R$</span>` +
		`<span class="a-price-whole">` + whole + `<span class="a-price-decimal">,</span></span>` +
		`<span class="a-price-fraction">` + fraction + `</span></span></span></a></div>` +
		`<div class="a-row">Entrega GRÁTIS</div></div>`
}

// productTile renders a search result tile; an empty price leaves out the
// price region entirely.
func productTile(asin, title, priceHTML string) string {
	return `<div role="listitem" data-asin="` + asin + `"><div class="puis-card">` +
		`<div data-cy="title-recipe"><a class="a-link-normal" href="/Produto-` + asin + `/dp/` + asin + `/ref=sr_1_1">` +
		`<h2 class="a-size-base"><span>` + title + `</span></h2></a></div>` +
		`<div data-cy="reviews-block">4,6 de 5 estrelas</div>` +
		priceHTML +
		`</div></div>`
}

func adTile() string {
	return `<div role="listitem"><div class="puis-card">` +
		`<div data-cy="title-recipe"><a href="/sspa/click?ie=UTF8&amp;spc=abc"><h2><span>Patrocinado</span></h2></a></div>` +
		priceBlock("99", "90") +
		`</div></div>`
}

func searchPage(tiles ...string) string {
	return `<html><body><div class="s-main-slot s-result-list">` + strings.Join(tiles, "") + `</div></body></html>`
}

func parseTestPage(t *testing.T, body string) *fetcher.Page {
	t.Helper()
	page, err := fetcher.ParsePage(testBaseURL+"/s?k=iphone&page=1", strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	return page
}

func firstItem(t *testing.T, page *fetcher.Page) *goquery.Selection {
	t.Helper()
	items := LocateItems(page)
	if len(items) == 0 {
		t.Fatalf("no items located")
	}
	return items[0]
}
