package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// HTTPOptions configures the static fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// Transport replaces the default pooled transport when set.
	Transport http.RoundTripper
}

// HTTPFetcher downloads pages without running scripts. The ready condition
// is checked once against the served document.
type HTTPFetcher struct {
	collector *colly.Collector
}

// NewHTTPFetcher builds a colly-backed fetcher.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	collector := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.IgnoreRobotsTxt = true
	if opts.Timeout > 0 {
		collector.SetRequestTimeout(opts.Timeout)
	}
	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   opts.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}
	collector.WithTransport(transport)
	return &HTTPFetcher{collector: collector}
}

// Fetch downloads url and checks readySelector on the returned HTML.
func (hf *HTTPFetcher) Fetch(ctx context.Context, url, readySelector string, timeout time.Duration) (*Page, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := hf.collector.Clone()
	c.Context = reqCtx

	var (
		body       []byte
		finalURL   = url
		responseOK bool
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL.String()
		responseOK = true
	})

	if err := c.Visit(url); err != nil {
		return nil, loadError(ctx, url, readySelector, fmt.Errorf("fetch %s: %w", url, err))
	}
	if !responseOK {
		return nil, fmt.Errorf("fetch %s: no response", url)
	}

	page, err := ParsePage(finalURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if page.Doc.Find(readySelector).Length() == 0 {
		slog.Debug("ready selector absent from static page",
			slog.String("url", url),
			slog.String("selector", readySelector),
		)
		return nil, ErrPageLoadTimeout{
			URL:      url,
			Selector: readySelector,
			Err:      fmt.Errorf("selector not present in response"),
		}
	}
	return page, nil
}
