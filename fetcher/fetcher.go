// Package fetcher loads search and product pages and hands them back as
// queryable DOM documents once their ready condition holds.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher loads url and returns the rendered page once readySelector is
// present, or an error after timeout.
type Fetcher interface {
	Fetch(ctx context.Context, url, readySelector string, timeout time.Duration) (*Page, error)
}

// Page is a snapshot of a rendered document. Selections taken from it stay
// valid after the fetcher navigates elsewhere, but they describe the old page.
type Page struct {
	URL *url.URL
	Doc *goquery.Document
}

// ParsePage builds a Page from raw HTML served at pageURL.
func ParsePage(pageURL string, body io.Reader) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Url = u
	return &Page{URL: u, Doc: doc}, nil
}

// Resolve turns href into an absolute URL relative to the page.
func (p *Page) Resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	if p.URL == nil {
		return ref.String(), nil
	}
	return p.URL.ResolveReference(ref).String(), nil
}

// ErrPageLoadTimeout indicates the ready selector never showed up.
type ErrPageLoadTimeout struct {
	URL      string
	Selector string
	Err      error
}

func (e ErrPageLoadTimeout) Error() string {
	return fmt.Errorf("page load timeout: %s waiting for %q: %w", e.URL, e.Selector, e.Err).Error()
}

func (e ErrPageLoadTimeout) Unwrap() error {
	return e.Err
}

// loadError reports err as a page-load timeout when the fetch's own bound
// expired while the caller's context is still live.
func loadError(ctx context.Context, url, readySelector string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ErrPageLoadTimeout{URL: url, Selector: readySelector, Err: err}
	}
	return err
}

// ErrSession indicates the browser session could not be created or used.
type ErrSession struct {
	Err error
}

func (e ErrSession) Error() string {
	return fmt.Errorf("browser session: %w", e.Err).Error()
}

func (e ErrSession) Unwrap() error {
	return e.Err
}
