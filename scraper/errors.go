package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-catalog/fetcher"
)

// ErrNotProduct is the skip signal for containers that are not product tiles.
var ErrNotProduct = errors.New("scraper: container has no product link")

// ErrItemParse indicates a field of a single container could not be read.
type ErrItemParse struct {
	Field string
	Err   error
}

func (e ErrItemParse) Error() string {
	return fmt.Errorf("item_parse %s: %w", e.Field, e.Err).Error()
}

func (e ErrItemParse) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, ErrNotProduct) {
		return "not_product"
	}
	var timeout fetcher.ErrPageLoadTimeout
	if errors.As(err, &timeout) {
		return "page_timeout"
	}
	var session fetcher.ErrSession
	if errors.As(err, &session) {
		return "fatal_resource"
	}
	var parse ErrItemParse
	if errors.As(err, &parse) {
		return "item_parse"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "page_failed"
}
