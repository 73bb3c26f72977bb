// Package models defines data structures for the scraper.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PriceNotFound is the text written for detail pages that carry no price.
const PriceNotFound = "Preço não encontrado"

// PriceKind tells how a Price value was obtained.
type PriceKind int

const (
	// PriceText holds the price text as read from the page.
	PriceText PriceKind = iota
	// PriceZero is the numeric zero sentinel used when the price region
	// could not be split into an integer and a fraction part.
	PriceZero
	// PriceMissing marks a detail page without any price element.
	PriceMissing
)

// Price is either text taken from the page or one of the sentinels.
//
// The zero sentinel renders as 0, never as empty text.
// TODO: confirm with the analysts whether 0 means "no price" or should be
// folded into PriceMissing; until then both stay distinct.
type Price struct {
	Kind PriceKind
	Text string
}

// TextPrice wraps a parsed price string.
func TextPrice(text string) Price {
	return Price{Kind: PriceText, Text: text}
}

// ZeroPrice returns the numeric zero sentinel.
func ZeroPrice() Price {
	return Price{Kind: PriceZero}
}

// MissingPrice returns the "price not found" sentinel.
func MissingPrice() Price {
	return Price{Kind: PriceMissing, Text: PriceNotFound}
}

// IsZeroSentinel reports whether p is the numeric zero sentinel.
func (p Price) IsZeroSentinel() bool {
	return p.Kind == PriceZero
}

// String renders the price for tabular output.
func (p Price) String() string {
	switch p.Kind {
	case PriceZero:
		return "0"
	case PriceMissing:
		return PriceNotFound
	default:
		return p.Text
	}
}

// MarshalJSON writes the zero sentinel as a number and everything else as a string.
func (p Price) MarshalJSON() ([]byte, error) {
	if p.Kind == PriceZero {
		return []byte("0"), nil
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("price: %w", err)
		}
		if n.String() != "0" {
			return fmt.Errorf("price: unexpected number %s", n)
		}
		*p = ZeroPrice()
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	if text == PriceNotFound {
		*p = MissingPrice()
		return nil
	}
	*p = TextPrice(text)
	return nil
}

// ProductRecord is one listing extracted from a search or detail page.
type ProductRecord struct {
	Title string `csv:"title" json:"title"`
	Price Price  `csv:"price" json:"price"`
	Link  string `csv:"link" json:"link"`
	Page  int    `csv:"-" json:"page,omitempty"`
}

// ResultSet is the ordered, append-only collection of records of one run.
type ResultSet []ProductRecord

// Query is the immutable input of a search run.
type Query struct {
	Term     string
	MaxPages int
}

// Validate checks the query before any page is fetched.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Term) == "" {
		return fmt.Errorf("search term cannot be empty")
	}
	if q.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	return nil
}

// ScraperResult holds the overall result of a search run.
type ScraperResult struct {
	Query        Query
	Records      ResultSet
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	SkippedPages []int
	ItemsSkipped int
	ParseErrors  int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
}
