package scraper

import "github.com/aluiziolira/go-scrape-catalog/parser"

// Storefront markers. The ready selector only tells that the results grid
// exists; items are enumerated through the title-bearing marker.
const (
	ReadySelector       = `div[role="listitem"]`
	ItemSelector        = `div[data-cy="title-recipe"]`
	ProductLinkSelector = `a[href*="/dp/"]`
	TitleSelector       = "h2 span"
	PriceSelector       = `div[data-cy="price-recipe"]`

	// ProductMarker is the path segment of product detail URLs.
	ProductMarker = "/dp/"

	ProductReadySelector = "span#productTitle"
	ProductTitleSelector = "span#productTitle"
	ProductPriceSelector = "span.a-price-whole"
)

// priceLayout renders price regions the way the storefront displays them:
// the fraction sits on its own line, screen-reader copies are invisible.
var priceLayout = parser.MustLayout(".a-offscreen, .a-price-decimal", ".a-price-fraction")
