package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/fetcher"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
)

// ExtractRecord turns one item container into a record.
//
// Containers without a direct product anchor (ads, layout filler) return
// ErrNotProduct. Failures while reading the title or link return
// ErrItemParse and must only drop this container. A missing or malformed
// price region is not a failure: the price becomes the zero sentinel.
func ExtractRecord(page *fetcher.Page, item *goquery.Selection) (record models.ProductRecord, err error) {
	link := item.ChildrenFiltered(ProductLinkSelector).First()
	href, ok := link.Attr("href")
	if !ok || !strings.Contains(href, ProductMarker) {
		return models.ProductRecord{}, ErrNotProduct
	}

	defer func() {
		if r := recover(); r != nil {
			record = models.ProductRecord{}
			err = ErrItemParse{Field: "container", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	absolute, err := page.Resolve(href)
	if err != nil {
		return models.ProductRecord{}, ErrItemParse{Field: "link", Err: err}
	}

	title := link.Find(TitleSelector).First()
	if title.Length() == 0 {
		return models.ProductRecord{}, ErrItemParse{
			Field: "title",
			Err:   fmt.Errorf("no %q under product link %s", TitleSelector, absolute),
		}
	}

	priceRegion := item.NextAllFiltered(PriceSelector).First()

	return models.ProductRecord{
		Title: parser.NormalizeText(title.Text()),
		Price: parser.ParsePrice(parser.TextLines(priceRegion, priceLayout)),
		Link:  absolute,
	}, nil
}
