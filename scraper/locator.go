package scraper

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/fetcher"
)

// LocateItems returns the title-bearing item containers of a page in
// document order. It never waits: the page is expected to have passed the
// ready check already, and an unexpected DOM shape simply yields nothing.
func LocateItems(page *fetcher.Page) []*goquery.Selection {
	if page == nil || page.Doc == nil {
		return nil
	}
	found := page.Doc.Find(ItemSelector)
	items := make([]*goquery.Selection, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		items = append(items, s)
	})
	return items
}
