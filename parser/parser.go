package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Layout describes which elements are not rendered and which ones start a
// new line, on top of the regular block elements.
type Layout struct {
	Hidden    cascadia.Matcher
	LineBreak cascadia.Matcher
}

// NewLayout compiles the hidden and line-break selectors. Empty selectors
// match nothing.
func NewLayout(hidden, lineBreak string) (Layout, error) {
	var layout Layout
	if hidden != "" {
		sel, err := cascadia.ParseGroup(hidden)
		if err != nil {
			return Layout{}, fmt.Errorf("parse hidden selector %q: %w", hidden, err)
		}
		layout.Hidden = sel
	}
	if lineBreak != "" {
		sel, err := cascadia.ParseGroup(lineBreak)
		if err != nil {
			return Layout{}, fmt.Errorf("parse line break selector %q: %w", lineBreak, err)
		}
		layout.LineBreak = sel
	}
	return layout, nil
}

// MustLayout is NewLayout for package-level selector constants.
func MustLayout(hidden, lineBreak string) Layout {
	layout, err := NewLayout(hidden, lineBreak)
	if err != nil {
		panic(err)
	}
	return layout
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tr": true, "ul": true,
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// TextLines returns the rendered lines of a selection, roughly the way a
// browser's innerText splits them: block elements and <br> end a line,
// whitespace inside a line collapses, empty lines are dropped.
func TextLines(sel *goquery.Selection, layout Layout) []string {
	var (
		lines   []string
		current strings.Builder
	)
	flush := func() {
		line := NormalizeText(current.String())
		current.Reset()
		if line != "" {
			lines = append(lines, line)
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			current.WriteString(n.Data)
			return
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
			if layout.Hidden != nil && layout.Hidden.Match(n) {
				return
			}
			if n.Data == "br" {
				flush()
				return
			}
		case html.DocumentNode:
		default:
			return
		}

		block := n.Type == html.ElementNode &&
			(blockElements[n.Data] || (layout.LineBreak != nil && layout.LineBreak.Match(n)))
		if block {
			flush()
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if block {
			flush()
		}
	}

	for _, node := range sel.Nodes {
		walk(node)
		flush()
	}
	return lines
}

// NormalizeText trims and collapses inner whitespace.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ParsePrice joins the first two rendered lines of a price region with a
// decimal comma ("1.234" + "56" -> "1.234,56"). With fewer than two lines
// the numeric zero sentinel is returned instead of text.
func ParsePrice(lines []string) models.Price {
	if len(lines) < 2 {
		return models.ZeroPrice()
	}
	return models.TextPrice(lines[0] + "," + lines[1])
}

// ValidateRecord ensures a search record is complete enough to export.
func ValidateRecord(r *models.ProductRecord, marker string) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.Link) == "" {
		return fmt.Errorf("record missing link")
	}
	if !strings.Contains(r.Link, marker) {
		return fmt.Errorf("record link %s lacks product marker %q", r.Link, marker)
	}
	return nil
}
