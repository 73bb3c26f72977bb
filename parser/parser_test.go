package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/models"
)

func selectionFrom(t *testing.T, body, selector string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		t.Fatalf("selector %q matched nothing", selector)
	}
	return sel
}

func TestTextLines(t *testing.T) {
	layout := MustLayout(".a-offscreen, .a-price-decimal", ".a-price-fraction")

	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{
			name: "storefront price block",
			body: `<div id="x"><div class="a-row"><span class="a-price">` +
				`<span class="a-offscreen">R$ 4.999,00</span>` +
				`<span aria-hidden="true"><span class="a-price-symbol">R$</span>` +
				`<span class="a-price-whole">4.999<span class="a-price-decimal">,</span></span>` +
				`<span class="a-price-fraction">00</span></span></span></div>` +
				`<div class="a-row">Entrega GRÁTIS</div></div>`,
			expected: []string{"R$4.999", "00", "Entrega GRÁTIS"},
		},
		{
			name:     "br splits lines",
			body:     `<div id="x">1.234<br>56</div>`,
			expected: []string{"1.234", "56"},
		},
		{
			name:     "whitespace collapses inside a line",
			body:     "<div id=\"x\"><span>  Apple   iPhone\n 15 </span></div>",
			expected: []string{"Apple iPhone 15"},
		},
		{
			name:     "scripts are not rendered",
			body:     `<div id="x"><script>var a = 1;</script><p>99</p></div>`,
			expected: []string{"99"},
		},
		{
			name:     "empty region",
			body:     `<div id="x">   </div>`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TextLines(selectionFrom(t, tt.body, "#x"), layout)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("TextLines() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewLayoutRejectsBadSelector(t *testing.T) {
	if _, err := NewLayout("[[", ""); err == nil {
		t.Fatalf("expected error for malformed selector")
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected models.Price
	}{
		{
			name:     "whole and fraction",
			lines:    []string{"R$4.999", "00"},
			expected: models.TextPrice("R$4.999,00"),
		},
		{
			name:     "extra lines ignored",
			lines:    []string{"1.234", "56", "Entrega GRÁTIS"},
			expected: models.TextPrice("1.234,56"),
		},
		{
			name:     "single line",
			lines:    []string{"R$4.999"},
			expected: models.ZeroPrice(),
		},
		{
			name:     "no lines",
			lines:    nil,
			expected: models.ZeroPrice(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.lines)
			if got != tt.expected {
				t.Errorf("ParsePrice(%q) = %+v, want %+v", tt.lines, got, tt.expected)
			}
			if got.Kind == models.PriceText && got.Text == "" {
				t.Errorf("ParsePrice(%q) returned empty text", tt.lines)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "  Apple iPhone  ", expected: "Apple iPhone"},
		{input: "a\n\tb", expected: "a b"},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		if got := NormalizeText(tt.input); got != tt.expected {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *models.ProductRecord
		wantErr bool
	}{
		{
			name:   "valid record",
			record: &models.ProductRecord{Title: "iPhone", Price: models.TextPrice("1,00"), Link: "https://example.test/x/dp/B0"},
		},
		{name: "nil record", record: nil, wantErr: true},
		{name: "missing link", record: &models.ProductRecord{Title: "iPhone"}, wantErr: true},
		{
			name:    "link without marker",
			record:  &models.ProductRecord{Title: "iPhone", Link: "https://example.test/sspa/click"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record, "/dp/")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
