package fetcher

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

const searchURL = "http://example.test/s?k=iphone&page=1"

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func newMockedFetcher(t *testing.T, responder httpmock.Responder) *HTTPFetcher {
	t.Helper()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", searchURL, responder)

	return NewHTTPFetcher(HTTPOptions{UserAgent: "test-agent", Transport: transport})
}

func TestHTTPFetcherReadySelectorPresent(t *testing.T) {
	body := `<html><body><div role="listitem"><div data-cy="title-recipe">x</div></div></body></html>`
	hf := newMockedFetcher(t, htmlResponder(body))

	page, err := hf.Fetch(context.Background(), searchURL, `div[role="listitem"]`, time.Second)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := page.Doc.Find(`div[data-cy="title-recipe"]`).Length(); got != 1 {
		t.Fatalf("items = %d, want 1", got)
	}
	if page.URL.String() != searchURL {
		t.Fatalf("page url = %s, want %s", page.URL, searchURL)
	}
}

func TestHTTPFetcherReadySelectorAbsent(t *testing.T) {
	hf := newMockedFetcher(t, htmlResponder(`<html><body><p>captcha</p></body></html>`))

	_, err := hf.Fetch(context.Background(), searchURL, `div[role="listitem"]`, time.Second)
	var timeout ErrPageLoadTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("expected ErrPageLoadTimeout, got %v", err)
	}
	if timeout.Selector != `div[role="listitem"]` {
		t.Fatalf("selector = %q", timeout.Selector)
	}
}

func TestHTTPFetcherDeadline(t *testing.T) {
	slow := func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
	hf := newMockedFetcher(t, slow)

	_, err := hf.Fetch(context.Background(), searchURL, `div[role="listitem"]`, 50*time.Millisecond)
	var timeout ErrPageLoadTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("expected ErrPageLoadTimeout, got %v", err)
	}
}

func TestHTTPFetcherErrorStatus(t *testing.T) {
	hf := newMockedFetcher(t, httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	_, err := hf.Fetch(context.Background(), searchURL, `div[role="listitem"]`, time.Second)
	if err == nil {
		t.Fatalf("expected error for 503 response")
	}
	var timeout ErrPageLoadTimeout
	if errors.As(err, &timeout) {
		t.Fatalf("503 should not be reported as a load timeout: %v", err)
	}
}

func TestPageResolve(t *testing.T) {
	page, err := ParsePage("https://www.example.test/s?k=iphone&page=2", strings.NewReader("<html></html>"))
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}

	tests := []struct {
		href     string
		expected string
	}{
		{href: "/Apple-iPhone/dp/B0CHX1W1XY/ref=sr_1_1", expected: "https://www.example.test/Apple-iPhone/dp/B0CHX1W1XY/ref=sr_1_1"},
		{href: "https://other.test/dp/B01", expected: "https://other.test/dp/B01"},
	}
	for _, tt := range tests {
		got, err := page.Resolve(tt.href)
		if err != nil {
			t.Fatalf("resolve %q: %v", tt.href, err)
		}
		if got != tt.expected {
			t.Errorf("Resolve(%q) = %q, want %q", tt.href, got, tt.expected)
		}
	}

	bare := &Page{}
	if got, err := bare.Resolve("/dp/B0"); err != nil || got != "/dp/B0" {
		t.Fatalf("resolve without base = %q, %v", got, err)
	}
}
