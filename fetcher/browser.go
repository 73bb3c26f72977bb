package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserOptions configures the headless browser session.
type BrowserOptions struct {
	Headless  bool
	UserAgent string
	Bin       string
}

// BrowserFetcher drives a single browser tab. Navigation mutates that tab,
// so Fetch calls are serialised.
type BrowserFetcher struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewBrowserFetcher launches a browser and opens the tab used for every
// fetch. Any failure is returned as ErrSession.
func NewBrowserFetcher(opts BrowserOptions) (*BrowserFetcher, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Leakless(false).
		Set("disable-blink-features", "AutomationControlled").
		Set("start-maximized").
		Set("disable-dev-shm-usage")
	if opts.UserAgent != "" {
		l = l.Set("user-agent", opts.UserAgent)
	}

	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, ErrSession{Err: fmt.Errorf("launch browser: %w", err)}
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, ErrSession{Err: fmt.Errorf("connect to browser: %w", err)}
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, ErrSession{Err: fmt.Errorf("open tab: %w", err)}
	}

	slog.Debug("browser session started",
		slog.String("control_url", controlURL),
		slog.Bool("headless", opts.Headless),
	)

	return &BrowserFetcher{
		launcher: l,
		browser:  browser,
		page:     page,
	}, nil
}

// WithBrowser opens a browser session, runs fn and closes the session on
// every exit path.
func WithBrowser(opts BrowserOptions, fn func(*BrowserFetcher) error) (err error) {
	bf, err := NewBrowserFetcher(opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := bf.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(bf)
}

// Fetch navigates the shared tab to url and waits for readySelector.
func (bf *BrowserFetcher) Fetch(ctx context.Context, url, readySelector string, timeout time.Duration) (*Page, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	// The bound covers navigation as well as the ready wait.
	page := bf.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return nil, loadError(ctx, url, readySelector, fmt.Errorf("navigate %s: %w", url, err))
	}
	if _, err := page.Element(readySelector); err != nil {
		return nil, loadError(ctx, url, readySelector, fmt.Errorf("wait for %q on %s: %w", readySelector, url, err))
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read html of %s: %w", url, err)
	}

	current := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		current = info.URL
	}
	return ParsePage(current, strings.NewReader(html))
}

// Close releases the tab, the browser and the launched process.
func (bf *BrowserFetcher) Close() error {
	bf.closeOnce.Do(func() {
		bf.mu.Lock()
		defer bf.mu.Unlock()

		var errs []error
		if bf.page != nil {
			if err := bf.page.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close tab: %w", err))
			}
		}
		if bf.browser != nil {
			if err := bf.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		if bf.launcher != nil {
			bf.launcher.Cleanup()
		}
		bf.closeErr = errors.Join(errs...)
		slog.Debug("browser session closed")
	})
	return bf.closeErr
}
