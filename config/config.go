package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultUserAgent is sent when USER_AGENT is not set.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config holds scraper configuration.
type Config struct {
	BaseURL          string        `env:"SCRAPER_BASE_URL"`
	Query            string        `env:"SCRAPER_QUERY"`
	MaxPages         int           `env:"SCRAPER_PAGES"`
	ReadyTimeout     time.Duration `env:"SCRAPER_READY_TIMEOUT"`
	ProductTimeout   time.Duration `env:"SCRAPER_PRODUCT_TIMEOUT"`
	RequestTimeout   time.Duration `env:"SCRAPER_REQUEST_TIMEOUT"`
	Fetcher          string        `env:"SCRAPER_FETCHER"` // browser or http
	Headless         bool          `env:"SCRAPER_HEADLESS"`
	BrowserBin       string        `env:"SCRAPER_BROWSER_BIN"`
	UserAgent        string        `env:"USER_AGENT"`
	OutputDir        string        `env:"SCRAPER_OUTPUT_DIR"`
	OutputName       string        `env:"SCRAPER_OUTPUT"`
	OutputFormat     string        `env:"SCRAPER_FORMAT"` // csv, json, or dual
	MetricsAddr      string        `env:"SCRAPER_METRICS_ADDR"`
	ProductCacheSize int           `env:"SCRAPER_PRODUCT_CACHE"`
	Verbose          bool          `env:"SCRAPER_VERBOSE"`
}

// DefaultConfig returns defaults matching the Brazilian storefront.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://www.amazon.com.br",
		Query:            "iphone",
		MaxPages:         10,
		ReadyTimeout:     15 * time.Second,
		ProductTimeout:   10 * time.Second,
		RequestTimeout:   30 * time.Second,
		Fetcher:          "browser",
		Headless:         true,
		UserAgent:        DefaultUserAgent,
		OutputDir:        "data",
		OutputName:       "amazon_products.csv",
		OutputFormat:     "csv",
		ProductCacheSize: 256,
	}
}

// Load reads an optional .env file and overlays environment variables on
// the defaults. Unset variables keep their default value.
func Load(dotenvFiles ...string) (*Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}

	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("ready timeout must be positive")
	}
	if c.ProductTimeout <= 0 {
		return fmt.Errorf("product timeout must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Fetcher != "browser" && c.Fetcher != "http" {
		return fmt.Errorf("fetcher must be browser or http")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.OutputName == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.ProductCacheSize <= 0 {
		return fmt.Errorf("product cache size must be positive")
	}

	return nil
}
