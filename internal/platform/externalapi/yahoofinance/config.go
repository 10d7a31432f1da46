// Package yahoofinance provides a client for the Yahoo Finance chart API.
package yahoofinance

import (
	"os"
	"time"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Config holds configuration for the Yahoo Finance chart client.
type Config struct {
	BaseURL   string        // Base URL for the API (e.g., "https://query1.finance.yahoo.com")
	UserAgent string        // Sent on every request; the API rejects Go's default agent
	Timeout   time.Duration // HTTP request timeout
}

// LoadConfig loads Yahoo Finance configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		BaseURL:   os.Getenv("YAHOO_FINANCE_BASE_URL"),
		UserAgent: os.Getenv("YAHOO_FINANCE_USER_AGENT"),
		Timeout:   10 * time.Second,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return cfg
}
