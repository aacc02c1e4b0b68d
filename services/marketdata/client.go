// Package marketdata provides the upstream market-data client: quote,
// sector-performance and company-profile fetches behind a provider-agnostic
// interface, with client-side rate limiting against the provider's budget.
package marketdata

import (
	"context"
	"fmt"
)

// Quote is one symbol's quote as returned by the provider.
type Quote struct {
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	Price             float64  `json:"price"`
	Change            float64  `json:"change"`
	ChangesPercentage float64  `json:"changesPercentage"`
	Volume            int64    `json:"volume"`
	MarketCap         float64  `json:"marketCap"`
	PE                *float64 `json:"pe"`
}

// SectorChange is one sector's percent change. The percent value arrives as
// provider-formatted text ("+1.25%"); callers normalize it before parsing.
type SectorChange struct {
	Sector            string `json:"sector"`
	ChangesPercentage string `json:"changesPercentage"`
}

// CompanyProfile carries the sector/industry enrichment for one symbol.
type CompanyProfile struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
}

// Client is the capability interface the aggregator collects through.
// Implementations decide their own rate-limiting policy.
type Client interface {
	// GetQuotes fetches quotes for a set of symbols. Symbols the provider
	// does not know are silently absent from the result, not an error.
	GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, error)

	// GetSectorPerformance fetches the sector performance list in provider order.
	GetSectorPerformance(ctx context.Context) ([]SectorChange, error)

	// GetCompanyProfile fetches one company's profile. A symbol without a
	// profile returns (nil, nil).
	GetCompanyProfile(ctx context.Context, symbol string) (*CompanyProfile, error)
}

// UpstreamError reports a provider error payload, transport failure or
// unparsable response. The client never retries; callers decide.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("upstream %s: %s", e.Endpoint, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream %s: status %d", e.Endpoint, e.StatusCode)
	default:
		return fmt.Sprintf("upstream %s: %v", e.Endpoint, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }
