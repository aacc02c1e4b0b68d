package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultFMPBaseURL is the Financial Modeling Prep v3 API root.
const DefaultFMPBaseURL = "https://financialmodelingprep.com/api/v3"

// FMPClient fetches market data from Financial Modeling Prep. All requests
// pass through the limiter before hitting the network.
type FMPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    Limiter
}

// NewFMPClient creates an FMP client. An empty baseURL selects the public
// endpoint; a nil limiter means unthrottled.
func NewFMPClient(apiKey, baseURL string, limiter Limiter) *FMPClient {
	if baseURL == "" {
		baseURL = DefaultFMPBaseURL
	}
	if limiter == nil {
		limiter = Unlimited{}
	}
	return &FMPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
	}
}

// GetQuotes fetches quotes for a set of symbols in one batched request.
func (c *FMPClient) GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	quotes := make(map[string]Quote, len(symbols))
	if len(symbols) == 0 {
		return quotes, nil
	}

	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	var list []Quote
	endpoint := "/quote/" + url.PathEscape(strings.Join(upper, ","))
	if err := c.get(ctx, endpoint, &list); err != nil {
		return nil, err
	}

	for _, q := range list {
		quotes[strings.ToUpper(q.Symbol)] = q
	}
	return quotes, nil
}

// GetSectorPerformance fetches the sector performance list.
func (c *FMPClient) GetSectorPerformance(ctx context.Context) ([]SectorChange, error) {
	var sectors []SectorChange
	if err := c.get(ctx, "/sectors-performance", &sectors); err != nil {
		return nil, err
	}
	return sectors, nil
}

// GetCompanyProfile fetches one company's profile for sector/industry
// enrichment. An unknown symbol returns (nil, nil).
func (c *FMPClient) GetCompanyProfile(ctx context.Context, symbol string) (*CompanyProfile, error) {
	var profiles []CompanyProfile
	endpoint := "/profile/" + url.PathEscape(strings.ToUpper(strings.TrimSpace(symbol)))
	if err := c.get(ctx, endpoint, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

// get performs one rate-limited GET and decodes the response into out.
func (c *FMPClient) get(ctx context.Context, endpoint string, out interface{}) error {
	if err := c.limiter.Acquire(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?apikey=%s", c.baseURL, endpoint, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &UpstreamError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "marketpulse/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("FMP error on %s: status=%d body=%s", endpoint, resp.StatusCode, truncate(body, 200))
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: string(truncate(body, 200))}
	}

	// FMP reports errors as a 200 object payload while success payloads
	// for these endpoints are arrays.
	if msg := errorPayloadMessage(body); msg != "" {
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}

// errorPayloadMessage extracts the provider's error message, if any.
func errorPayloadMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var payload struct {
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return ""
	}
	return payload.ErrorMessage
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
