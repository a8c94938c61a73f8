package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TwelveData implements Client against the Twelve Data REST API.
type TwelveData struct {
	apiKey  string
	baseURL string
	cache   *Cache
	limiter *RateLimiter
}

// TwelveDataOption configures the client.
type TwelveDataOption func(*TwelveData)

// WithBaseURL sets a custom base URL (e.g., a test server).
func WithBaseURL(u string) TwelveDataOption {
	return func(c *TwelveData) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithCacheTTL sets the quote/series cache TTL.
func WithCacheTTL(ttl time.Duration) TwelveDataOption {
	return func(c *TwelveData) { c.cache = NewCache(ttl) }
}

// WithRateLimit sets the request rate limit in requests per second.
func WithRateLimit(rps int) TwelveDataOption {
	return func(c *TwelveData) { c.limiter = NewRateLimiter(rps, time.Second) }
}

// NewTwelveData creates a Twelve Data client.
func NewTwelveData(apiKey string, opts ...TwelveDataOption) *TwelveData {
	c := &TwelveData{
		apiKey:  apiKey,
		baseURL: "https://api.twelvedata.com",
		cache:   NewCache(5 * time.Minute),
		limiter: NewRateLimiter(5, time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- Twelve Data API types ---

// tdNumber decodes Twelve Data's numeric fields, which arrive as JSON
// strings ("231.45") or occasionally as plain numbers.
type tdNumber float64

func (n *tdNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", s, err)
	}
	*n = tdNumber(v)
	return nil
}

type tdError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type tdQuoteResponse struct {
	tdError
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	Close        tdNumber `json:"close"`
	MarketCap    tdNumber `json:"market_cap"`
	FiftyTwoWeek struct {
		High tdNumber `json:"high"`
		Low  tdNumber `json:"low"`
	} `json:"fifty_two_week"`
}

type tdSeriesResponse struct {
	tdError
	Values []struct {
		Datetime string   `json:"datetime"`
		Close    tdNumber `json:"close"`
	} `json:"values"`
}

// --- Public methods ---

// GetQuote returns the current quote fields for a symbol.
func (c *TwelveData) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	cacheKey := "quote:" + symbol
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(*Quote), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/quote?symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))
	body, err := doGet(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("twelvedata quote %s: %w", symbol, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp tdQuoteResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse twelvedata quote: %w", err)
	}
	if err := resp.tdError.check(symbol); err != nil {
		return nil, err
	}
	if resp.Symbol == "" && resp.Close == 0 {
		return nil, fmt.Errorf("twelvedata quote %s: empty payload", symbol)
	}

	quote := &Quote{
		Symbol:     symbol,
		Name:       resp.Name,
		Price:      float64(resp.Close),
		WeekHigh52: float64(resp.FiftyTwoWeek.High),
		WeekLow52:  float64(resp.FiftyTwoWeek.Low),
		MarketCap:  float64(resp.MarketCap),
	}
	c.cache.Set(cacheKey, quote)
	return quote, nil
}

// GetDailyCloses returns up to days daily closing prices, oldest first.
// Twelve Data serves time series newest first; the order is reversed here so
// indicator code always sees chronological series.
func (c *TwelveData) GetDailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	cacheKey := fmt.Sprintf("series:%s:%d", symbol, days)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]float64), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/time_series?symbol=%s&interval=1day&outputsize=%d&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), days, url.QueryEscape(c.apiKey))
	body, err := doGet(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("twelvedata series %s: %w", symbol, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp tdSeriesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse twelvedata series: %w", err)
	}
	if err := resp.tdError.check(symbol); err != nil {
		return nil, err
	}

	closes := make([]float64, 0, len(resp.Values))
	for i := len(resp.Values) - 1; i >= 0; i-- {
		closes = append(closes, float64(resp.Values[i].Close))
	}

	c.cache.Set(cacheKey, closes)
	return closes, nil
}

// check maps a Twelve Data error payload to a sentinel error.
func (e tdError) check(symbol string) error {
	if e.Status != "error" && e.Code == 0 {
		return nil
	}
	if e.Code == 404 {
		return fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return fmt.Errorf("twelvedata error %d: %s", e.Code, e.Message)
}
