// Package models defines the core data structures used throughout Stock Unlock.
package models

import "time"

// Quote represents the current quote fields fetched for a US symbol.
type Quote struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name,omitempty"`
	Price      float64 `json:"price"`
	WeekHigh52 float64 `json:"week_high_52"`
	WeekLow52  float64 `json:"week_low_52"`
	MarketCap  float64 `json:"market_cap"`
}

// IndicatorSet holds the computed technical indicators for a price series.
// A nil field means the series was too short to compute that value — distinct
// from a computed zero.
type IndicatorSet struct {
	SMA50    *float64 `json:"sma_50,omitempty"`
	SMA200   *float64 `json:"sma_200,omitempty"`
	RSI14    *float64 `json:"rsi_14,omitempty"`
	Return1M *float64 `json:"return_1m,omitempty"`
	Return6M *float64 `json:"return_6m,omitempty"`
	Return1Y *float64 `json:"return_1y,omitempty"`
}

// USStockAnalysis is the normalized per-symbol analysis record for the US market:
// current quote fields plus indicators computed from the daily closing series.
type USStockAnalysis struct {
	Symbol     string       `json:"symbol"`
	Quote      Quote        `json:"quote"`
	Indicators IndicatorSet `json:"indicators"`
	FetchedAt  time.Time    `json:"fetched_at"`
}

// EquityRecord is one row of the NIFTY 500 reference table. Numeric fields are
// pointers because the source data may be incomplete per row.
type EquityRecord struct {
	Symbol       string   `json:"symbol"`
	CompanyName  string   `json:"company_name"`
	MarketCap    *float64 `json:"market_cap,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	PE           *float64 `json:"pe,omitempty"`
	PB           *float64 `json:"pb,omitempty"`
	ROE          *float64 `json:"roe,omitempty"`
	ROCE         *float64 `json:"roce,omitempty"`
	Return1M     *float64 `json:"return_1m,omitempty"`
	Return6M     *float64 `json:"return_6m,omitempty"`
	Return1Y     *float64 `json:"return_1y,omitempty"`
}

// NewsItem is a single headline fetched from a market news feed.
type NewsItem struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Source    string    `json:"source"`
	Summary   string    `json:"summary,omitempty"`
	Published time.Time `json:"published,omitempty"`
}
