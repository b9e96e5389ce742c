package dataflows

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/prakhar141/icici-direct/config"
)

// Config is an alias for the main application config
type Config = config.Config

// MarketData represents one day (or intraday bar) of price data
type MarketData struct {
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// Snapshot is the shape handed to the insight prompt: the latest price plus
// the window it was derived from.
type Snapshot struct {
	Symbol string        `json:"symbol"`
	Ltp    *float64      `json:"ltp"`
	Series []*MarketData `json:"series,omitempty"`
}
