package dataflows

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// YahooFinanceClient is the keyless fallback source, used when neither a
// Breeze session nor an Alpha Vantage key is configured. Indian tickers are
// queried with the .NS / .BO suffixes Yahoo expects.
type YahooFinanceClient struct {
	cache *CacheManager
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient(cfg *Config) *YahooFinanceClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "yahoo_finance")
	cache := NewCacheManager(cacheDir, 1*time.Hour, cfg.CacheEnabled)

	return &YahooFinanceClient{cache: cache}
}

// YahooSymbol maps an exchange code onto Yahoo's suffix convention.
func YahooSymbol(symbol, exchange string) string {
	symbol = NormalizeSymbol(symbol)
	switch exchange {
	case "NSE", "NFO":
		return symbol + ".NS"
	case "BSE":
		return symbol + ".BO"
	default:
		return symbol
	}
}

// GetQuote gets current quote data for a symbol
func (yf *YahooFinanceClient) GetQuote(symbol string) (*MarketData, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached MarketData
	if yf.cache.Get("yahoo", "quote", symbol, &cached) {
		return &cached, nil
	}

	q, err := quote.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}
	if q == nil {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}

	result := &MarketData{
		Symbol:    symbol,
		Date:      time.Now(),
		Open:      decimal.NewFromFloat(q.RegularMarketOpen),
		High:      decimal.NewFromFloat(q.RegularMarketDayHigh),
		Low:       decimal.NewFromFloat(q.RegularMarketDayLow),
		Close:     decimal.NewFromFloat(q.RegularMarketPrice),
		Volume:    int64(q.RegularMarketVolume),
		Timestamp: time.Now(),
	}

	yf.cache.Set("yahoo", "quote", symbol, result)
	return result, nil
}

// GetHistoricalData gets daily price history for a symbol
func (yf *YahooFinanceClient) GetHistoricalData(symbol string, start, end time.Time) ([]*MarketData, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}

	var cached []*MarketData
	if yf.cache.Get("yahoo", "historical", cacheKey, &cached) {
		return cached, nil
	}

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	result := make([]*MarketData, 0)
	for iter.Next() {
		bar := iter.Bar()
		result = append(result, &MarketData{
			Symbol:    symbol,
			Date:      time.Unix(int64(bar.Timestamp), 0),
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    int64(bar.Volume),
			Timestamp: time.Now(),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
	}

	yf.cache.Set("yahoo", "historical", cacheKey, result)
	return result, nil
}
