package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// AlphaVantageClient fetches daily and intraday OHLC series. Unlike the
// broker quotes API there is no signing here, just an API key query
// parameter.
type AlphaVantageClient struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
}

// NewAlphaVantageClient creates a new Alpha Vantage client
func NewAlphaVantageClient(cfg *Config) *AlphaVantageClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "alphavantage")
	cache := NewCacheManager(cacheDir, 1*time.Hour, cfg.CacheEnabled)

	client := resty.New()
	client.SetBaseURL(cfg.AlphaVantageURL)
	client.SetTimeout(cfg.HTTPTimeout())

	return &AlphaVantageClient{
		client: client,
		cache:  cache,
		apiKey: cfg.AlphaVantageKey,
	}
}

type avBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type avEnvelope struct {
	DailySeries map[string]avBar `json:"Time Series (Daily)"`
	ErrorMsg    string           `json:"Error Message"`
	Note        string           `json:"Note"`
	Information string           `json:"Information"`
}

// GetDailySeries fetches the compact daily OHLC series for a symbol, newest
// first.
func (av *AlphaVantageClient) GetDailySeries(ctx context.Context, symbol string) ([]*MarketData, error) {
	if av.apiKey == "" {
		return nil, fmt.Errorf("Alpha Vantage API key not configured")
	}

	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached []*MarketData
	if av.cache.Get("alphavantage", "daily", symbol, &cached) {
		return cached, nil
	}

	resp, err := av.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     symbol,
			"apikey":     av.apiKey,
			"outputsize": "compact",
		}).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily series for %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}

	var env avEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("failed to parse daily series response: %w", err)
	}
	if env.ErrorMsg != "" {
		return nil, fmt.Errorf("Alpha Vantage error: %s", env.ErrorMsg)
	}
	if env.Note != "" {
		return nil, fmt.Errorf("Alpha Vantage rate limit: %s", env.Note)
	}
	if len(env.DailySeries) == 0 {
		if env.Information != "" {
			return nil, fmt.Errorf("Alpha Vantage: %s", env.Information)
		}
		return nil, fmt.Errorf("no daily data for %s (free accounts only allow daily data)", symbol)
	}

	result := make([]*MarketData, 0, len(env.DailySeries))
	for dateStr, bar := range env.DailySeries {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		md, err := bar.marketData(symbol, date)
		if err != nil {
			continue
		}
		result = append(result, md)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})

	av.cache.Set("alphavantage", "daily", symbol, result)
	return result, nil
}

// Intraday intervals Alpha Vantage accepts for TIME_SERIES_INTRADAY.
var intradayIntervals = map[string]bool{
	"1min":  true,
	"5min":  true,
	"15min": true,
	"30min": true,
	"60min": true,
}

// GetIntradaySeries fetches the compact intraday OHLC series for a symbol,
// newest first. The series key in the response names the interval, e.g.
// "Time Series (5min)", so decoding is keyed off the requested interval.
func (av *AlphaVantageClient) GetIntradaySeries(ctx context.Context, symbol, interval string) ([]*MarketData, error) {
	if av.apiKey == "" {
		return nil, fmt.Errorf("Alpha Vantage API key not configured")
	}
	if !intradayIntervals[interval] {
		return nil, fmt.Errorf("unsupported intraday interval %q", interval)
	}

	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	cacheKey := []string{symbol, interval}
	var cached []*MarketData
	if av.cache.Get("alphavantage", "intraday", cacheKey, &cached) {
		return cached, nil
	}

	resp, err := av.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_INTRADAY",
			"symbol":     symbol,
			"interval":   interval,
			"apikey":     av.apiKey,
			"outputsize": "compact",
		}).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch intraday series for %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}

	result, err := parseIntradaySeries(resp.Body(), symbol, interval)
	if err != nil {
		return nil, err
	}

	av.cache.Set("alphavantage", "intraday", cacheKey, result)
	return result, nil
}

func parseIntradaySeries(body []byte, symbol, interval string) ([]*MarketData, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse intraday series response: %w", err)
	}
	if msg := envString(env, "Error Message"); msg != "" {
		return nil, fmt.Errorf("Alpha Vantage error: %s", msg)
	}
	if msg := envString(env, "Note"); msg != "" {
		return nil, fmt.Errorf("Alpha Vantage rate limit: %s", msg)
	}

	var bars map[string]avBar
	if raw, ok := env[fmt.Sprintf("Time Series (%s)", interval)]; ok {
		if err := json.Unmarshal(raw, &bars); err != nil {
			return nil, fmt.Errorf("failed to parse intraday series response: %w", err)
		}
	}
	if len(bars) == 0 {
		if msg := envString(env, "Information"); msg != "" {
			return nil, fmt.Errorf("Alpha Vantage: %s", msg)
		}
		return nil, fmt.Errorf("no intraday data for %s", symbol)
	}

	result := make([]*MarketData, 0, len(bars))
	for stamp, bar := range bars {
		ts, err := time.Parse("2006-01-02 15:04:05", stamp)
		if err != nil {
			continue
		}
		md, err := bar.marketData(symbol, ts)
		if err != nil {
			continue
		}
		result = append(result, md)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	return result, nil
}

func envString(env map[string]json.RawMessage, key string) string {
	raw, ok := env[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// GetSnapshot returns the latest close as LTP together with the most recent
// bars, ready to feed the insight prompt.
func (av *AlphaVantageClient) GetSnapshot(ctx context.Context, symbol string, bars int) (*Snapshot, error) {
	series, err := av.GetDailySeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if bars > 0 && len(series) > bars {
		series = series[:bars]
	}

	snap := &Snapshot{Symbol: NormalizeSymbol(symbol), Series: series}
	if len(series) > 0 {
		ltp, _ := series[0].Close.Float64()
		snap.Ltp = &ltp
	}
	return snap, nil
}

func (b avBar) marketData(symbol string, date time.Time) (*MarketData, error) {
	open, err := decimal.NewFromString(b.Open)
	if err != nil {
		return nil, err
	}
	high, err := decimal.NewFromString(b.High)
	if err != nil {
		return nil, err
	}
	low, err := decimal.NewFromString(b.Low)
	if err != nil {
		return nil, err
	}
	closePrice, err := decimal.NewFromString(b.Close)
	if err != nil {
		return nil, err
	}
	volume, err := strconv.ParseInt(b.Volume, 10, 64)
	if err != nil {
		return nil, err
	}

	return &MarketData{
		Symbol:    symbol,
		Date:      date,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		Timestamp: time.Now(),
	}, nil
}
