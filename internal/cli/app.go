package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prakhar141/icici-direct/config"
	"github.com/prakhar141/icici-direct/internal/breeze"
	"github.com/prakhar141/icici-direct/internal/dataflows"
	"github.com/prakhar141/icici-direct/internal/display"
	"github.com/prakhar141/icici-direct/internal/insight"
)

// App wires config into the data and insight clients. Which market-data
// source serves a request depends on what is configured: a Breeze session
// gets broker quotes, otherwise the tool falls back to the public sources.
type App struct {
	cfg *config.Config
}

func NewApp(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

func (a *App) breezeClient() *breeze.Client {
	opts := []breeze.ClientOption{breeze.WithTimeout(a.cfg.HTTPTimeout())}
	if a.cfg.OmitOptionFields {
		opts = append(opts, breeze.WithOmitOptionFields())
	}
	return breeze.NewClient(a.cfg.BreezeBaseURL, breeze.Credentials{
		AppKey:       a.cfg.BreezeAppKey,
		AppSecret:    a.cfg.BreezeAppSecret,
		SessionToken: a.cfg.BreezeSessionToken,
	}, opts...)
}

func (a *App) hasBreezeSession() bool {
	return a.cfg.BreezeSessionToken != ""
}

func (a *App) validateExchange(exchange string) error {
	if !a.cfg.ExchangeAllowed(exchange) {
		return fmt.Errorf("exchange %s is not in the configured allow-list %v", exchange, a.cfg.Exchanges)
	}
	return nil
}

// ShowQuote fetches and renders the current quote for a symbol.
func (a *App) ShowQuote(ctx context.Context, symbol, exchange string) error {
	if err := a.validateExchange(exchange); err != nil {
		return err
	}

	if a.hasBreezeSession() {
		rec, err := a.breezeClient().GetQuotes(ctx, breeze.QuoteParams{
			StockCode:    symbol,
			ExchangeCode: exchange,
		})
		if err != nil {
			return err
		}
		display.Quote(symbol, exchange, rec)
		return nil
	}

	// no broker session: public fallback
	yf := dataflows.NewYahooFinanceClient(a.cfg)
	md, err := yf.GetQuote(dataflows.YahooSymbol(symbol, exchange))
	if err != nil {
		return err
	}
	display.Series(symbol, []*dataflows.MarketData{md})
	return nil
}

// ShowHistory fetches and renders the recent OHLC window.
func (a *App) ShowHistory(ctx context.Context, symbol, exchange, interval string, days int) error {
	if err := a.validateExchange(exchange); err != nil {
		return err
	}
	if interval == "" {
		interval = breeze.IntervalDay
	}
	if !breeze.ValidInterval(interval) {
		return fmt.Errorf("interval %s is not supported (use one of %s)",
			interval, strings.Join(breeze.Intervals(), ", "))
	}
	if days <= 0 {
		days = 30
	}
	to := time.Now()
	from := to.AddDate(0, 0, -days)

	if a.hasBreezeSession() {
		candles, err := a.breezeClient().GetHistoricalCharts(ctx, breeze.HistoryParams{
			StockCode:    symbol,
			ExchangeCode: exchange,
			Interval:     interval,
			FromDate:     from,
			ToDate:       to,
		})
		if err != nil {
			return err
		}
		display.Candles(symbol, candles)
		return nil
	}

	if a.cfg.AlphaVantageKey != "" {
		av := dataflows.NewAlphaVantageClient(a.cfg)
		var series []*dataflows.MarketData
		var err error
		if avInterval, ok := alphaVantageInterval(interval); ok {
			series, err = av.GetIntradaySeries(ctx, symbol, avInterval)
		} else {
			series, err = av.GetDailySeries(ctx, symbol)
		}
		if err != nil {
			return err
		}
		if len(series) > days {
			series = series[:days]
		}
		display.Series(symbol, series)
		return nil
	}

	yf := dataflows.NewYahooFinanceClient(a.cfg)
	series, err := yf.GetHistoricalData(dataflows.YahooSymbol(symbol, exchange), from, to)
	if err != nil {
		return err
	}
	display.Series(symbol, series)
	return nil
}

// ShowInsight fetches market data and asks the configured model for a
// trading opinion.
func (a *App) ShowInsight(ctx context.Context, symbol, exchange string) error {
	if err := a.validateExchange(exchange); err != nil {
		return err
	}

	marketJSON, err := a.collectMarketJSON(ctx, symbol, exchange)
	if err != nil {
		return err
	}

	cm, err := insight.NewChatModel(ctx, a.cfg)
	if err != nil {
		return err
	}

	fmt.Println("🧠 AI is analyzing...")
	opinion, err := insight.NewAnalyst(cm).Analyze(ctx, marketJSON)
	if err != nil {
		return err
	}
	display.Insight(opinion)
	return nil
}

// alphaVantageInterval maps a broker candle interval to the equivalent
// Alpha Vantage intraday interval. Daily has its own endpoint and maps to
// nothing here.
func alphaVantageInterval(interval string) (string, bool) {
	switch interval {
	case breeze.Interval1Min:
		return "1min", true
	case breeze.Interval5Min:
		return "5min", true
	case breeze.Interval30Min:
		return "30min", true
	}
	return "", false
}

func (a *App) collectMarketJSON(ctx context.Context, symbol, exchange string) (string, error) {
	if a.hasBreezeSession() {
		client := a.breezeClient()
		rec, err := client.GetQuotes(ctx, breeze.QuoteParams{
			StockCode:    symbol,
			ExchangeCode: exchange,
		})
		if err != nil {
			return "", err
		}
		display.Quote(symbol, exchange, rec)
		doc := insight.FormatQuote(symbol, rec)

		// A recent daily window gives the model trend context; the quote
		// alone still works when history is unavailable.
		to := time.Now()
		candles, err := client.GetHistoricalCharts(ctx, breeze.HistoryParams{
			StockCode:    symbol,
			ExchangeCode: exchange,
			Interval:     breeze.IntervalDay,
			FromDate:     to.AddDate(0, 0, -30),
			ToDate:       to,
		})
		if err == nil && len(candles) > 0 {
			doc += "\n" + insight.FormatCandles(symbol, candles)
		}
		return doc, nil
	}

	if a.cfg.AlphaVantageKey != "" {
		av := dataflows.NewAlphaVantageClient(a.cfg)
		snap, err := av.GetSnapshot(ctx, symbol, 30)
		if err != nil {
			return "", err
		}
		return insight.FormatSnapshot(snap), nil
	}

	yf := dataflows.NewYahooFinanceClient(a.cfg)
	ysym := dataflows.YahooSymbol(symbol, exchange)
	md, err := yf.GetQuote(ysym)
	if err != nil {
		return "", err
	}
	ltp, _ := md.Close.Float64()
	snap := &dataflows.Snapshot{Symbol: symbol, Ltp: &ltp, Series: []*dataflows.MarketData{md}}
	return insight.FormatSnapshot(snap), nil
}
