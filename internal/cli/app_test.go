package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prakhar141/icici-direct/config"
)

const quoteFixture = `{"Status":200,"Success":[{"ltp":2500.5,"open":2490,"high":2510,"low":2480,"close":2505,"previous_close":2495,"total_quantity_traded":98000}]}`

const chartsFixture = `{"Status":200,"Success":[
	{"datetime":"2024-03-04 00:00:00","open":2480,"high":2510,"low":2470,"close":2500,"volume":120000},
	{"datetime":"2024-03-05 00:00:00","open":2500,"high":2530,"low":2495,"close":2520,"volume":98000}
]}`

func newBreezeTestApp(t *testing.T, handler http.HandlerFunc) *App {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.BreezeBaseURL = srv.URL
	cfg.BreezeAppKey = "key"
	cfg.BreezeAppSecret = "secret"
	cfg.BreezeSessionToken = "session"
	cfg.CacheEnabled = false
	return NewApp(cfg)
}

func TestCollectMarketJSONIncludesCandleWindow(t *testing.T) {
	app := newBreezeTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quotes":
			w.Write([]byte(quoteFixture))
		case "/historicalcharts":
			w.Write([]byte(chartsFixture))
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	doc, err := app.collectMarketJSON(context.Background(), "RELIANCE", "NSE")
	if err != nil {
		t.Fatalf("collectMarketJSON: %v", err)
	}

	for _, part := range []string{`"ltp"`, `"ohlc"`, `"2024-03-04 00:00:00"`, `"2024-03-05 00:00:00"`} {
		if !strings.Contains(doc, part) {
			t.Fatalf("market document missing %s:\n%s", part, doc)
		}
	}
}

func TestCollectMarketJSONSurvivesHistoryFailure(t *testing.T) {
	app := newBreezeTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quotes":
			w.Write([]byte(quoteFixture))
		case "/historicalcharts":
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	doc, err := app.collectMarketJSON(context.Background(), "RELIANCE", "NSE")
	if err != nil {
		t.Fatalf("collectMarketJSON: %v", err)
	}
	if !strings.Contains(doc, `"ltp"`) {
		t.Fatalf("market document missing the quote:\n%s", doc)
	}
	if strings.Contains(doc, `"ohlc"`) {
		t.Fatalf("market document carries candles despite the history failure:\n%s", doc)
	}
}

func TestShowHistoryRejectsUnknownInterval(t *testing.T) {
	app := newBreezeTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no HTTP call expected for an unsupported interval")
	})

	err := app.ShowHistory(context.Background(), "RELIANCE", "NSE", "2minute", 10)
	if err == nil {
		t.Fatal("expected error for unsupported interval")
	}
	if !strings.Contains(err.Error(), "30minute") {
		t.Fatalf("error %q does not list the supported intervals", err)
	}
}
