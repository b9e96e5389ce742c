package breeze

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

var testCreds = Credentials{
	AppKey:       "app-key",
	AppSecret:    "app-secret",
	SessionToken: "session-token",
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, testCreds, opts...)
}

func TestGetQuotesSendsSignedRequest(t *testing.T) {
	var gotBody string
	var gotHeaders http.Header

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotHeaders = r.Header.Clone()
		w.Write([]byte(`{"Status":200,"Success":[{"ltp":2500.5}]}`))
	})

	_, err := client.GetQuotes(context.Background(), QuoteParams{
		StockCode:    "RELIANCE",
		ExchangeCode: "NSE",
	})
	if err != nil {
		t.Fatalf("GetQuotes: %v", err)
	}

	wantBody := `{"stock_code":"RELIANCE","exchange_code":"NSE","product_type":"cash","right":"Others","strike_price":"0"}`
	if gotBody != wantBody {
		t.Fatalf("transmitted body:\n got %s\nwant %s", gotBody, wantBody)
	}

	ts := gotHeaders.Get("X-Timestamp")
	if ts == "" {
		t.Fatal("X-Timestamp header missing")
	}
	wantChecksum := "token " + Checksum(ts, wantBody, testCreds.AppSecret)
	if got := gotHeaders.Get("X-Checksum"); got != wantChecksum {
		t.Fatalf("X-Checksum = %s, want %s", got, wantChecksum)
	}
	if got := gotHeaders.Get("X-AppKey"); got != "app-key" {
		t.Fatalf("X-AppKey = %s", got)
	}
	if got := gotHeaders.Get("X-SessionToken"); got != "session-token" {
		t.Fatalf("X-SessionToken = %s", got)
	}
	if got := gotHeaders.Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %s", got)
	}
}

func TestGetQuotesNormalizesListPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":200,"Success":[{"ltp":2500.5,"open":2490}]}`))
	})

	rec, err := client.GetQuotes(context.Background(), QuoteParams{StockCode: "RELIANCE", ExchangeCode: "NSE"})
	if err != nil {
		t.Fatalf("GetQuotes: %v", err)
	}

	if !rec.Ltp.Valid || rec.Ltp.Decimal.String() != "2500.5" {
		t.Fatalf("Ltp = %+v, want 2500.5", rec.Ltp)
	}
	if !rec.Open.Valid || rec.Open.Decimal.String() != "2490" {
		t.Fatalf("Open = %+v, want 2490", rec.Open)
	}
	// everything the broker did not send is "not available", not zero
	if rec.High.Valid || rec.Low.Valid || rec.Close.Valid || rec.PreviousClose.Valid {
		t.Fatalf("missing fields should be invalid: %+v", rec)
	}
	if rec.Volume != nil {
		t.Fatalf("Volume = %v, want nil", *rec.Volume)
	}
}

func TestGetQuotesNormalizesObjectPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":200,"Success":{"ltp":100,"total_quantity_traded":420}}`))
	})

	rec, err := client.GetQuotes(context.Background(), QuoteParams{StockCode: "TCS", ExchangeCode: "NSE"})
	if err != nil {
		t.Fatalf("GetQuotes: %v", err)
	}
	if !rec.Ltp.Valid || rec.Ltp.Decimal.String() != "100" {
		t.Fatalf("Ltp = %+v, want 100", rec.Ltp)
	}
	if rec.Volume == nil || *rec.Volume != 420 {
		t.Fatalf("Volume = %v, want 420", rec.Volume)
	}
}

func TestGetQuotesAcceptsStringStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":"200","Success":{"ltp":55}}`))
	})

	rec, err := client.GetQuotes(context.Background(), QuoteParams{StockCode: "INFY", ExchangeCode: "NSE"})
	if err != nil {
		t.Fatalf("GetQuotes with string status: %v", err)
	}
	if !rec.Ltp.Valid {
		t.Fatal("Ltp missing")
	}
}

func TestGetQuotesApplicationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":500,"Error":"Invalid checksum"}`))
	})

	_, err := client.GetQuotes(context.Background(), QuoteParams{StockCode: "X", ExchangeCode: "NSE"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Message != "Invalid checksum" {
		t.Fatalf("Message = %q, want %q", apiErr.Message, "Invalid checksum")
	}
	if apiErr.Status != 500 {
		t.Fatalf("Status = %d, want 500", apiErr.Status)
	}
}

func TestGetQuotesMissingStatusIsApplicationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Success":{"ltp":1}}`))
	})

	_, err := client.GetQuotes(context.Background(), QuoteParams{StockCode: "X", ExchangeCode: "NSE"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Message != "unknown" {
		t.Fatalf("Message = %q, want unknown", apiErr.Message)
	}
}

func TestGetQuotesHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	})

	_, err := client.GetQuotes(context.Background(), QuoteParams{StockCode: "X", ExchangeCode: "NSE"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("StatusCode = %d, want 401", httpErr.StatusCode)
	}
}

func TestGetQuotesDecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway error</html>`))
	})

	_, err := client.GetQuotes(context.Background(), QuoteParams{StockCode: "X", ExchangeCode: "NSE"})
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
	if decErr.Raw == "" {
		t.Fatal("DecodeError should keep the raw body")
	}
}

func TestGetQuotesEmptyPayload(t *testing.T) {
	for _, success := range []string{`null`, `[]`, `{}`} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"Status":200,"Success":` + success + `}`))
		})

		_, err := client.GetQuotes(context.Background(), QuoteParams{StockCode: "X", ExchangeCode: "NSE"})
		if !errors.Is(err, ErrEmptyPayload) {
			t.Fatalf("Success=%s: err = %v, want ErrEmptyPayload", success, err)
		}
	}
}

type countingTransport struct {
	calls atomic.Int64
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, errors.New("transport should not have been used")
}

func TestGetQuotesMissingCredentialShortCircuits(t *testing.T) {
	transport := &countingTransport{}
	client := NewClient("https://example.invalid", Credentials{
		AppKey:    "k",
		AppSecret: "s",
		// no session token
	}, WithTransport(transport))

	_, err := client.GetQuotes(context.Background(), QuoteParams{StockCode: "X", ExchangeCode: "NSE"})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
	if n := transport.calls.Load(); n != 0 {
		t.Fatalf("transport saw %d calls, want 0", n)
	}
}

func TestGetQuotesTransportTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"Status":200,"Success":{"ltp":1}}`))
	}, WithTimeout(20*time.Millisecond))

	_, err := client.GetQuotes(context.Background(), QuoteParams{StockCode: "X", ExchangeCode: "NSE"})
	var trErr *TransportError
	if !errors.As(err, &trErr) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
}

func TestRetryGetsFreshSignature(t *testing.T) {
	var checksums []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		checksums = append(checksums, r.Header.Get("X-Checksum"))
		w.Write([]byte(`{"Status":200,"Success":{"ltp":1}}`))
	})

	// freeze two distinct instants, one per call
	instants := []time.Time{
		time.Date(2024, 3, 5, 10, 0, 1, 0, time.UTC),
		time.Date(2024, 3, 5, 10, 0, 2, 0, time.UTC),
	}
	var call int
	WithSignerOptions(WithClock(func() time.Time {
		t := instants[call]
		if call < len(instants)-1 {
			call++
		}
		return t
	}))(client)

	params := QuoteParams{StockCode: "RELIANCE", ExchangeCode: "NSE"}
	if _, err := client.GetQuotes(context.Background(), params); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := client.GetQuotes(context.Background(), params); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if len(checksums) != 2 || checksums[0] == checksums[1] {
		t.Fatalf("manual retry reused a stale signature: %v", checksums)
	}
}

func TestGetQuotesOmitOptionFields(t *testing.T) {
	var gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Write([]byte(`{"Status":200,"Success":{"ltp":1}}`))
	}, WithOmitOptionFields())

	if _, err := client.GetQuotes(context.Background(), QuoteParams{StockCode: "SBIN", ExchangeCode: "BSE"}); err != nil {
		t.Fatalf("GetQuotes: %v", err)
	}
	want := `{"stock_code":"SBIN","exchange_code":"BSE","product_type":"cash"}`
	if gotBody != want {
		t.Fatalf("body:\n got %s\nwant %s", gotBody, want)
	}
}

func TestGetHistoricalCharts(t *testing.T) {
	var gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Write([]byte(`{"Status":200,"Success":[
			{"datetime":"2024-03-04 00:00:00","open":2480,"high":2510,"low":2470,"close":2500,"volume":120000},
			{"datetime":"2024-03-05 00:00:00","open":2500,"high":2530,"low":2495,"close":2520,"volume":98000}
		]}`))
	})

	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	candles, err := client.GetHistoricalCharts(context.Background(), HistoryParams{
		StockCode:    "RELIANCE",
		ExchangeCode: "NSE",
		Interval:     IntervalDay,
		FromDate:     from,
		ToDate:       to,
	})
	if err != nil {
		t.Fatalf("GetHistoricalCharts: %v", err)
	}

	wantBody := `{"interval":"1day","from_date":"2024-03-04T00:00:00.000Z","to_date":"2024-03-05T00:00:00.000Z","stock_code":"RELIANCE","exchange_code":"NSE","product_type":"cash"}`
	if gotBody != wantBody {
		t.Fatalf("history body:\n got %s\nwant %s", gotBody, wantBody)
	}

	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}
	if candles[0].Close.String() != "2500" || candles[1].Volume != 98000 {
		t.Fatalf("candles not decoded: %+v", candles)
	}
	if !candles[1].Datetime.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Datetime = %v", candles[1].Datetime)
	}
}
