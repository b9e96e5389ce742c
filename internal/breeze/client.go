package breeze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	quotesPath  = "/quotes"
	chartsPath  = "/historicalcharts"
	candleStamp = "2006-01-02 15:04:05"
)

// Client issues checksum-signed requests to the Breeze quotes API. One
// synchronous request per call, no retries; a caller that wants to retry
// must go through the client again so a fresh timestamp gets signed.
type Client struct {
	http             *resty.Client
	signer           *Signer
	omitOptionFields bool
}

type ClientOption func(*Client)

// WithOmitOptionFields drops right/strike_price from quote bodies, for API
// deployments that reject them on cash products.
func WithOmitOptionFields() ClientOption {
	return func(c *Client) { c.omitOptionFields = true }
}

// WithTimeout overrides the default 10s request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithTransport swaps the underlying RoundTripper. Tests use it to count
// calls that must never happen.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) { c.http.SetTransport(rt) }
}

// WithSignerOptions forwards options to the request signer.
func WithSignerOptions(opts ...SignerOption) ClientOption {
	return func(c *Client) {
		// signer is rebuilt; the credentials stay as constructed
		c.signer = NewSigner(c.signer.creds, opts...)
	}
}

func NewClient(baseURL string, creds Credentials, opts ...ClientOption) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		// The API is documented to read the JSON body of a GET.
		SetAllowGetMethodPayload(true)

	c := &Client{
		http:   httpClient,
		signer: NewSigner(creds),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetQuotes fetches the current quote for one instrument and normalizes the
// envelope into a QuoteRecord.
func (c *Client) GetQuotes(ctx context.Context, params QuoteParams) (*QuoteRecord, error) {
	params.applyDefaults()
	body := quoteBody{
		StockCode:    params.StockCode,
		ExchangeCode: params.ExchangeCode,
		ProductType:  params.ProductType,
	}
	if !c.omitOptionFields {
		body.Right = params.Right
		body.StrikePrice = params.StrikePrice
	}

	payload, err := c.send(ctx, quotesPath, body)
	if err != nil {
		return nil, err
	}

	raw, err := unwrapSingle(payload)
	if err != nil {
		return nil, err
	}
	return raw.record(), nil
}

// GetHistoricalCharts fetches OHLC candles for the given window through the
// same signing scheme as quotes.
func (c *Client) GetHistoricalCharts(ctx context.Context, params HistoryParams) ([]Candle, error) {
	if params.Interval == "" {
		params.Interval = IntervalDay
	}
	if params.ProductType == "" {
		params.ProductType = ProductCash
	}
	body := historyBody{
		Interval:     params.Interval,
		FromDate:     params.FromDate.UTC().Truncate(time.Second).Format(TimestampLayout),
		ToDate:       params.ToDate.UTC().Truncate(time.Second).Format(TimestampLayout),
		StockCode:    params.StockCode,
		ExchangeCode: params.ExchangeCode,
		ProductType:  params.ProductType,
	}

	payload, err := c.send(ctx, chartsPath, body)
	if err != nil {
		return nil, err
	}

	var raws []rawCandle
	if err := json.Unmarshal(payload, &raws); err != nil {
		// a lone candle arrives as an object
		var one rawCandle
		if err2 := json.Unmarshal(payload, &one); err2 != nil {
			return nil, &DecodeError{Raw: string(payload), Cause: err}
		}
		raws = []rawCandle{one}
	}
	if len(raws) == 0 {
		return nil, ErrEmptyPayload
	}

	candles := make([]Candle, 0, len(raws))
	for _, r := range raws {
		candles = append(candles, r.candle())
	}
	return candles, nil
}

func (r *rawCandle) candle() Candle {
	c := Candle{}
	if ts, err := time.Parse(candleStamp, r.Datetime); err == nil {
		c.Datetime = ts
	}
	if r.Open != nil {
		c.Open = *r.Open
	}
	if r.High != nil {
		c.High = *r.High
	}
	if r.Low != nil {
		c.Low = *r.Low
	}
	if r.Close != nil {
		c.Close = *r.Close
	}
	if r.Volume != nil {
		c.Volume = *r.Volume
	}
	return c
}

// send signs the body, performs the GET-with-body call and peels the
// response envelope down to its success payload.
func (c *Client) send(ctx context.Context, path string, body any) (json.RawMessage, error) {
	encoded, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	signed, err := c.signer.Sign(encoded)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(signed.Headers).
		SetBody(signed.Body).
		Get(path)
	if err != nil {
		return nil, &TransportError{Cause: err}
	}

	if !resp.IsSuccess() {
		return nil, &HTTPError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var env struct {
		Status  statusCode      `json:"Status"`
		Success json.RawMessage `json:"Success"`
		Error   string          `json:"Error"`
	}
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, &DecodeError{Raw: resp.String(), Cause: err}
	}

	if env.Status != http.StatusOK {
		msg := env.Error
		if msg == "" {
			msg = "unknown"
		}
		return nil, &APIError{Status: int(env.Status), Message: msg}
	}

	payload := bytes.TrimSpace(env.Success)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) ||
		bytes.Equal(payload, []byte("{}")) || bytes.Equal(payload, []byte("[]")) {
		return nil, ErrEmptyPayload
	}
	return payload, nil
}

// unwrapSingle resolves the success payload's two observed shapes, a quote
// object or a one-element list of quote objects, into one rawQuote.
func unwrapSingle(payload json.RawMessage) (*rawQuote, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []rawQuote
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, &DecodeError{Raw: string(payload), Cause: err}
		}
		if len(list) == 0 {
			return nil, ErrEmptyPayload
		}
		return &list[0], nil
	}

	var one rawQuote
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, &DecodeError{Raw: string(payload), Cause: err}
	}
	return &one, nil
}

// BaseURL reports the endpoint this client talks to.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// String implements fmt.Stringer without leaking credentials.
func (c *Client) String() string {
	return fmt.Sprintf("breeze.Client(%s)", c.http.BaseURL)
}
