package breeze

import (
	"bytes"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Exchange codes accepted by the quotes API. Which of them a given account
// may actually use is configurable; see config.Config.Exchanges.
const (
	ExchangeNSE = "NSE"
	ExchangeBSE = "BSE"
	ExchangeNFO = "NFO"
)

// Defaults for cash-equity quotes. The schema requires right/strike_price
// even though they only mean something for derivatives.
const (
	ProductCash = "cash"
	RightOthers = "Others"
	StrikeZero  = "0"
)

// Candle intervals the historical charts API accepts.
const (
	Interval1Min  = "1minute"
	Interval5Min  = "5minute"
	Interval30Min = "30minute"
	IntervalDay   = "1day"
)

// Intervals lists the accepted candle intervals, shortest first.
func Intervals() []string {
	return []string{Interval1Min, Interval5Min, Interval30Min, IntervalDay}
}

// ValidInterval reports whether the historical charts API accepts the
// interval.
func ValidInterval(interval string) bool {
	switch interval {
	case Interval1Min, Interval5Min, Interval30Min, IntervalDay:
		return true
	}
	return false
}

// Credentials holds the three Breeze secrets. The app secret is never sent
// on the wire; it only feeds the checksum. The session token is short-lived
// and obtained through the broker's login flow.
type Credentials struct {
	AppKey       string
	AppSecret    string
	SessionToken string
}

// QuoteParams identifies the instrument to quote.
type QuoteParams struct {
	StockCode    string
	ExchangeCode string
	ProductType  string
	Right        string
	StrikePrice  string
}

func (p *QuoteParams) applyDefaults() {
	if p.ProductType == "" {
		p.ProductType = ProductCash
	}
	if p.Right == "" {
		p.Right = RightOthers
	}
	if p.StrikePrice == "" {
		p.StrikePrice = StrikeZero
	}
}

// HistoryParams identifies an OHLC window.
type HistoryParams struct {
	StockCode    string
	ExchangeCode string
	ProductType  string
	Interval     string
	FromDate     time.Time
	ToDate       time.Time
}

// quoteBody is the wire shape of a quotes request. Field order here is the
// canonical key order the checksum is computed over; do not reorder.
type quoteBody struct {
	StockCode    string `json:"stock_code"`
	ExchangeCode string `json:"exchange_code"`
	ProductType  string `json:"product_type"`
	Right        string `json:"right,omitempty"`
	StrikePrice  string `json:"strike_price,omitempty"`
}

type historyBody struct {
	Interval     string `json:"interval"`
	FromDate     string `json:"from_date"`
	ToDate       string `json:"to_date"`
	StockCode    string `json:"stock_code"`
	ExchangeCode string `json:"exchange_code"`
	ProductType  string `json:"product_type"`
}

// QuoteRecord is the normalized quote extracted from a success payload.
// Fields the broker did not send stay invalid/nil rather than zero, so a
// missing price is distinguishable from a zero price.
type QuoteRecord struct {
	Ltp           decimal.NullDecimal
	Open          decimal.NullDecimal
	High          decimal.NullDecimal
	Low           decimal.NullDecimal
	Close         decimal.NullDecimal
	PreviousClose decimal.NullDecimal
	Volume        *int64
}

// Candle is one row of OHLC history.
type Candle struct {
	Datetime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   int64
}

// rawQuote mirrors the success payload field names. Pointers keep absence
// observable.
type rawQuote struct {
	Ltp           *decimal.Decimal `json:"ltp"`
	Open          *decimal.Decimal `json:"open"`
	High          *decimal.Decimal `json:"high"`
	Low           *decimal.Decimal `json:"low"`
	Close         *decimal.Decimal `json:"close"`
	PreviousClose *decimal.Decimal `json:"previous_close"`
	Volume        *int64           `json:"total_quantity_traded"`
}

func (r *rawQuote) record() *QuoteRecord {
	rec := &QuoteRecord{Volume: r.Volume}
	rec.Ltp = nullDecimal(r.Ltp)
	rec.Open = nullDecimal(r.Open)
	rec.High = nullDecimal(r.High)
	rec.Low = nullDecimal(r.Low)
	rec.Close = nullDecimal(r.Close)
	rec.PreviousClose = nullDecimal(r.PreviousClose)
	return rec
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

type rawCandle struct {
	Datetime string           `json:"datetime"`
	Open     *decimal.Decimal `json:"open"`
	High     *decimal.Decimal `json:"high"`
	Low      *decimal.Decimal `json:"low"`
	Close    *decimal.Decimal `json:"close"`
	Volume   *int64           `json:"volume"`
}

// statusCode tolerates both the integer and string renditions the API has
// been observed to emit ("Status":200 and "Status":"200"). Anything
// unparseable decodes to zero, which the client treats as "no recognizable
// status".
type statusCode int

func (s *statusCode) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*s = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		*s = 0
		return nil
	}
	*s = statusCode(n)
	return nil
}
