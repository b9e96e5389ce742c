package display

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/prakhar141/icici-direct/internal/breeze"
	"github.com/prakhar141/icici-direct/internal/dataflows"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(1, 2)

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Width(16)

	valueStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#10B981"))

	naStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Italic(true)

	insightStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#F59E0B")).
		Padding(1, 2).
		Width(80)

	errorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#EF4444"))

	hintStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))
)

// Banner prints the welcome header.
func Banner() {
	fmt.Println(titleStyle.Render("📈 Breeze Insight"))
	fmt.Println(hintStyle.Render("Broker quotes, OHLC history and AI trading opinions in your terminal"))
	fmt.Println()
}

// Quote renders a QuoteRecord as a metric panel. Fields the broker did not
// send show as "not available" rather than zero.
func Quote(symbol, exchange string, rec *breeze.QuoteRecord) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n", titleStyle.Render(symbol), hintStyle.Render(exchange))

	rows := []struct {
		label string
		value decimal.NullDecimal
	}{
		{"LTP", rec.Ltp},
		{"Open", rec.Open},
		{"High", rec.High},
		{"Low", rec.Low},
		{"Close", rec.Close},
		{"Prev Close", rec.PreviousClose},
	}
	for _, row := range rows {
		b.WriteString(labelStyle.Render(row.label))
		b.WriteString(renderPrice(row.value))
		b.WriteString("\n")
	}

	b.WriteString(labelStyle.Render("Volume"))
	if rec.Volume != nil {
		b.WriteString(valueStyle.Render(fmt.Sprintf("%d", *rec.Volume)))
	} else {
		b.WriteString(naStyle.Render("not available"))
	}

	fmt.Println(panelStyle.Render(b.String()))
}

func renderPrice(d decimal.NullDecimal) string {
	if !d.Valid {
		return naStyle.Render("not available")
	}
	return valueStyle.Render(d.Decimal.StringFixed(2))
}

// Candles renders an OHLC window as a table, newest last.
func Candles(symbol string, candles []breeze.Candle) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n", titleStyle.Render(symbol), hintStyle.Render("OHLC history"))
	fmt.Fprintf(&b, "%-20s %10s %10s %10s %10s %12s\n", "Datetime", "Open", "High", "Low", "Close", "Volume")

	for _, c := range candles {
		fmt.Fprintf(&b, "%-20s %10s %10s %10s %10s %12d\n",
			c.Datetime.Format("2006-01-02 15:04"),
			c.Open.StringFixed(2),
			c.High.StringFixed(2),
			c.Low.StringFixed(2),
			c.Close.StringFixed(2),
			c.Volume,
		)
	}

	fmt.Println(panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

// Series renders public daily data the same way as broker candles.
func Series(symbol string, series []*dataflows.MarketData) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n", titleStyle.Render(symbol), hintStyle.Render("daily series"))
	fmt.Fprintf(&b, "%-12s %10s %10s %10s %10s %12s\n", "Date", "Open", "High", "Low", "Close", "Volume")

	for _, md := range series {
		fmt.Fprintf(&b, "%-12s %10s %10s %10s %10s %12d\n",
			md.Date.Format("2006-01-02"),
			md.Open.StringFixed(2),
			md.High.StringFixed(2),
			md.Low.StringFixed(2),
			md.Close.StringFixed(2),
			md.Volume,
		)
	}

	fmt.Println(panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

// Insight renders the model's trading opinion.
func Insight(text string) {
	header := titleStyle.Render("🤖 AI Trading Insight")
	fmt.Println(insightStyle.Render(header + "\n\n" + text))
}

// Error renders any fetch failure with enough context to tell credentials,
// network and data problems apart.
func Error(err error) {
	fmt.Println(errorStyle.Render("✗ " + err.Error()))

	var httpErr *breeze.HTTPError
	switch {
	case errors.Is(err, breeze.ErrMissingCredential):
		fmt.Println(hintStyle.Render("  Set BREEZE_SESSION_TOKEN (and app key/secret) and try again."))
	case errors.Is(err, breeze.ErrEmptyPayload):
		fmt.Println(hintStyle.Render("  The request succeeded but the broker had no data for this instrument."))
	case errors.As(err, &httpErr):
		if httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			fmt.Println(hintStyle.Render("  A 4xx here usually means a bad checksum or an expired session; re-authenticate rather than retrying."))
		} else {
			fmt.Println(hintStyle.Render("  Server-side failure; retrying later may help."))
		}
	case errors.As(err, new(*breeze.TransportError)):
		fmt.Println(hintStyle.Render("  Check your network connection. A retry will be signed freshly."))
	case errors.As(err, new(*breeze.DecodeError)):
		fmt.Println(hintStyle.Render("  The response did not match the documented envelope; the API may have changed."))
	}
}
