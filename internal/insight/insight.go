package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"

	"github.com/prakhar141/icici-direct/config"
	"github.com/prakhar141/icici-direct/internal/breeze"
	"github.com/prakhar141/icici-direct/internal/dataflows"
)

const systemPrompt = "You are a professional trading assistant."

// Analyst turns fetched market data into a short trading opinion. The only
// protocol work here is serializing the data into a prompt; the chat call
// itself goes through eino's model abstraction.
type Analyst struct {
	model model.BaseChatModel
}

func NewAnalyst(cm model.BaseChatModel) *Analyst {
	return &Analyst{model: cm}
}

// NewChatModel builds the configured chat backend. OpenRouter speaks the
// OpenAI wire protocol, so both share the openai model with different base
// URLs.
func NewChatModel(ctx context.Context, cfg *config.Config) (model.BaseChatModel, error) {
	maxTokens := 1024
	switch cfg.LLMProvider {
	case "deepseek":
		key := cfg.DeepSeekKey
		if key == "" {
			return nil, fmt.Errorf("DEEPSEEK_API_KEY not configured")
		}
		baseURL := cfg.LLMBaseURL
		if baseURL == "" || baseURL == config.DefaultOpenRouterURL {
			baseURL = config.DefaultDeepSeekURL
		}
		return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    key,
			Model:     cfg.LLMModel,
			BaseURL:   baseURL,
			MaxTokens: maxTokens,
		})
	default:
		key := cfg.OpenRouterKey
		if key == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY not configured")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   cfg.LLMBaseURL,
			APIKey:    key,
			Model:     cfg.LLMModel,
			MaxTokens: &maxTokens,
		})
	}
}

// Analyze sends the market data prompt and returns the model's opinion text.
func (a *Analyst) Analyze(ctx context.Context, marketJSON string) (string, error) {
	out, err := a.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(BuildPrompt(marketJSON)),
	})
	if err != nil {
		return "", fmt.Errorf("insight request failed: %w", err)
	}
	return strings.TrimSpace(out.Content), nil
}

// BuildPrompt wraps serialized market data in the analysis instruction.
func BuildPrompt(marketJSON string) string {
	return fmt.Sprintf(`You are an expert trading analyst.

Market Data:
%s

Return:
1. Trend
2. Momentum
3. Support & Resistance
4. Risk Level
5. Clear Buy / Sell / Hold

Be short, decisive, and practical.`, marketJSON)
}

// FormatQuote renders a QuoteRecord as the JSON document the prompt embeds.
// Unavailable fields render as null so the model sees what is missing.
func FormatQuote(symbol string, rec *breeze.QuoteRecord) string {
	doc := map[string]any{
		"symbol":                symbol,
		"ltp":                   nullable(rec.Ltp),
		"open":                  nullable(rec.Open),
		"high":                  nullable(rec.High),
		"low":                   nullable(rec.Low),
		"close":                 nullable(rec.Close),
		"previous_close":        nullable(rec.PreviousClose),
		"total_quantity_traded": rec.Volume,
	}
	data, _ := json.MarshalIndent(doc, "", "  ")
	return string(data)
}

// FormatCandles renders an OHLC window for the prompt, oldest first.
func FormatCandles(symbol string, candles []breeze.Candle) string {
	type row struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   int64  `json:"volume"`
	}
	rows := make([]row, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, row{
			Datetime: c.Datetime.Format("2006-01-02 15:04:05"),
			Open:     c.Open.String(),
			High:     c.High.String(),
			Low:      c.Low.String(),
			Close:    c.Close.String(),
			Volume:   c.Volume,
		})
	}
	doc := map[string]any{"symbol": symbol, "ohlc": rows}
	data, _ := json.MarshalIndent(doc, "", "  ")
	return string(data)
}

// FormatSnapshot renders a public-data snapshot for the prompt.
func FormatSnapshot(snap *dataflows.Snapshot) string {
	data, _ := json.MarshalIndent(snap, "", "  ")
	return string(data)
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	return &d.Decimal
}
