package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prakhar141/icici-direct/config"
	"github.com/prakhar141/icici-direct/internal/breeze"
)

const version = "1.1.0"

// NewRootCmd creates the root command. The effective config comes from the
// managed config file with environment overrides on top.
func NewRootCmd() *cobra.Command {
	mgr, cfg := config.Load()
	return newRootCmd(mgr, cfg)
}

func newRootCmd(mgr *config.Manager, cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "breezeinsight",
		Short: "Breeze Insight - broker quotes with AI trading opinions",
		Long: `Breeze Insight queries the ICICI Direct Breeze API for live quotes and
OHLC history and can forward the data to an LLM for a short trading opinion.
Without arguments it starts an interactive session.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewInteractiveSession(cfg).WithManager(mgr).Start(cmd.Context())
		},
	}

	rootCmd.AddCommand(newQuoteCmd(cfg))
	rootCmd.AddCommand(newHistoryCmd(cfg))
	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(mgr, cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newQuoteCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Fetch the current quote for a stock code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			exchange, _ := cmd.Flags().GetString("exchange")
			return NewApp(cfg).ShowQuote(cmd.Context(), normalizeSymbol(args[0]), exchange)
		},
	}
	cmd.Flags().String("exchange", "NSE", "Exchange code (NSE, BSE, NFO)")
	return cmd
}

func newHistoryCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Fetch recent OHLC history for a stock code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			exchange, _ := cmd.Flags().GetString("exchange")
			interval, _ := cmd.Flags().GetString("interval")
			days, _ := cmd.Flags().GetInt("days")
			return NewApp(cfg).ShowHistory(cmd.Context(), normalizeSymbol(args[0]), exchange, interval, days)
		},
	}
	cmd.Flags().String("exchange", "NSE", "Exchange code (NSE, BSE, NFO)")
	cmd.Flags().String("interval", breeze.IntervalDay,
		fmt.Sprintf("Candle interval (%s)", strings.Join(breeze.Intervals(), ", ")))
	cmd.Flags().Int("days", 30, "Days of history to fetch")
	return cmd
}

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Fetch market data and ask the LLM for a trading opinion",
		Long: `Fetch the current market data for a symbol and forward it to the
configured chat model for a short opinion covering trend, momentum,
support/resistance, risk and a buy/sell/hold call.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			exchange, _ := cmd.Flags().GetString("exchange")
			return NewApp(cfg).ShowInsight(cmd.Context(), normalizeSymbol(args[0]), exchange)
		},
	}
	cmd.Flags().String("exchange", "NSE", "Exchange code (NSE, BSE, NFO)")
	return cmd
}

func newConfigCmd(mgr *config.Manager, cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration (secrets redacted)",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Breeze base URL:    %s\n", cfg.BreezeBaseURL)
			fmt.Printf("Exchanges:          %v\n", cfg.Exchanges)
			fmt.Printf("Omit option fields: %v\n", cfg.OmitOptionFields)
			fmt.Printf("App key:            %s\n", redact(cfg.BreezeAppKey))
			fmt.Printf("Session token:      %s\n", redact(cfg.BreezeSessionToken))
			fmt.Printf("LLM provider:       %s\n", cfg.LLMProvider)
			fmt.Printf("LLM model:          %s\n", cfg.LLMModel)
			fmt.Printf("HTTP timeout:       %s\n", cfg.HTTPTimeout())
			fmt.Printf("Cache enabled:      %v\n", cfg.CacheEnabled)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show where the config file lives",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mgr == nil {
				return fmt.Errorf("no managed config file in this environment")
			}
			fmt.Println(mgr.Path())
			return nil
		},
	})

	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("breezeinsight v%s\n", version)
		},
	}
}

func redact(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
