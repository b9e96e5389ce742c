package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/prakhar141/icici-direct/config"
	"github.com/prakhar141/icici-direct/internal/breeze"
	"github.com/prakhar141/icici-direct/internal/display"
)

// InteractiveSession runs the prompt loop that is the tool's default mode.
// With a config manager attached, edits to config.json from another terminal
// are picked up between actions without restarting the session.
type InteractiveSession struct {
	mu  sync.Mutex
	cfg config.Config
	mgr *config.Manager
}

func NewInteractiveSession(cfg *config.Config) *InteractiveSession {
	return &InteractiveSession{cfg: *cfg}
}

// WithManager attaches the config manager whose reloads the session follows.
func (s *InteractiveSession) WithManager(mgr *config.Manager) *InteractiveSession {
	s.mgr = mgr
	return s
}

func (s *InteractiveSession) applyConfig(cfg config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *InteractiveSession) snapshot() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Start begins the interactive session
func (s *InteractiveSession) Start(ctx context.Context) error {
	display.Banner()

	if s.mgr != nil {
		if err := s.mgr.Watch(ctx, s.applyConfig); err != nil {
			display.Error(err)
		}
	}

	if s.snapshot().BreezeSessionToken == "" {
		fmt.Println("ℹ No Breeze session token configured; quotes will come from public sources.")
		fmt.Println()
	}

	for {
		action, err := PromptForAction()
		if err != nil {
			return quietInterrupt(err)
		}
		if action == actionQuit {
			fmt.Println("👋 Bye!")
			return nil
		}

		symbol, err := PromptForSymbol()
		if err != nil {
			return quietInterrupt(err)
		}

		cfg := s.snapshot()
		exchange, err := PromptForExchange(cfg.Exchanges)
		if err != nil {
			return quietInterrupt(err)
		}

		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}
		app := NewApp(&cfg)

		switch action {
		case actionQuote:
			err = app.ShowQuote(ctx, symbol, exchange)
		case actionHistory:
			var days int
			days, err = PromptForDays()
			if err != nil {
				return quietInterrupt(err)
			}
			err = app.ShowHistory(ctx, symbol, exchange, breeze.IntervalDay, days)
		case actionInsight:
			err = app.ShowInsight(ctx, symbol, exchange)
		}

		if err != nil {
			display.Error(err)
		}
		fmt.Println()
	}
}

// quietInterrupt converts Ctrl-C in a prompt into a clean exit.
func quietInterrupt(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		fmt.Println()
		return nil
	}
	return err
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		display.Error(err)
		os.Exit(1)
	}
}
