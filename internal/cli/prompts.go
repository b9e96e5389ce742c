package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

const (
	actionQuote   = "Current quote"
	actionHistory = "OHLC history"
	actionInsight = "AI trading insight"
	actionQuit    = "Quit"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.&-]+$`)

// PromptForSymbol prompts the user to enter a broker stock code
func PromptForSymbol() (string, error) {
	var symbol string
	prompt := &survey.Input{
		Message: "Enter the stock code (e.g., RELIANCE, TCS, INFY):",
		Help:    "Use the broker's stock code, not the ISIN",
	}

	err := survey.AskOne(prompt, &symbol, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(strings.ToUpper(val.(string)))
		if len(str) == 0 {
			return fmt.Errorf("stock code cannot be empty")
		}
		if len(str) > 20 {
			return fmt.Errorf("stock code too long (max 20 characters)")
		}
		if !tickerPattern.MatchString(str) {
			return fmt.Errorf("invalid stock code (use letters, numbers, dots, & and hyphens only)")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(strings.ToUpper(symbol)), nil
}

// PromptForExchange selects an exchange from the configured allow-list
func PromptForExchange(exchanges []string) (string, error) {
	if len(exchanges) == 1 {
		return exchanges[0], nil
	}

	var exchange string
	prompt := &survey.Select{
		Message: "Select exchange:",
		Options: exchanges,
		Default: exchanges[0],
	}
	if err := survey.AskOne(prompt, &exchange); err != nil {
		return "", err
	}
	return exchange, nil
}

// PromptForAction selects what to do with the symbol
func PromptForAction() (string, error) {
	var action string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: []string{actionQuote, actionHistory, actionInsight, actionQuit},
		Default: actionQuote,
	}
	if err := survey.AskOne(prompt, &action); err != nil {
		return "", err
	}
	return action, nil
}

// PromptForDays asks how many days of history to fetch
func PromptForDays() (int, error) {
	days := 0
	prompt := &survey.Input{
		Message: "How many days of history?",
		Default: "30",
	}

	var answer string
	err := survey.AskOne(prompt, &answer, survey.WithValidator(func(val interface{}) error {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(val.(string)), "%d", &n); err != nil || n <= 0 {
			return fmt.Errorf("enter a positive number of days")
		}
		if n > 365 {
			return fmt.Errorf("at most one year of history")
		}
		return nil
	}))
	if err != nil {
		return 0, err
	}

	fmt.Sscanf(strings.TrimSpace(answer), "%d", &days)
	return days, nil
}
