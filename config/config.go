package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default service endpoints. The Breeze base URL points at the v1 REST API,
// which is the one that requires checksum-signed requests.
const (
	DefaultBreezeBaseURL   = "https://api.icicidirect.com/breezeapi/api/v1"
	DefaultAlphaVantageURL = "https://www.alphavantage.co/query"
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultDeepSeekURL     = "https://api.deepseek.com/v1"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	// Breeze (ICICI Direct) API credentials. The session token is
	// short-lived and obtained through the broker's login flow; it is
	// read here but never written back to disk.
	BreezeAppKey       string `json:"breeze_app_key"`
	BreezeAppSecret    string `json:"breeze_app_secret"`
	BreezeSessionToken string `json:"breeze_session_token"`
	BreezeBaseURL      string `json:"breeze_base_url"`

	// The quotes schema requires right/strike_price even for cash
	// products; some deployments of the API reject them instead. The
	// toggle exists because the two documented variants disagree.
	OmitOptionFields bool     `json:"omit_option_fields"`
	Exchanges        []string `json:"exchanges"`

	// LLM insight configuration.
	LLMProvider   string `json:"llm_provider"`
	LLMModel      string `json:"llm_model"`
	LLMBaseURL    string `json:"llm_base_url"`
	OpenRouterKey string `json:"openrouter_api_key"`
	DeepSeekKey   string `json:"deepseek_api_key"`

	// Public market-data fallbacks.
	AlphaVantageKey string `json:"alphavantage_api_key"`
	AlphaVantageURL string `json:"alphavantage_url"`

	HTTPTimeoutSeconds int  `json:"http_timeout_seconds"`
	CacheEnabled       bool `json:"cache_enabled"`
	Debug              bool `json:"debug"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	cfg := DefaultConfigWithRoot(currentDir)

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()
	return cfg
}

// Load builds the effective configuration the CLI runs with: the managed
// config.json first, then .env/environment values layered on top. The
// environment always wins, which is how the short-lived session token gets
// in without ever touching the file. When no config file can be managed
// (e.g. no writable config dir) the returned Manager is nil and the
// env-only defaults are used.
func Load(opts ...ManagerOption) (*Manager, *Config) {
	mgr, err := NewManager(opts...)
	if err != nil {
		return nil, DefaultConfig()
	}
	mgr.ApplyEnvOverrides()
	cfg := mgr.Get()
	return mgr, &cfg
}

func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:   root,
		DataDir:      filepath.Join(root, "data"),
		DataCacheDir: filepath.Join(root, "data", "cache"),

		BreezeBaseURL: DefaultBreezeBaseURL,
		Exchanges:     []string{"NSE", "BSE", "NFO"},

		LLMProvider: "openrouter",
		LLMModel:    "moonshotai/kimi-k2:free",
		LLMBaseURL:  DefaultOpenRouterURL,

		AlphaVantageURL: DefaultAlphaVantageURL,

		HTTPTimeoutSeconds: 10,
		CacheEnabled:       true,
		Debug:              false,
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}

	if val := os.Getenv("BREEZE_APP_KEY"); val != "" {
		c.BreezeAppKey = val
	}
	if val := os.Getenv("BREEZE_APP_SECRET"); val != "" {
		c.BreezeAppSecret = val
	}
	if val := os.Getenv("BREEZE_SESSION_TOKEN"); val != "" {
		c.BreezeSessionToken = val
	}
	if val := os.Getenv("BREEZE_BASE_URL"); val != "" {
		c.BreezeBaseURL = val
	}
	if val := os.Getenv("BREEZE_OMIT_OPTION_FIELDS"); val != "" {
		if omit, err := strconv.ParseBool(val); err == nil {
			c.OmitOptionFields = omit
		}
	}
	if val := os.Getenv("BREEZE_EXCHANGES"); val != "" {
		parts := strings.Split(val, ",")
		exchanges := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(strings.ToUpper(p)); p != "" {
				exchanges = append(exchanges, p)
			}
		}
		if len(exchanges) > 0 {
			c.Exchanges = exchanges
		}
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.LLMModel = val
	}
	if val := os.Getenv("LLM_BASE_URL"); val != "" {
		c.LLMBaseURL = val
	}
	if val := os.Getenv("OPENROUTER_API_KEY"); val != "" {
		c.OpenRouterKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekKey = val
	}

	if val := os.Getenv("ALPHAVANTAGE_API_KEY"); val != "" {
		c.AlphaVantageKey = val
	}
	if val := os.Getenv("ALPHAVANTAGE_URL"); val != "" {
		c.AlphaVantageURL = val
	}

	if val := os.Getenv("HTTP_TIMEOUT_SECONDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v > 0 {
			c.HTTPTimeoutSeconds = v
		}
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = enabled
		}
	}
	if val := os.Getenv("BREEZEINSIGHT_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
}

// HTTPTimeout returns the configured client timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// ExchangeAllowed reports whether the exchange code is in the configured
// allow-list. Matching is case-insensitive.
func (c *Config) ExchangeAllowed(code string) bool {
	for _, e := range c.Exchanges {
		if strings.EqualFold(e, code) {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if c.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("http_timeout_seconds must not be negative")
	}
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("at least one exchange must be configured")
	}
	switch c.LLMProvider {
	case "", "openrouter", "openai", "deepseek":
	default:
		return fmt.Errorf("unknown llm_provider %q", c.LLMProvider)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.DataCacheDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
