// Package config provides application-wide configuration management.
// All configuration is loaded from a file and environment variables.
// No configuration is hardcoded in orchestration or strategy logic.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Mode controls whether the orchestrator places real orders or simulates them.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeLive     Mode = "live"
)

// Config holds all system configuration.
// Loaded once at startup and passed as read-only to all components.
type Config struct {
	// TradingMode controls whether orders are actually placed (live) or
	// routed to the practice account (practice).
	TradingMode Mode `json:"trading_mode"`

	// AnthropicAPIKey authenticates the primary LLM provider.
	AnthropicAPIKey string `json:"anthropic_api_key"`
	// MinimaxAPIKey, MinimaxBaseURL, MinimaxModel configure the alternate LLM provider.
	MinimaxAPIKey  string `json:"minimax_api_key"`
	MinimaxBaseURL string `json:"minimax_base_url"`
	MinimaxModel   string `json:"minimax_model"`
	// ClaudeHaikuModel, ClaudeSonnetModel, ClaudeOpusModel name the model
	// tiers the pipeline stages select between.
	ClaudeHaikuModel  string `json:"claude_haiku_model"`
	ClaudeSonnetModel string `json:"claude_sonnet_model"`
	ClaudeOpusModel   string `json:"claude_opus_model"`

	// BrokerAPIKey/BrokerAPISecret authenticate the live broker account.
	BrokerAPIKey    string `json:"broker_api_key"`
	BrokerAPISecret string `json:"broker_api_secret"`
	// PracticeBrokerAPIKey/PracticeBrokerAPISecret authenticate the practice account.
	PracticeBrokerAPIKey    string `json:"practice_broker_api_key"`
	PracticeBrokerAPISecret string `json:"practice_broker_api_secret"`

	// DailyBudgetEUR is the real-money daily spend limit.
	DailyBudgetEUR float64 `json:"daily_budget_eur"`
	// PracticeDailyBudgetEUR is the practice-account daily spend limit.
	PracticeDailyBudgetEUR float64 `json:"practice_daily_budget_eur"`
	// BacktestDailyBudgetEUR is the default per-day budget used by the backtest engine.
	BacktestDailyBudgetEUR float64 `json:"backtest_daily_budget_eur"`

	// DatabaseURL is the Postgres connection string for backtest/sentiment persistence.
	DatabaseURL string `json:"database_url"`
	// BlacklistPath points to the embedded SQLite file backing the blacklist store.
	BlacklistPath string `json:"blacklist_path"`

	// OrchestratorTimezone is the IANA timezone the scheduler and trading-day gate use.
	OrchestratorTimezone string `json:"orchestrator_timezone"`

	// SchedulerCollectTimes is a comma-separated list of "HH:MM" collection times.
	SchedulerCollectTimes string `json:"scheduler_collect_times"`
	// SchedulerExecuteTime is the "HH:MM" decision-and-execution time.
	SchedulerExecuteTime string `json:"scheduler_execute_time"`
	// SchedulerEODTime is the "HH:MM" end-of-day snapshot time.
	SchedulerEODTime string `json:"scheduler_eod_time"`

	// PipelineTimeoutSeconds bounds the whole pipeline run.
	PipelineTimeoutSeconds int `json:"pipeline_timeout_seconds"`
	// MaxToolRounds bounds the research stage's tool-call rounds.
	MaxToolRounds int `json:"max_tool_rounds"`

	// Sell holds the sell-strategy tunables.
	Sell SellConfig `json:"sell"`

	// InsiderLookbackDays bounds how far back the insider source looks.
	InsiderLookbackDays int `json:"insider_lookback_days"`
	// InsiderTopN caps the insider source fetch.
	InsiderTopN int `json:"insider_top_n"`
	// CapitolTradesEnabled toggles the politician-disclosure source.
	CapitolTradesEnabled bool `json:"capitol_trades_enabled"`
	// PoliticianTopN caps the politician source fetch.
	PoliticianTopN int `json:"politician_top_n"`
	// PoliticianReservedSlots reserves cap slots for politician-sourced candidates.
	PoliticianReservedSlots int `json:"politician_reserved_slots"`
	// BafinLookbackDays bounds how far back the politician-disclosure source looks.
	BafinLookbackDays int `json:"bafin_lookback_days"`
	// CapitolTradesMaxMarketCap drops politician-only mega-caps above this market cap.
	CapitolTradesMaxMarketCap float64 `json:"capitol_trades_max_market_cap"`

	// ResearchTopN is the total candidate pool size after the pool-aware cap.
	ResearchTopN int `json:"research_top_n"`
	// MaxPicksPerRun caps the number of buy picks executed per strategy per cycle.
	MaxPicksPerRun int `json:"max_picks_per_run"`
	// MinInsiderTickers is the low-signal-day threshold.
	MinInsiderTickers int `json:"min_insider_tickers"`

	// RecentlyTradedDays is the blacklist TTL.
	RecentlyTradedDays int `json:"recently_traded_days"`

	// ScreenerMinMarketCap and ScreenerExchanges bound the global-markets screener tool.
	ScreenerMinMarketCap float64  `json:"screener_min_market_cap"`
	ScreenerExchanges    []string `json:"screener_exchanges"`

	// MarketDataTickerLimit caps per-day market-data fetches in backtest mode.
	MarketDataTickerLimit int `json:"market_data_ticker_limit"`

	// CircuitBreaker guards broker and news-provider calls.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`

	// Notifier configures the best-effort cycle-summary notifier.
	Notifier NotifierConfig `json:"notifier"`
}

// SellConfig holds the sell-strategy engine's tunables.
type SellConfig struct {
	StopLossPct   float64 `json:"stop_loss_pct"`
	TakeProfitPct float64 `json:"take_profit_pct"`
	MaxHoldDays   int     `json:"max_hold_days"`
	CheckSchedule string  `json:"check_schedule"`
}

// CircuitBreakerConfig bounds how many failures trip a circuit breaker
// and how long it stays tripped.
type CircuitBreakerConfig struct {
	MaxConsecutiveFailures int `json:"max_consecutive_failures"`
	MaxFailuresPerHour     int `json:"max_failures_per_hour"`
	CooldownMinutes        int `json:"cooldown_minutes"`
}

// NotifierConfig configures the best-effort decision-cycle notifier.
type NotifierConfig struct {
	Enabled        bool   `json:"enabled"`
	TelegramToken  string `json:"telegram_bot_token"`
	TelegramChatID string `json:"telegram_chat_id"`
	DashboardPort  int    `json:"dashboard_port"`
}

// Load reads configuration from a JSON file. A sibling ".env" file, if
// present, is loaded first so its values are visible to environment
// overrides below. Environment variables override file values where applicable.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", absPath, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse json: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.OrchestratorTimezone == "" {
		cfg.OrchestratorTimezone = "Europe/Berlin"
	}
	if cfg.PipelineTimeoutSeconds == 0 {
		cfg.PipelineTimeoutSeconds = 900
	}
	if cfg.MaxToolRounds == 0 {
		cfg.MaxToolRounds = 6
	}
	if cfg.RecentlyTradedDays == 0 {
		cfg.RecentlyTradedDays = 30
	}
	if cfg.MarketDataTickerLimit == 0 {
		cfg.MarketDataTickerLimit = 40
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ORCH_TRADING_MODE"); v != "" {
		cfg.TradingMode = Mode(v)
	}
	if v := os.Getenv("ORCH_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := os.Getenv("MINIMAX_API_KEY"); v != "" {
		cfg.MinimaxAPIKey = v
	}
	if v := os.Getenv("BROKER_API_KEY"); v != "" {
		cfg.BrokerAPIKey = v
	}
	if v := os.Getenv("BROKER_API_SECRET"); v != "" {
		cfg.BrokerAPISecret = v
	}
	if v := os.Getenv("PRACTICE_BROKER_API_KEY"); v != "" {
		cfg.PracticeBrokerAPIKey = v
	}
	if v := os.Getenv("PRACTICE_BROKER_API_SECRET"); v != "" {
		cfg.PracticeBrokerAPISecret = v
	}
}

// Validate checks that all required configuration fields are present and sane.
func (c *Config) Validate() error {
	if c.TradingMode != ModePractice && c.TradingMode != ModeLive {
		return fmt.Errorf("trading_mode must be 'practice' or 'live', got %q", c.TradingMode)
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("anthropic_api_key is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if _, err := time.LoadLocation(c.OrchestratorTimezone); err != nil {
		return fmt.Errorf("orchestrator_timezone %q is not a valid IANA timezone: %w", c.OrchestratorTimezone, err)
	}
	if c.PracticeDailyBudgetEUR <= 0 {
		return fmt.Errorf("practice_daily_budget_eur must be positive, got %f", c.PracticeDailyBudgetEUR)
	}
	if c.Sell.StopLossPct <= 0 {
		return fmt.Errorf("sell.stop_loss_pct must be positive, got %f", c.Sell.StopLossPct)
	}
	if c.Sell.TakeProfitPct <= 0 {
		return fmt.Errorf("sell.take_profit_pct must be positive, got %f", c.Sell.TakeProfitPct)
	}
	if c.Sell.MaxHoldDays <= 0 {
		return fmt.Errorf("sell.max_hold_days must be positive, got %d", c.Sell.MaxHoldDays)
	}
	if c.ResearchTopN <= 0 {
		return fmt.Errorf("research_top_n must be positive, got %d", c.ResearchTopN)
	}
	if c.PoliticianReservedSlots > c.ResearchTopN {
		return fmt.Errorf("politician_reserved_slots (%d) cannot exceed research_top_n (%d)", c.PoliticianReservedSlots, c.ResearchTopN)
	}

	// Live mode has stricter requirements to prevent accidental real trading.
	if c.TradingMode == ModeLive {
		if err := c.validateLiveMode(); err != nil {
			return fmt.Errorf("live mode: %w", err)
		}
	}

	return nil
}

// validateLiveMode enforces extra safety checks when running with real money.
func (c *Config) validateLiveMode() error {
	if c.BrokerAPIKey == "" || c.BrokerAPISecret == "" {
		return fmt.Errorf("broker_api_key and broker_api_secret are required for live trading")
	}
	if c.DailyBudgetEUR <= 0 {
		return fmt.Errorf("daily_budget_eur must be positive in live mode")
	}
	// Safety cap: live daily budget may not exceed the practice budget
	// by more than 5x, to catch config typos before they spend real money.
	if c.DailyBudgetEUR > c.PracticeDailyBudgetEUR*5 {
		return fmt.Errorf("daily_budget_eur (%.2f) looks too large relative to practice_daily_budget_eur (%.2f)",
			c.DailyBudgetEUR, c.PracticeDailyBudgetEUR)
	}
	return nil
}
