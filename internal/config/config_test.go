package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

const baseValidConfig = `{
	"trading_mode": "practice",
	"anthropic_api_key": "sk-test",
	"database_url": "postgres://localhost/test",
	"orchestrator_timezone": "Europe/Berlin",
	"practice_daily_budget_eur": 250,
	"research_top_n": 10,
	"politician_reserved_slots": 2,
	"sell": {
		"stop_loss_pct": 10,
		"take_profit_pct": 15,
		"max_hold_days": 30
	}
}`

func TestConfig_LoadValid(t *testing.T) {
	path := writeTestConfig(t, baseValidConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TradingMode != ModePractice {
		t.Errorf("expected practice, got %s", cfg.TradingMode)
	}
	if cfg.OrchestratorTimezone != "Europe/Berlin" {
		t.Errorf("expected Europe/Berlin, got %s", cfg.OrchestratorTimezone)
	}
	if cfg.PipelineTimeoutSeconds != 900 {
		t.Errorf("expected default pipeline_timeout_seconds of 900, got %d", cfg.PipelineTimeoutSeconds)
	}
}

func TestConfig_RejectsInvalidMode(t *testing.T) {
	path := writeTestConfig(t, `{
		"trading_mode": "invalid",
		"anthropic_api_key": "sk-test",
		"database_url": "postgres://localhost/test",
		"practice_daily_budget_eur": 250,
		"research_top_n": 10,
		"sell": {"stop_loss_pct": 10, "take_profit_pct": 15, "max_hold_days": 30}
	}`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid trading mode")
	}
}

func TestConfig_RejectsMissingAnthropicKey(t *testing.T) {
	path := writeTestConfig(t, `{
		"trading_mode": "practice",
		"database_url": "postgres://localhost/test",
		"practice_daily_budget_eur": 250,
		"research_top_n": 10,
		"sell": {"stop_loss_pct": 10, "take_profit_pct": 15, "max_hold_days": 30}
	}`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for missing anthropic_api_key")
	}
}

func TestConfig_RejectsBadTimezone(t *testing.T) {
	path := writeTestConfig(t, `{
		"trading_mode": "practice",
		"anthropic_api_key": "sk-test",
		"database_url": "postgres://localhost/test",
		"orchestrator_timezone": "Not/ARealZone",
		"practice_daily_budget_eur": 250,
		"research_top_n": 10,
		"sell": {"stop_loss_pct": 10, "take_profit_pct": 15, "max_hold_days": 30}
	}`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid IANA timezone")
	}
}

func TestConfig_RejectsReservedSlotsExceedingPoolSize(t *testing.T) {
	path := writeTestConfig(t, `{
		"trading_mode": "practice",
		"anthropic_api_key": "sk-test",
		"database_url": "postgres://localhost/test",
		"practice_daily_budget_eur": 250,
		"research_top_n": 5,
		"politician_reserved_slots": 10,
		"sell": {"stop_loss_pct": 10, "take_profit_pct": 15, "max_hold_days": 30}
	}`)

	if _, err := Load(path); err == nil {
		t.Error("expected error when politician_reserved_slots exceeds research_top_n")
	}
}

func TestConfig_EnvOverride(t *testing.T) {
	path := writeTestConfig(t, baseValidConfig)

	os.Setenv("ANTHROPIC_API_KEY", "sk-from-env")
	defer os.Unsetenv("ANTHROPIC_API_KEY")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AnthropicAPIKey != "sk-from-env" {
		t.Errorf("expected env override, got %s", cfg.AnthropicAPIKey)
	}
}

// ────────────────────────────────────────────────────────────────────
// Live mode validation tests
// ────────────────────────────────────────────────────────────────────

func validLiveConfig() Config {
	return Config{
		TradingMode:            ModeLive,
		AnthropicAPIKey:        "sk-test",
		DatabaseURL:            "postgres://localhost/test",
		OrchestratorTimezone:   "Europe/Berlin",
		BrokerAPIKey:           "key",
		BrokerAPISecret:        "secret",
		DailyBudgetEUR:         100,
		PracticeDailyBudgetEUR: 50,
		ResearchTopN:           10,
		Sell: SellConfig{
			StopLossPct:   10,
			TakeProfitPct: 15,
			MaxHoldDays:   30,
		},
	}
}

func TestLiveMode_RequiresBrokerCredentials(t *testing.T) {
	cfg := validLiveConfig()
	cfg.BrokerAPIKey = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error when broker credentials are missing in live mode")
	}
	if !strings.Contains(err.Error(), "broker_api_key") {
		t.Errorf("error should mention broker_api_key, got: %v", err)
	}
}

func TestLiveMode_RejectsOversizedBudget(t *testing.T) {
	cfg := validLiveConfig()
	cfg.DailyBudgetEUR = cfg.PracticeDailyBudgetEUR*5 + 1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error when daily_budget_eur dwarfs practice_daily_budget_eur")
	}
}

func TestLiveMode_ValidConfigPasses(t *testing.T) {
	cfg := validLiveConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid live config should pass validation, got: %v", err)
	}
}

func TestPracticeMode_SkipsLiveChecks(t *testing.T) {
	cfg := Config{
		TradingMode:            ModePractice,
		AnthropicAPIKey:        "sk-test",
		DatabaseURL:            "postgres://localhost/test",
		OrchestratorTimezone:   "Europe/Berlin",
		PracticeDailyBudgetEUR: 50,
		ResearchTopN:           10,
		Sell: SellConfig{
			StopLossPct:   10,
			TakeProfitPct: 15,
			MaxHoldDays:   30,
		},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("practice mode should not enforce live mode checks, got: %v", err)
	}
}
