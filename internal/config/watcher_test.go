package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func watcherLogger() *log.Logger {
	return log.New(os.Stdout, "[watcher-test] ", log.LstdFlags)
}

func writeWatcherTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func baseTestConfig() *Config {
	return &Config{
		TradingMode:            ModePractice,
		AnthropicAPIKey:        "sk-test",
		OrchestratorTimezone:   "Europe/Berlin",
		PracticeDailyBudgetEUR: 250,
		ResearchTopN:           10,
		Sell: SellConfig{
			StopLossPct:   10,
			TakeProfitPct: 15,
			MaxHoldDays:   30,
		},
		DatabaseURL: "postgres://test@localhost/test?sslmode=disable",
	}
}

func TestConfigWatcher_DetectsChange(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.json")

	initial := baseTestConfig()
	writeWatcherTestConfig(t, cfgPath, initial)

	watcher := NewConfigWatcher(cfgPath, initial, watcherLogger())

	changed := make(chan bool, 1)
	watcher.OnChange(func(old, new *Config) {
		changed <- true
	})

	if err := watcher.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	updated := baseTestConfig()
	updated.Sell.MaxHoldDays = 10 // change a sell-rule tunable
	writeWatcherTestConfig(t, cfgPath, updated)

	watcher.checkForChanges()

	select {
	case <-changed:
		current := watcher.Current()
		if current.Sell.MaxHoldDays != 10 {
			t.Errorf("expected MaxHoldDays=10, got %d", current.Sell.MaxHoldDays)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for config change notification")
	}
}

func TestConfigWatcher_IgnoresInvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.json")

	initial := baseTestConfig()
	writeWatcherTestConfig(t, cfgPath, initial)

	watcher := NewConfigWatcher(cfgPath, initial, watcherLogger())

	changed := make(chan bool, 1)
	watcher.OnChange(func(old, new *Config) {
		changed <- true
	})

	if err := watcher.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	os.WriteFile(cfgPath, []byte("not valid json"), 0644)
	watcher.checkForChanges()

	select {
	case <-changed:
		t.Error("should NOT fire callback for invalid JSON")
	case <-time.After(100 * time.Millisecond):
	}

	current := watcher.Current()
	if current.Sell.MaxHoldDays != 30 {
		t.Errorf("expected original MaxHoldDays=30, got %d", current.Sell.MaxHoldDays)
	}
}

func TestConfigWatcher_IgnoresNonTunableChanges(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.json")

	initial := baseTestConfig()
	writeWatcherTestConfig(t, cfgPath, initial)

	watcher := NewConfigWatcher(cfgPath, initial, watcherLogger())

	changed := make(chan bool, 1)
	watcher.OnChange(func(old, new *Config) {
		changed <- true
	})

	if err := watcher.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	updated := baseTestConfig()
	updated.DatabaseURL = "postgres://test@localhost/other" // non-tunable field
	writeWatcherTestConfig(t, cfgPath, updated)
	watcher.checkForChanges()

	select {
	case <-changed:
		t.Error("should NOT fire callback for non-tunable changes")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConfigWatcher_IgnoresValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.json")

	initial := baseTestConfig()
	writeWatcherTestConfig(t, cfgPath, initial)

	watcher := NewConfigWatcher(cfgPath, initial, watcherLogger())

	changed := make(chan bool, 1)
	watcher.OnChange(func(old, new *Config) {
		changed <- true
	})

	if err := watcher.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	updated := baseTestConfig()
	updated.Sell.MaxHoldDays = 0 // invalid
	writeWatcherTestConfig(t, cfgPath, updated)
	watcher.checkForChanges()

	select {
	case <-changed:
		t.Error("should NOT fire callback for invalid config")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTunablesChanged(t *testing.T) {
	base := baseTestConfig()

	same := *base
	if tunablesChanged(base, &same) {
		t.Error("identical configs should not be flagged as changed")
	}

	modified := *base
	modified.Sell.MaxHoldDays = 3
	if !tunablesChanged(base, &modified) {
		t.Error("should detect Sell change")
	}

	modified2 := *base
	modified2.CircuitBreaker.MaxConsecutiveFailures = 5
	if !tunablesChanged(base, &modified2) {
		t.Error("should detect CircuitBreaker change")
	}
}

func TestConfigWatcher_StopIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.json")
	writeWatcherTestConfig(t, cfgPath, baseTestConfig())

	watcher := NewConfigWatcher(cfgPath, baseTestConfig(), watcherLogger())
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	watcher.Stop()
	watcher.Stop()
	watcher.Stop()
}
