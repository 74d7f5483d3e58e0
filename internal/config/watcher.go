// Package config - watcher.go provides config file hot-reload support.
//
// The watcher polls the config file for changes (stat-based, every 5 seconds)
// and notifies registered callbacks when sell-rule, budget,
// max_picks_per_run or circuit-breaker parameters change.
//
// Broker credentials, database URL, and trading mode are NOT reloadable;
// changing them requires a restart.
package config

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// ConfigWatcher monitors the config file for changes and invokes callbacks
// when sell-rule, budget, max-picks or circuit-breaker fields change. It
// uses stat-based polling (no
// external dependencies like fsnotify required).
type ConfigWatcher struct {
	path     string
	logger   *log.Logger
	mu       sync.RWMutex
	current  *Config
	lastMod  time.Time
	onChange []func(old, new *Config)
	done     chan struct{}
	stopped  bool
}

// NewConfigWatcher creates a watcher for the given config file path.
// initial is the currently loaded config. The watcher does not start
// until Start() is called.
func NewConfigWatcher(path string, initial *Config, logger *log.Logger) *ConfigWatcher {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &ConfigWatcher{
		path:    path,
		logger:  logger,
		current: initial,
		done:    make(chan struct{}),
	}
}

// OnChange registers a callback invoked when the config file changes and
// the new config passes validation. Multiple callbacks may be registered.
//
// Only sell-rule, budget, max_picks_per_run and circuit-breaker changes
// trigger callbacks. Changes to broker
// credentials, database URL, or trading mode are ignored (restart required).
func (w *ConfigWatcher) OnChange(fn func(old, new *Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Start begins polling the config file for changes. It returns immediately;
// the watcher runs in a background goroutine. Returns an error if the
// initial file stat fails.
func (w *ConfigWatcher) Start() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	w.lastMod = info.ModTime()
	w.logger.Printf("[config-watcher] watching %s for changes (poll interval: 5s)", w.path)

	go w.pollLoop()
	return nil
}

// Stop stops the config watcher. Safe to call multiple times.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.stopped = true
		close(w.done)
		w.logger.Println("[config-watcher] stopped")
	}
}

// Current returns the most recently loaded valid config.
func (w *ConfigWatcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *ConfigWatcher) pollLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.checkForChanges()
		}
	}
}

func (w *ConfigWatcher) checkForChanges() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Printf("[config-watcher] stat error: %v", err)
		return
	}

	if !info.ModTime().After(w.lastMod) {
		return // file hasn't changed
	}
	w.lastMod = info.ModTime()

	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Printf("[config-watcher] read error: %v", err)
		return
	}

	var newCfg Config
	if err := json.Unmarshal(data, &newCfg); err != nil {
		w.logger.Printf("[config-watcher] parse error (keeping old config): %v", err)
		return
	}
	applyDefaults(&newCfg)

	if err := newCfg.Validate(); err != nil {
		w.logger.Printf("[config-watcher] validation error (keeping old config): %v", err)
		return
	}

	w.mu.RLock()
	oldCfg := w.current
	w.mu.RUnlock()

	if !tunablesChanged(oldCfg, &newCfg) {
		w.logger.Printf("[config-watcher] file changed but tunables unchanged, skipping")
		return
	}

	w.logTunableChanges(oldCfg, &newCfg)

	w.mu.Lock()
	w.current = &newCfg
	callbacks := make([]func(old, new *Config), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(oldCfg, &newCfg)
	}
}

// tunablesChanged returns true if any hot-reloadable field changed.
func tunablesChanged(old, new *Config) bool {
	if old.Sell != new.Sell {
		return true
	}
	if old.DailyBudgetEUR != new.DailyBudgetEUR {
		return true
	}
	if old.PracticeDailyBudgetEUR != new.PracticeDailyBudgetEUR {
		return true
	}
	if old.MaxPicksPerRun != new.MaxPicksPerRun {
		return true
	}
	if old.CircuitBreaker != new.CircuitBreaker {
		return true
	}
	return false
}

func (w *ConfigWatcher) logTunableChanges(old, new *Config) {
	if old.Sell != new.Sell {
		w.logger.Printf("[config-watcher] sell rules: stop_loss=%.2f%% take_profit=%.2f%% max_hold_days=%d",
			new.Sell.StopLossPct, new.Sell.TakeProfitPct, new.Sell.MaxHoldDays)
	}
	if old.DailyBudgetEUR != new.DailyBudgetEUR {
		w.logger.Printf("[config-watcher] daily_budget_eur: %.2f -> %.2f", old.DailyBudgetEUR, new.DailyBudgetEUR)
	}
	if old.PracticeDailyBudgetEUR != new.PracticeDailyBudgetEUR {
		w.logger.Printf("[config-watcher] practice_daily_budget_eur: %.2f -> %.2f", old.PracticeDailyBudgetEUR, new.PracticeDailyBudgetEUR)
	}
	if old.MaxPicksPerRun != new.MaxPicksPerRun {
		w.logger.Printf("[config-watcher] max_picks_per_run: %d -> %d", old.MaxPicksPerRun, new.MaxPicksPerRun)
	}
	if old.CircuitBreaker != new.CircuitBreaker {
		w.logger.Printf("[config-watcher] circuit_breaker: consecutive=%d hourly=%d cooldown=%dmin",
			new.CircuitBreaker.MaxConsecutiveFailures, new.CircuitBreaker.MaxFailuresPerHour, new.CircuitBreaker.CooldownMinutes)
	}
}
