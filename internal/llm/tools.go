package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// allowedTools is the closed allow-list of read-only tools the research
// stage may invoke (spec.md §4.4). Any call outside this set returns a
// structured error without invoking the underlying function.
var allowedTools = map[string]bool{
	"get_stock_price":        true,
	"get_fundamentals":       true,
	"get_technical_indicators": true,
	"get_stock_history":      true,
	"get_news":               true,
	"get_earnings":           true,
	"get_earnings_calendar":  true,
	"get_analyst_revisions":  true,
	"get_insider_activity":   true,
	"search_stocks":          true,
	"screen_global_markets":  true,
}

// ToolFunc is the concrete implementation behind one allowed tool name.
type ToolFunc func(ctx context.Context, args map[string]any) (json.RawMessage, error)

// ToolExecutor dispatches tool calls against a closed allow-list, giving
// each call its own deadline (default 30s) and converting panics/errors
// into structured ToolResults rather than aborting the pipeline
// (spec.md §4.4, §7).
type ToolExecutor struct {
	funcs         map[string]ToolFunc
	PerCallTimeout time.Duration
}

// NewToolExecutor builds an executor over the given implementations.
// Any key not in the allow-list is silently ignored — it can never be
// reached via Execute regardless of what the caller registers.
func NewToolExecutor(funcs map[string]ToolFunc) *ToolExecutor {
	registered := make(map[string]ToolFunc, len(funcs))
	for name, fn := range funcs {
		if allowedTools[name] {
			registered[name] = fn
		}
	}
	return &ToolExecutor{funcs: registered, PerCallTimeout: 30 * time.Second}
}

// Execute runs one tool call. A call to a name outside the allow-list,
// an unregistered allowed name, a timeout, an implementation error, or a
// panic inside the implementation all surface as a ToolResult with a
// non-empty Err — never as a Go error that would abort the calling stage.
func (e *ToolExecutor) Execute(ctx context.Context, call ToolCall) (res ToolResult) {
	if !allowedTools[call.Name] {
		return ToolResult{Name: call.Name, Err: fmt.Sprintf("tool %q is not in the allow-list", call.Name)}
	}
	fn, ok := e.funcs[call.Name]
	if !ok {
		return ToolResult{Name: call.Name, Err: fmt.Sprintf("tool %q has no registered implementation", call.Name)}
	}

	deadline := e.PerCallTimeout
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			res = ToolResult{Name: call.Name, Err: fmt.Sprintf("tool %q panicked: %v", call.Name, r)}
		}
	}()

	result, err := fn(cctx, call.Args)
	if err != nil {
		return ToolResult{Name: call.Name, Err: err.Error()}
	}
	return ToolResult{Name: call.Name, Content: result}
}
