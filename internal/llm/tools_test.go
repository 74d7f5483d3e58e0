package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestToolExecutor_AllowedToolRuns(t *testing.T) {
	exec := NewToolExecutor(map[string]ToolFunc{
		"get_stock_price": func(ctx context.Context, args map[string]any) (json.RawMessage, error) {
			return json.RawMessage(`{"price": 123.45}`), nil
		},
	})
	result := exec.Execute(context.Background(), ToolCall{Name: "get_stock_price", Args: map[string]any{"ticker": "AMD"}})
	if result.Err != "" {
		t.Fatalf("unexpected error: %s", result.Err)
	}
	if string(result.Content) != `{"price": 123.45}` {
		t.Errorf("unexpected content: %s", result.Content)
	}
}

func TestToolExecutor_DisallowedToolNeverInvoked(t *testing.T) {
	invoked := false
	exec := NewToolExecutor(map[string]ToolFunc{
		"delete_database": func(ctx context.Context, args map[string]any) (json.RawMessage, error) {
			invoked = true
			return nil, nil
		},
	})
	result := exec.Execute(context.Background(), ToolCall{Name: "delete_database"})
	if invoked {
		t.Fatal("disallowed tool must never be invoked")
	}
	if result.Err == "" {
		t.Error("expected a structured error for a disallowed tool")
	}
}

func TestToolExecutor_UnregisteredAllowedToolReturnsStructuredError(t *testing.T) {
	exec := NewToolExecutor(nil)
	result := exec.Execute(context.Background(), ToolCall{Name: "get_news"})
	if result.Err == "" {
		t.Error("expected structured error for unregistered tool")
	}
}

func TestToolExecutor_ImplementationErrorIsStructured(t *testing.T) {
	exec := NewToolExecutor(map[string]ToolFunc{
		"get_earnings": func(ctx context.Context, args map[string]any) (json.RawMessage, error) {
			return nil, errors.New("provider rate limited")
		},
	})
	result := exec.Execute(context.Background(), ToolCall{Name: "get_earnings"})
	if result.Err != "provider rate limited" {
		t.Errorf("expected structured error message, got %q", result.Err)
	}
}
