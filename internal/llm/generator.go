// Package llm defines the capability contracts the Pipeline Coordinator
// depends on for LLM access (spec.md §9 "per-stage polymorphism over LLM
// providers"), plus the schema-validated JSON extraction helper and the
// closed-allow-list tool executor used by the research stage.
//
// Concrete LLM provider transports are out-of-scope external
// collaborators (spec.md §1, §6); only the capability interfaces live
// here. No pack example talks to an LLM, so this package is
// necessarily built on the standard library — see DESIGN.md.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Schema describes a stage's expected JSON output shape as data, not
// language types (spec.md §9), so both the conservative and aggressive
// strategies can reuse the same declared schema. Required names the
// top-level fields ParseWithSchema treats as mandatory.
type Schema struct {
	Name     string
	Required []string
}

// Request is one generation call: a model tier, a system prompt, a user
// prompt, and the schema the response must satisfy.
type Request struct {
	Model  string
	System string
	User   string
	Schema Schema
}

// Generator is the minimal "generate structured output" capability
// every provider back-end must support.
type Generator interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// ToolSpec describes one callable tool by name; the executor enforces
// the allow-list, not the provider.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON-schema-shaped parameter description
}

// ToolCall is one invocation the provider asked for mid-generation.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult is what the executor hands back for one ToolCall.
type ToolResult struct {
	Name    string
	Content json.RawMessage
	Err     string // non-empty on a structured tool error; never causes the round to abort
}

// GeneratorWithTools is the richer capability some providers support:
// a bounded number of tool-call rounds before the final structured
// output. RoundsUsed lets callers observe how close a run came to
// max_tool_rounds.
type GeneratorWithTools interface {
	GenerateWithTools(ctx context.Context, req Request, tools []ToolSpec, exec *ToolExecutor, maxRounds int) (value json.RawMessage, roundsUsed int, err error)
}

// Registry maps provider names (e.g. "anthropic", "minimax") to factory
// functions, mirroring internal/broker.Registry — the concrete HTTP
// clients behind Generator/GeneratorWithTools are out-of-scope external
// collaborators that register themselves here at init time. A factory
// may return a value implementing both Generator and GeneratorWithTools;
// callers type-assert for the richer capability where needed.
var Registry = map[string]func(configJSON []byte) (Generator, error){}

// New looks up a registered Generator factory by provider name.
func New(name string, configJSON []byte) (Generator, error) {
	factory, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
	return factory(configJSON)
}
