// Package host defines the OpenClaw plugin contract the memory plugin
// registers against. The real host ships its own implementation; this
// package only pins down the shapes both sides agree on.
package host

import (
	"context"

	"github.com/krupesh-app/clawmemory-openclaw/pkg/types"
)

// Hook names the lifecycle points a plugin can attach to.
type Hook string

const (
	BeforeAgentStart Hook = "before_agent_start"
	AgentEnd         Hook = "agent_end"
)

// HookInput carries the event payload for a lifecycle hook. Prompt is set
// for before_agent_start; Success and Messages for agent_end.
type HookInput struct {
	Prompt   string
	Success  bool
	Messages []types.Message
}

// HookOutput is what a hook hands back to the host. PrependContext, when
// non-empty, is injected ahead of the agent's working context.
type HookOutput struct {
	PrependContext string
}

// HookFunc handles one lifecycle event. Errors returned here are the
// host's to log; hooks that must never fail a run swallow internally.
type HookFunc func(ctx context.Context, in HookInput) (HookOutput, error)

// ToolDefinition models callable-tool metadata the host advertises to
// its model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolResult is the outcome of one tool invocation.
type ToolResult struct {
	Text    string         `json:"text"`
	IsError bool           `json:"isError"`
	Details map[string]any `json:"details,omitempty"`
}

// ToolHandler executes one tool call with already-decoded arguments.
type ToolHandler func(ctx context.Context, args map[string]any) ToolResult

// CommandFunc runs one CLI subcommand with its remaining arguments.
type CommandFunc func(ctx context.Context, args []string) error

// Host is the registration surface a plugin receives exactly once at
// initialization.
type Host interface {
	RegisterHook(hook Hook, fn HookFunc)
	RegisterTool(def ToolDefinition, fn ToolHandler)
	RegisterCommand(name string, fn CommandFunc)
}
