package plugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/krupesh-app/clawmemory-openclaw/pkg/host"
	"github.com/krupesh-app/clawmemory-openclaw/pkg/types"
)

func storeToolDefinition() host.ToolDefinition {
	return host.ToolDefinition{
		Name:        "memory_store",
		Description: "Store a piece of information in long-term memory.",
		InputSchema: jsonSchema(map[string]any{
			"content": propString("The information to remember."),
			"type": propStringEnum("Kind of memory.", []string{
				"fact", "preference", "decision", "event", "task", "context",
			}),
			"importance": propNumber("Importance between 0 and 1 (default 0.7)."),
		}, []string{"content"}),
	}
}

func recallToolDefinition() host.ToolDefinition {
	return host.ToolDefinition{
		Name:        "memory_recall",
		Description: "Search long-term memory for relevant information.",
		InputSchema: jsonSchema(map[string]any{
			"query": propString("What to look for."),
			"limit": propNumber("Maximum results (default 5)."),
		}, []string{"query"}),
	}
}

// memoryStoreTool handles the memory_store tool. Every failure becomes a
// readable error result; nothing escapes to the host as a fault.
func (p *Plugin) memoryStoreTool(ctx context.Context, args map[string]any) host.ToolResult {
	content, _ := args["content"].(string)
	content = strings.TrimSpace(content)
	if content == "" {
		return errorResult("content is required", nil)
	}

	memType := types.MemoryFact
	if raw, ok := args["type"].(string); ok && strings.TrimSpace(raw) != "" {
		memType = types.MemoryType(strings.TrimSpace(raw))
		if !memType.Valid() {
			return errorResult(fmt.Sprintf("invalid memory type %q", raw), nil)
		}
	}

	importance := autoCaptureImportance
	if raw, ok := args["importance"].(float64); ok {
		importance = raw
	}

	id, err := p.client.Store(ctx, content, memType, importance, nil)
	if err != nil {
		return errorResult("failed to store memory: "+err.Error(), err)
	}
	if id == "" {
		return host.ToolResult{Text: "Memory stored."}
	}
	return host.ToolResult{
		Text:    fmt.Sprintf("Stored memory %s", id),
		Details: map[string]any{"id": id, "type": string(memType)},
	}
}

// memoryRecallTool handles the memory_recall tool.
func (p *Plugin) memoryRecallTool(ctx context.Context, args map[string]any) host.ToolResult {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return errorResult("query is required", nil)
	}

	limit := p.cfg.RecallLimit
	if raw, ok := args["limit"].(float64); ok && int(raw) > 0 {
		limit = int(raw)
	}

	memories, err := p.client.Recall(ctx, query, limit, p.cfg.RecallThreshold)
	if err != nil {
		return errorResult("failed to recall memories: "+err.Error(), err)
	}
	if len(memories) == 0 {
		return host.ToolResult{Text: fmt.Sprintf("No memories found for %q.", query)}
	}

	lines := make([]string, 0, len(memories)+1)
	lines = append(lines, fmt.Sprintf("Found %d memories:", len(memories)))
	for _, m := range memories {
		lines = append(lines, formatMemoryLine(m))
	}
	return host.ToolResult{
		Text:    strings.Join(lines, "\n"),
		Details: map[string]any{"count": len(memories)},
	}
}

func errorResult(text string, err error) host.ToolResult {
	res := host.ToolResult{Text: text, IsError: true}
	if err != nil {
		res.Details = map[string]any{"error": err.Error()}
	}
	return res
}

func jsonSchema(properties map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func propString(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func propStringEnum(description string, values []string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

func propNumber(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}
