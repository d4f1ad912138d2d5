// Package plugin wires the ClawMemory client and capture classifier into
// the OpenClaw host: lifecycle hooks, callable tools and CLI subcommands.
package plugin

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/krupesh-app/clawmemory-openclaw/internal/capture"
	"github.com/krupesh-app/clawmemory-openclaw/internal/config"
	"github.com/krupesh-app/clawmemory-openclaw/pkg/host"
	"github.com/krupesh-app/clawmemory-openclaw/pkg/types"
)

// autoCaptureImportance is assigned to every auto-captured memory.
const autoCaptureImportance = 0.7

// minPromptLength gates auto-recall; shorter prompts carry no signal.
const minPromptLength = 5

// MemoryAPI is the slice of the API client the plugin depends on.
type MemoryAPI interface {
	Recall(ctx context.Context, query string, limit int, threshold float64) ([]types.Memory, error)
	Store(ctx context.Context, content string, typ types.MemoryType, importance float64, tags []string) (string, error)
}

// Plugin is the registered adapter instance. Stateless beyond its
// immutable configuration and bound client.
type Plugin struct {
	cfg    config.Config
	client MemoryAPI
	logger *log.Logger
}

// Register validates configuration and attaches hooks, tools and CLI
// commands to the host. An invalid API key deactivates the plugin
// entirely: the error is logged, nothing is registered, and the host
// carries on without memory support.
func Register(h host.Host, cfg config.Config, client MemoryAPI, logger *log.Logger) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		logger.Error("clawmemory plugin disabled", "error", err)
		return nil, err
	}

	p := &Plugin{cfg: cfg, client: client, logger: logger}

	if cfg.AutoRecall {
		h.RegisterHook(host.BeforeAgentStart, p.beforeAgentStart)
	}
	if cfg.AutoCapture {
		h.RegisterHook(host.AgentEnd, p.agentEnd)
	}
	h.RegisterTool(storeToolDefinition(), p.memoryStoreTool)
	h.RegisterTool(recallToolDefinition(), p.memoryRecallTool)
	h.RegisterCommand("recall", p.recallCommand)
	h.RegisterCommand("store", p.storeCommand)

	logger.Info("clawmemory plugin registered",
		"auto_recall", cfg.AutoRecall,
		"auto_capture", cfg.AutoCapture,
		"agent_id", cfg.AgentID,
	)
	return p, nil
}

// beforeAgentStart recalls memories relevant to the incoming prompt and
// hands them back as a context block. Failures are logged and swallowed;
// the run proceeds without injected memories.
func (p *Plugin) beforeAgentStart(ctx context.Context, in host.HookInput) (host.HookOutput, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if len([]rune(prompt)) < minPromptLength {
		return host.HookOutput{}, nil
	}

	memories, err := p.client.Recall(ctx, prompt, p.cfg.RecallLimit, p.cfg.RecallThreshold)
	if err != nil {
		p.logger.Warn("auto-recall failed; continuing without memories", "error", err)
		return host.HookOutput{}, nil
	}
	if len(memories) == 0 {
		return host.HookOutput{}, nil
	}

	return host.HookOutput{PrependContext: formatContextBlock(memories)}, nil
}

// agentEnd captures memory-worthy user utterances from a finished run.
// Stores happen one at a time; each failure is logged and skipped.
func (p *Plugin) agentEnd(ctx context.Context, in host.HookInput) (host.HookOutput, error) {
	if !in.Success || len(in.Messages) == 0 {
		return host.HookOutput{}, nil
	}

	candidates := capture.Extract(in.Messages)
	for _, cand := range candidates {
		id, err := p.client.Store(ctx, cand.Content, cand.Type, autoCaptureImportance, nil)
		if err != nil {
			p.logger.Warn("auto-capture store failed", "type", cand.Type, "error", err)
			continue
		}
		p.logger.Debug("auto-captured memory", "type", cand.Type, "id", id)
	}
	return host.HookOutput{}, nil
}

// formatContextBlock renders recalled memories as a type-annotated
// bulleted list inside a delimiting tag, so downstream consumers can
// tell injected content apart from the user's own prompt.
func formatContextBlock(memories []types.Memory) string {
	var b strings.Builder
	b.WriteString("<relevant-memories>\n")
	b.WriteString("Previously stored memories that may be relevant:\n")
	for _, m := range memories {
		fmt.Fprintf(&b, "- [%s] %s\n", m.Type, m.Content)
	}
	b.WriteString("</relevant-memories>")
	return b.String()
}

// recallCommand backs `clawmemory recall <query> [--limit N]`. Errors
// propagate to the process.
func (p *Plugin) recallCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recall", flag.ContinueOnError)
	limit := fs.Int("limit", p.cfg.RecallLimit, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return fmt.Errorf("usage: recall <query> [--limit N]")
	}

	memories, err := p.client.Recall(ctx, query, *limit, p.cfg.RecallThreshold)
	if err != nil {
		return err
	}
	if len(memories) == 0 {
		fmt.Printf("No memories found for %q.\n", query)
		return nil
	}
	for _, m := range memories {
		fmt.Println(formatMemoryLine(m))
	}
	return nil
}

// storeCommand backs `clawmemory store <content> [--type T]`.
func (p *Plugin) storeCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("store", flag.ContinueOnError)
	typ := fs.String("type", string(types.MemoryFact), "Memory type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	content := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if content == "" {
		return fmt.Errorf("usage: store <content> [--type T]")
	}
	memType := types.MemoryType(*typ)
	if !memType.Valid() {
		return fmt.Errorf("invalid memory type %q", *typ)
	}

	id, err := p.client.Store(ctx, content, memType, autoCaptureImportance, nil)
	if err != nil {
		return err
	}
	if id == "" {
		fmt.Println("Memory stored.")
		return nil
	}
	fmt.Printf("Stored memory %s\n", id)
	return nil
}

func formatMemoryLine(m types.Memory) string {
	line := fmt.Sprintf("- [%s] %s", m.Type, m.Content)
	if m.Relevance != nil {
		line += fmt.Sprintf(" (%.0f%% match)", *m.Relevance*100)
	}
	return line
}
