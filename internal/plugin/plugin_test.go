package plugin

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/krupesh-app/clawmemory-openclaw/internal/config"
	"github.com/krupesh-app/clawmemory-openclaw/pkg/host"
	"github.com/krupesh-app/clawmemory-openclaw/pkg/types"
)

type fakeHost struct {
	hooks    map[host.Hook]host.HookFunc
	tools    map[string]host.ToolHandler
	commands map[string]host.CommandFunc
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		hooks:    map[host.Hook]host.HookFunc{},
		tools:    map[string]host.ToolHandler{},
		commands: map[string]host.CommandFunc{},
	}
}

func (f *fakeHost) RegisterHook(h host.Hook, fn host.HookFunc) { f.hooks[h] = fn }
func (f *fakeHost) RegisterTool(def host.ToolDefinition, fn host.ToolHandler) {
	f.tools[def.Name] = fn
}
func (f *fakeHost) RegisterCommand(name string, fn host.CommandFunc) { f.commands[name] = fn }

func (f *fakeHost) registrations() int {
	return len(f.hooks) + len(f.tools) + len(f.commands)
}

type storeCall struct {
	content    string
	typ        types.MemoryType
	importance float64
}

type fakeClient struct {
	recallResult []types.Memory
	recallErr    error
	recallLimit  int
	storeID      string
	storeErr     error
	stores       []storeCall
}

func (f *fakeClient) Recall(_ context.Context, _ string, limit int, _ float64) ([]types.Memory, error) {
	f.recallLimit = limit
	return f.recallResult, f.recallErr
}

func (f *fakeClient) Store(_ context.Context, content string, typ types.MemoryType, importance float64, _ []string) (string, error) {
	f.stores = append(f.stores, storeCall{content: content, typ: typ, importance: importance})
	return f.storeID, f.storeErr
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.APIKey = "cm_test_key"
	return cfg
}

func silentLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func register(t *testing.T, cfg config.Config, client *fakeClient) (*Plugin, *fakeHost) {
	t.Helper()
	h := newFakeHost()
	p, err := Register(h, cfg, client, silentLogger())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return p, h
}

func TestRegister_InvalidKeyRegistersNothing(t *testing.T) {
	t.Parallel()
	for _, key := range []string{"", "sk_nope"} {
		cfg := config.Default()
		cfg.APIKey = key
		h := newFakeHost()
		_, err := Register(h, cfg, &fakeClient{}, silentLogger())
		if err == nil {
			t.Fatalf("key %q: expected configuration error", key)
		}
		if h.registrations() != 0 {
			t.Fatalf("key %q: expected zero registrations, got %d", key, h.registrations())
		}
	}
}

func TestRegister_Surfaces(t *testing.T) {
	t.Parallel()
	_, h := register(t, validConfig(), &fakeClient{})
	if len(h.hooks) != 2 || len(h.tools) != 2 || len(h.commands) != 2 {
		t.Fatalf("expected 2 hooks, 2 tools, 2 commands; got %d/%d/%d",
			len(h.hooks), len(h.tools), len(h.commands))
	}
	for _, name := range []string{"memory_store", "memory_recall"} {
		if _, ok := h.tools[name]; !ok {
			t.Fatalf("missing tool %q", name)
		}
	}
}

func TestRegister_HooksFollowToggles(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.AutoRecall = false
	_, h := register(t, cfg, &fakeClient{})
	if _, ok := h.hooks[host.BeforeAgentStart]; ok {
		t.Fatal("before_agent_start registered despite auto_recall=false")
	}
	if _, ok := h.hooks[host.AgentEnd]; !ok {
		t.Fatal("agent_end missing despite auto_capture=true")
	}
}

func TestBeforeAgentStart_SkipsShortPrompt(t *testing.T) {
	t.Parallel()
	client := &fakeClient{recallResult: []types.Memory{{ID: "m1"}}}
	p, _ := register(t, validConfig(), client)

	out, err := p.beforeAgentStart(context.Background(), host.HookInput{Prompt: "hi"})
	if err != nil {
		t.Fatalf("hook error = %v", err)
	}
	if out.PrependContext != "" {
		t.Fatal("expected no context for short prompt")
	}
	if client.recallLimit != 0 {
		t.Fatal("expected no recall call for short prompt")
	}
}

func TestBeforeAgentStart_InjectsTaggedBlock(t *testing.T) {
	t.Parallel()
	client := &fakeClient{recallResult: []types.Memory{
		{ID: "m1", Content: "user prefers dark mode", Type: types.MemoryPreference},
		{ID: "m2", Content: "name is Alex", Type: types.MemoryFact},
	}}
	p, _ := register(t, validConfig(), client)

	out, err := p.beforeAgentStart(context.Background(), host.HookInput{Prompt: "set up my editor"})
	if err != nil {
		t.Fatalf("hook error = %v", err)
	}
	if !strings.HasPrefix(out.PrependContext, "<relevant-memories>") ||
		!strings.HasSuffix(out.PrependContext, "</relevant-memories>") {
		t.Fatalf("context not wrapped in delimiting tag: %q", out.PrependContext)
	}
	if !strings.Contains(out.PrependContext, "- [preference] user prefers dark mode") {
		t.Fatalf("missing annotated bullet: %q", out.PrependContext)
	}
	if client.recallLimit != 5 {
		t.Fatalf("recall limit = %d, want configured 5", client.recallLimit)
	}
}

func TestBeforeAgentStart_SwallowsRecallError(t *testing.T) {
	t.Parallel()
	client := &fakeClient{recallErr: errors.New("service down")}
	p, _ := register(t, validConfig(), client)

	out, err := p.beforeAgentStart(context.Background(), host.HookInput{Prompt: "long enough prompt"})
	if err != nil {
		t.Fatalf("expected swallowed error, got %v", err)
	}
	if out.PrependContext != "" {
		t.Fatal("expected empty output on recall failure")
	}
}

func TestAgentEnd_SkipsFailedRun(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	p, _ := register(t, validConfig(), client)

	_, err := p.agentEnd(context.Background(), host.HookInput{
		Success:  false,
		Messages: []types.Message{{Role: "user", Content: types.TextContent("remember that this failed")}},
	})
	if err != nil {
		t.Fatalf("hook error = %v", err)
	}
	if len(client.stores) != 0 {
		t.Fatalf("expected no stores for failed run, got %d", len(client.stores))
	}
}

func TestAgentEnd_StoresCandidatesSequentially(t *testing.T) {
	t.Parallel()
	client := &fakeClient{storeID: "mem-1"}
	p, _ := register(t, validConfig(), client)

	_, err := p.agentEnd(context.Background(), host.HookInput{
		Success: true,
		Messages: []types.Message{
			{Role: "user", Content: types.TextContent("todo: ship the release")},
			{Role: "assistant", Content: types.TextContent("remember that assistants are skipped")},
			{Role: "user", Content: types.TextContent("I prefer squash merges")},
		},
	})
	if err != nil {
		t.Fatalf("hook error = %v", err)
	}
	if len(client.stores) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(client.stores))
	}
	if client.stores[0].typ != types.MemoryTask || client.stores[1].typ != types.MemoryPreference {
		t.Fatalf("unexpected store order: %+v", client.stores)
	}
	for _, s := range client.stores {
		if s.importance != 0.7 {
			t.Fatalf("importance = %v, want 0.7", s.importance)
		}
	}
}

func TestAgentEnd_ContinuesPastStoreFailure(t *testing.T) {
	t.Parallel()
	client := &fakeClient{storeErr: errors.New("quota exceeded")}
	p, _ := register(t, validConfig(), client)

	_, err := p.agentEnd(context.Background(), host.HookInput{
		Success: true,
		Messages: []types.Message{
			{Role: "user", Content: types.TextContent("todo: rotate the keys")},
			{Role: "user", Content: types.TextContent("I prefer short meetings")},
		},
	})
	if err != nil {
		t.Fatalf("expected failures swallowed, got %v", err)
	}
	if len(client.stores) != 2 {
		t.Fatalf("expected both stores attempted, got %d", len(client.stores))
	}
}

func TestMemoryStoreTool(t *testing.T) {
	t.Parallel()
	client := &fakeClient{storeID: "mem-42"}
	p, h := register(t, validConfig(), client)

	res := h.tools["memory_store"](context.Background(), map[string]any{})
	if !res.IsError || !strings.Contains(res.Text, "content is required") {
		t.Fatalf("expected required-content error, got %+v", res)
	}

	res = p.memoryStoreTool(context.Background(), map[string]any{"content": "likes go"})
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}
	if !strings.Contains(res.Text, "mem-42") {
		t.Fatalf("expected id in confirmation, got %q", res.Text)
	}
	if client.stores[0].typ != types.MemoryFact || client.stores[0].importance != 0.7 {
		t.Fatalf("defaults not applied: %+v", client.stores[0])
	}
}

func TestMemoryStoreTool_ErrorBecomesResult(t *testing.T) {
	t.Parallel()
	client := &fakeClient{storeErr: errors.New("boom")}
	p, _ := register(t, validConfig(), client)

	res := p.memoryStoreTool(context.Background(), map[string]any{"content": "anything at all"})
	if !res.IsError || !strings.Contains(res.Text, "boom") {
		t.Fatalf("expected error surfaced as text, got %+v", res)
	}
}

func TestMemoryRecallTool(t *testing.T) {
	t.Parallel()
	rel := 0.87
	client := &fakeClient{recallResult: []types.Memory{
		{ID: "m1", Content: "deploys happen on fridays", Type: types.MemoryFact, Relevance: &rel},
	}}
	p, _ := register(t, validConfig(), client)

	res := p.memoryRecallTool(context.Background(), map[string]any{"query": "deploys"})
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}
	if !strings.Contains(res.Text, "(87% match)") {
		t.Fatalf("expected relevance percentage, got %q", res.Text)
	}
	if client.recallLimit != 5 {
		t.Fatalf("limit = %d, want default 5", client.recallLimit)
	}

	client.recallResult = nil
	res = p.memoryRecallTool(context.Background(), map[string]any{"query": "nothing here"})
	if res.IsError || !strings.Contains(res.Text, "No memories found") {
		t.Fatalf("expected no-results message, got %+v", res)
	}
}

func TestCommands_Registered(t *testing.T) {
	t.Parallel()
	client := &fakeClient{}
	_, h := register(t, validConfig(), client)

	if err := h.commands["recall"](context.Background(), []string{}); err == nil {
		t.Fatal("expected usage error for recall without query")
	}
	if err := h.commands["store"](context.Background(), []string{"--type", "opinion", "text"}); err == nil {
		t.Fatal("expected invalid type error")
	}
	if err := h.commands["store"](context.Background(), []string{"remember", "the", "milk"}); err != nil {
		t.Fatalf("store command error = %v", err)
	}
	if len(client.stores) != 1 || client.stores[0].content != "remember the milk" {
		t.Fatalf("unexpected store calls: %+v", client.stores)
	}
}
