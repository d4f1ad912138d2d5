package types

import (
	"encoding/json"
	"testing"
)

func TestContent_UnmarshalString(t *testing.T) {
	t.Parallel()
	var m Message
	if err := json.Unmarshal([]byte(`{"role":"user","content":"hello there"}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := m.Content.Text(); got != "hello there" {
		t.Fatalf("Text() = %q, want %q", got, "hello there")
	}
}

func TestContent_UnmarshalParts(t *testing.T) {
	t.Parallel()
	raw := `{"role":"user","content":[
		{"type":"text","text":"my name"},
		{"type":"image","text":"ignored.png"},
		{"type":"text","text":"is Alex"},
		{"type":"tool_call"}
	]}`
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := m.Content.Text(); got != "my name is Alex" {
		t.Fatalf("Text() = %q, want %q", got, "my name is Alex")
	}
}

func TestContent_MarshalRoundTrip(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(TextContent("plain"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"plain"` {
		t.Fatalf("expected bare string encoding, got %s", b)
	}
}

func TestMemoryType_Valid(t *testing.T) {
	t.Parallel()
	for _, mt := range []MemoryType{MemoryFact, MemoryPreference, MemoryDecision, MemoryEvent, MemoryTask, MemoryContext} {
		if !mt.Valid() {
			t.Fatalf("expected %q to be valid", mt)
		}
	}
	if MemoryType("opinion").Valid() {
		t.Fatal("expected unknown type to be invalid")
	}
}
