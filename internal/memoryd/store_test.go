package memoryd

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/krupesh-app/clawmemory-openclaw/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "memories.db")
	st, err := OpenStore(context.Background(), dbPath, log.NewWithOptions(io.Discard, log.Options{}))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func insertMemory(t *testing.T, st *Store, agentID, content string, typ types.MemoryType, createdAt time.Time) types.Memory {
	t.Helper()
	mem := types.Memory{
		ID:         uuid.NewString(),
		Content:    content,
		Type:       typ,
		Importance: 0.5,
		CreatedAt:  createdAt,
		AgentID:    agentID,
	}
	if err := st.Insert(context.Background(), mem); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	return mem
}

func TestSearch_RanksOverlapAboveMiss(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	now := time.Now().UTC()
	hit := insertMemory(t, st, "", "the deploy pipeline uses terraform", types.MemoryFact, now.Add(-time.Hour))
	insertMemory(t, st, "", "user prefers oat milk", types.MemoryPreference, now)

	got, err := st.Search(context.Background(), "", "terraform deploy", 10, 0.3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != hit.ID {
		t.Fatalf("expected only the overlapping memory, got %+v", got)
	}
	if got[0].Relevance == nil || *got[0].Relevance <= 0.3 {
		t.Fatalf("expected relevance above threshold, got %v", got[0].Relevance)
	}
}

func TestSearch_IsolatesAgents(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	now := time.Now().UTC()
	insertMemory(t, st, "agent-a", "shared terraform knowledge", types.MemoryFact, now)
	insertMemory(t, st, "agent-b", "terraform secrets of agent b", types.MemoryFact, now)

	got, err := st.Search(context.Background(), "agent-a", "terraform", 10, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].AgentID != "agent-a" {
		t.Fatalf("expected only agent-a memories, got %+v", got)
	}
}

func TestGetUpdateDelete(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	mem := insertMemory(t, st, "", "original content", types.MemoryFact, time.Now().UTC())

	newContent := "revised content"
	newType := types.MemoryDecision
	if err := st.Update(context.Background(), mem.ID, types.UpdateRequest{
		Content: &newContent,
		Type:    &newType,
		Tags:    []string{"edited"},
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := st.Get(context.Background(), mem.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Content != newContent || got.Type != newType || len(got.Tags) != 1 {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := st.Delete(context.Background(), mem.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := st.Get(context.Background(), mem.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := st.Delete(context.Background(), mem.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestPruneOldest_KeepsNewestPerAgent(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		insertMemory(t, st, "agent-a", "entry", types.MemoryFact, now.Add(time.Duration(i)*time.Minute))
	}
	insertMemory(t, st, "agent-b", "entry", types.MemoryFact, now)

	n, err := st.PruneOldest(context.Background(), 3)
	if err != nil {
		t.Fatalf("PruneOldest() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("pruned %d rows, want 2", n)
	}

	remaining, err := st.List(context.Background(), "agent-a", 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 3 {
		t.Fatalf("agent-a has %d memories, want 3", len(remaining))
	}
	other, err := st.List(context.Background(), "agent-b", 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("agent-b should be untouched, has %d", len(other))
	}
}
