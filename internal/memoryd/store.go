// Package memoryd is a local stand-in for the hosted ClawMemory service,
// used for development and the validation suite. It speaks the same HTTP
// surface over a SQLite database. Its lexical ranking is a naive
// approximation of the hosted service's semantic ranking and lives only
// here; the plugin never ranks anything itself.
package memoryd

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/krupesh-app/clawmemory-openclaw/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound marks a lookup for an id that does not exist.
var ErrNotFound = errors.New("memory not found")

// Store is the SQLite persistence layer behind the dev server.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// OpenStore opens and initializes the SQLite store.
func OpenStore(ctx context.Context, dbPath string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt+";"); err != nil {
			return fmt.Errorf("run schema stmt: %w", err)
		}
	}
	return nil
}

// Insert persists one memory.
func (s *Store) Insert(ctx context.Context, mem types.Memory) error {
	tags := mem.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	const q = `INSERT INTO memories (id, agent_id, content, type, tags_json, importance, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		mem.ID,
		mem.AgentID,
		mem.Content,
		string(mem.Type),
		string(tagsJSON),
		mem.Importance,
		mem.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// Search returns memories for one agent ranked by a naive blend of term
// overlap and recency, filtered by threshold, newest-first among ties.
func (s *Store) Search(ctx context.Context, agentID, query string, limit int, threshold float64) ([]types.Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := s.listRows(ctx, agentID, 500)
	if err != nil {
		return nil, err
	}

	terms := tokenizeTerms(query)
	now := time.Now().UTC()

	scored := make([]types.Memory, 0, len(rows))
	for _, mem := range rows {
		rel := scoreMemory(mem, terms, now)
		if rel < threshold {
			continue
		}
		r := rel
		mem.Relevance = &r
		scored = append(scored, mem)
	}

	// rows come back newest-first; a stable sort keeps that order for ties.
	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].Relevance > *scored[j].Relevance
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// List returns an agent's memories, newest first, without relevance.
func (s *Store) List(ctx context.Context, agentID string, limit int) ([]types.Memory, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.listRows(ctx, agentID, limit)
}

// Get fetches one memory by id.
func (s *Store) Get(ctx context.Context, id string) (types.Memory, error) {
	const q = `SELECT id, agent_id, content, type, tags_json, importance, created_at
FROM memories WHERE id = ? LIMIT 1`
	mem, err := scanMemory(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Memory{}, ErrNotFound
		}
		return types.Memory{}, fmt.Errorf("get memory: %w", err)
	}
	return mem, nil
}

// Update applies a partial update to one memory.
func (s *Store) Update(ctx context.Context, id string, patch types.UpdateRequest) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*patch.Type))
	}
	if patch.Importance != nil {
		sets = append(sets, "importance = ?")
		args = append(args, *patch.Importance)
	}
	if patch.Tags != nil {
		tagsJSON, err := json.Marshal(patch.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		sets = append(sets, "tags_json = ?")
		args = append(args, string(tagsJSON))
	}
	if len(sets) == 0 {
		_, err := s.Get(ctx, id)
		return err
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx, "UPDATE memories SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one memory by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneOldest keeps the newest keep memories per agent and removes the
// rest. Returns the number of rows removed.
func (s *Store) PruneOldest(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	const q = `DELETE FROM memories WHERE id IN (
	SELECT id FROM (
		SELECT id, ROW_NUMBER() OVER (PARTITION BY agent_id ORDER BY created_at DESC) AS rn
		FROM memories
	) WHERE rn > ?
)`
	res, err := s.db.ExecContext(ctx, q, keep)
	if err != nil {
		return 0, fmt.Errorf("prune memories: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) listRows(ctx context.Context, agentID string, limit int) ([]types.Memory, error) {
	const q = `SELECT id, agent_id, content, type, tags_json, importance, created_at
FROM memories WHERE agent_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	items := make([]types.Memory, 0, limit)
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, mem)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(sc scanner) (types.Memory, error) {
	var mem types.Memory
	var typ, tagsJSON, createdAt string
	if err := sc.Scan(&mem.ID, &mem.AgentID, &mem.Content, &typ, &tagsJSON, &mem.Importance, &createdAt); err != nil {
		return mem, err
	}
	mem.Type = types.MemoryType(typ)
	if err := json.Unmarshal([]byte(tagsJSON), &mem.Tags); err != nil {
		mem.Tags = nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		mem.CreatedAt = ts
	}
	return mem, nil
}

// scoreMemory blends query term overlap with recency. Both inputs are in
// [0,1], so the blend is too.
func scoreMemory(mem types.Memory, terms []string, now time.Time) float64 {
	if len(terms) == 0 {
		return 0.25
	}
	contentTerms := map[string]struct{}{}
	for _, t := range tokenizeTerms(mem.Content) {
		contentTerms[t] = struct{}{}
	}
	matched := 0
	for _, t := range terms {
		if _, ok := contentTerms[t]; ok {
			matched++
		}
	}
	overlap := float64(matched) / float64(len(terms))
	if overlap == 0 {
		return 0
	}
	return 0.7*overlap + 0.3*recencyScore(now, mem.CreatedAt)
}

func recencyScore(now, t time.Time) float64 {
	days := now.Sub(t).Hours() / 24.0
	if days <= 0 {
		return 1.0
	}
	return math.Exp(-days / 14.0)
}

func tokenizeTerms(s string) []string {
	seen := map[string]struct{}{}
	terms := make([]string, 0, 8)
	var sb strings.Builder

	flush := func() {
		if sb.Len() == 0 {
			return
		}
		term := sb.String()
		sb.Reset()
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return terms
}
