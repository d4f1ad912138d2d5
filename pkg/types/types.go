package types

import (
	"encoding/json"
	"strings"
	"time"
)

// MemoryType classifies what kind of information a memory holds.
type MemoryType string

const (
	MemoryFact       MemoryType = "fact"
	MemoryPreference MemoryType = "preference"
	MemoryDecision   MemoryType = "decision"
	MemoryEvent      MemoryType = "event"
	MemoryTask       MemoryType = "task"
	MemoryContext    MemoryType = "context"
)

// Valid reports whether t is one of the known memory types.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryFact, MemoryPreference, MemoryDecision, MemoryEvent, MemoryTask, MemoryContext:
		return true
	}
	return false
}

// Memory is one stored snippet as returned by the ClawMemory service.
// The service owns every field; the plugin never mutates or caches these
// beyond a single request/response.
type Memory struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Type       MemoryType `json:"type"`
	Tags       []string   `json:"tags,omitempty"`
	Importance float64    `json:"importance"`
	Relevance  *float64   `json:"relevance,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	AgentID    string     `json:"agent_id,omitempty"`
}

// CaptureCandidate is one memory-worthy utterance detected in a conversation.
// It lives only between classification and the store call that consumes it.
type CaptureCandidate struct {
	Content string
	Type    MemoryType
}

// Message is one conversation entry handed over by the host after a run.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// ContentPart is one typed segment of a multi-part message.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Content accepts either a bare string or a list of typed parts, which is
// how the host serializes message bodies.
type Content struct {
	parts []ContentPart
}

// PartsContent builds a Content from explicit parts.
func PartsContent(parts ...ContentPart) Content {
	return Content{parts: parts}
}

// TextContent builds a plain-string Content.
func TextContent(s string) Content {
	return Content{parts: []ContentPart{{Type: "text", Text: s}}}
}

func (c *Content) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		c.parts = []ContentPart{{Type: "text", Text: s}}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	c.parts = parts
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if len(c.parts) == 1 && c.parts[0].Type == "text" {
		return json.Marshal(c.parts[0].Text)
	}
	return json.Marshal(c.parts)
}

// Text flattens the content to plain text: text parts joined by single
// spaces, every other part type ignored.
func (c Content) Text() string {
	texts := make([]string, 0, len(c.parts))
	for _, p := range c.parts {
		if p.Type != "text" {
			continue
		}
		if t := strings.TrimSpace(p.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, " ")
}

// RecallRequest is the body of POST /memories/recall.
type RecallRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
	AgentID   string  `json:"agentId,omitempty"`
}

// RecallData is the success payload of a recall call.
type RecallData struct {
	Memories []Memory `json:"memories"`
	Count    int      `json:"count"`
	Query    string   `json:"query"`
}

// StoreRequest is the body of POST /memories.
type StoreRequest struct {
	Content    string     `json:"content"`
	Type       MemoryType `json:"type"`
	Importance float64    `json:"importance"`
	Tags       []string   `json:"tags"`
	AgentID    string     `json:"agentId,omitempty"`
}

// StoreData is the success payload of a store call.
type StoreData struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ListData is the success payload of GET /memories.
type ListData struct {
	Memories []Memory `json:"memories"`
	Count    int      `json:"count"`
}

// UpdateRequest is the body of PATCH /memories/{id}. Nil fields are
// left unchanged by the service.
type UpdateRequest struct {
	Content    *string     `json:"content,omitempty"`
	Type       *MemoryType `json:"type,omitempty"`
	Importance *float64    `json:"importance,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
}

// Envelope is the wire framing shared by every ClawMemory endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
