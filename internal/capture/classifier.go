// Package capture decides which conversation utterances are worth
// remembering. Pure pattern matching, no side effects.
package capture

import (
	"regexp"
	"strings"

	"github.com/krupesh-app/clawmemory-openclaw/pkg/types"
)

const (
	// minLength gates out utterances with too little signal.
	minLength = 10
	// maxContent bounds what an auto-captured memory may hold.
	maxContent = 500
)

type rule struct {
	pattern  *regexp.Regexp
	category types.MemoryType
}

// Rules are tried in order; the first match wins. Naming beats
// preference, preference beats decision, and so on down the list.
var rules = []rule{
	{regexp.MustCompile(`(?i)\b(my name is|i'?m called|call me)\b`), types.MemoryFact},
	{regexp.MustCompile(`(?i)\b(i prefer|i like|i want|i need)\b`), types.MemoryPreference},
	{regexp.MustCompile(`(?i)(\bwe decided\b|\bdecision:|\blet'?s go with\b|\bwe'?ll use\b)`), types.MemoryDecision},
	{regexp.MustCompile(`(?i)(\bremember that\b|\bdon'?t forget\b|\bimportant:)`), types.MemoryFact},
	{regexp.MustCompile(`(?i)(\btodo:|\btask:|\baction item:)`), types.MemoryTask},
	{regexp.MustCompile(`(?i)\b(deployed|launched|shipped|released|published)\b`), types.MemoryEvent},
}

// Extract scans a conversation and returns capture candidates in message
// order. Only user messages are considered; assistant and system turns
// are never captured.
func Extract(messages []types.Message) []types.CaptureCandidate {
	var out []types.CaptureCandidate
	for _, msg := range messages {
		if msg.Role != "user" {
			continue
		}
		text := strings.TrimSpace(msg.Content.Text())
		if len([]rune(text)) < minLength {
			continue
		}
		category, ok := Classify(text)
		if !ok {
			continue
		}
		out = append(out, types.CaptureCandidate{
			Content: truncate(text, maxContent),
			Type:    category,
		})
	}
	return out
}

// Classify returns the category of the first matching rule, or false
// when the text matches nothing.
func Classify(text string) (types.MemoryType, bool) {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return r.category, true
		}
	}
	return "", false
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
