// Package admin is a terminal dashboard over the ClawMemory API, for
// eyeballing what an agent has accumulated.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/krupesh-app/clawmemory-openclaw/internal/api"
	"github.com/krupesh-app/clawmemory-openclaw/pkg/types"
)

type tickMsg time.Time

type dashboardMsg struct {
	memories []types.Memory
	requests []api.RequestLog
	err      error
	duration time.Duration
}

type dashboardClient interface {
	List(ctx context.Context, limit int) ([]types.Memory, error)
	RecentRequests(limit int) []api.RequestLog
}

type model struct {
	ctx      context.Context
	client   dashboardClient
	memories []types.Memory
	requests []api.RequestLog
	lastErr  error
	lastTick time.Time
	logLines []string
	maxLogs  int
	limit    int
	width    int
	height   int
}

// Run starts the dashboard and blocks until the user quits.
func Run(ctx context.Context, client dashboardClient) error {
	m := model{
		ctx:     ctx,
		client:  client,
		maxLogs: 10,
		limit:   50,
	}
	m = m.appendLog("admin UI started")
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchDashboardCmd(m.ctx, m.client, m.limit), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m = m.appendLog("received quit signal")
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.lastTick = time.Time(msg)
		return m, tea.Batch(fetchDashboardCmd(m.ctx, m.client, m.limit), tickCmd())
	case dashboardMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.memories = msg.memories
			m.requests = msg.requests
			m = m.appendLog(fmt.Sprintf(
				"refresh ok memories=%d requests=%d (%s)",
				len(msg.memories),
				len(msg.requests),
				formatDuration(msg.duration),
			))
		} else {
			m = m.appendLog(fmt.Sprintf("refresh error: %v", msg.err))
		}
	}
	return m, nil
}

func (m model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Render("clawmemory admin")
	meta := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("q to quit • refresh every 2s")

	logBody := "(no log events yet)"
	if len(m.logLines) > 0 {
		logBody = strings.Join(m.logLines, "\n")
	}

	paneWidth := 54
	if m.width > 0 {
		paneWidth = max(38, (m.width-3)/2)
	}
	paneHeight := 9
	if m.height > 0 {
		paneHeight = max(8, (m.height-8)/2)
	}

	topRow := joinColumns(
		renderPane("Stats", m.renderStats(), paneWidth, paneHeight),
		renderPane("General Logs", logBody, paneWidth, paneHeight),
	)
	bottomRow := joinColumns(
		renderPane("API Requests", formatRequestPane(m.requests), paneWidth, paneHeight),
		renderPane("Recent Memories", formatMemoriesPane(m.memories), paneWidth, paneHeight),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		meta,
		"",
		topRow,
		bottomRow,
	)
}

func (m model) renderStats() string {
	counts := map[types.MemoryType]int{}
	for _, mem := range m.memories {
		counts[mem.Type]++
	}
	order := []types.MemoryType{
		types.MemoryFact, types.MemoryPreference, types.MemoryDecision,
		types.MemoryEvent, types.MemoryTask, types.MemoryContext,
	}
	lines := []string{fmt.Sprintf("Fetched memories: %d", len(m.memories))}
	for _, mt := range order {
		if counts[mt] == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-12s %d", mt, counts[mt]))
	}
	lines = append(lines, "", "Last refresh:    "+formatTime(m.lastTick))
	body := strings.Join(lines, "\n")
	if m.lastErr != nil {
		body += "\n\nLast error: " + truncateText(compactWhitespace(m.lastErr.Error()), 120)
	}
	return body
}

func fetchDashboardCmd(ctx context.Context, client dashboardClient, limit int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		memories, err := client.List(ctx, limit)
		if err != nil {
			return dashboardMsg{err: err, duration: time.Since(start)}
		}
		return dashboardMsg{
			memories: memories,
			requests: client.RecentRequests(8),
			duration: time.Since(start),
		}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) appendLog(line string) model {
	if strings.TrimSpace(line) == "" {
		return m
	}
	entry := fmt.Sprintf("[%s] %s", time.Now().UTC().Format("15:04:05"), line)
	m.logLines = append(m.logLines, entry)
	if m.maxLogs <= 0 {
		m.maxLogs = 10
	}
	if len(m.logLines) > m.maxLogs {
		m.logLines = m.logLines[len(m.logLines)-m.maxLogs:]
	}
	return m
}

func formatRequestPane(rows []api.RequestLog) string {
	if len(rows) == 0 {
		return "(no API requests yet)"
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		status := "ok"
		if !row.Success {
			status = "err"
		}
		line := fmt.Sprintf(
			"[%s] %-3s %-28s %4dms",
			formatClock(row.CreatedAt),
			status,
			truncateText(row.Method+" "+row.Path, 28),
			max(0, row.DurationMS),
		)
		if !row.Success && strings.TrimSpace(row.ErrorText) != "" {
			line += " " + truncateText(compactWhitespace(row.ErrorText), 48)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatMemoriesPane(rows []types.Memory) string {
	if len(rows) == 0 {
		return "(no memories yet)"
	}
	shown := rows
	if len(shown) > 8 {
		shown = shown[:8]
	}
	lines := make([]string, 0, len(shown))
	for _, row := range shown {
		lines = append(lines, fmt.Sprintf(
			"[%s] %-10s %s",
			formatClock(row.CreatedAt),
			truncateText(string(row.Type), 10),
			truncateText(compactWhitespace(row.Content), 58),
		))
	}
	return strings.Join(lines, "\n")
}

func renderPane(title, body string, width, height int) string {
	style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	if width > 0 {
		style = style.Width(width)
	}
	if height > 0 {
		style = style.Height(height)
	}
	return style.Render(title + "\n\n" + body)
}

func joinColumns(left, right string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.UTC().Format("15:04:05")
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}

func truncateText(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

func compactWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
