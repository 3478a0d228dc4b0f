package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// maxFanclubRows is how many fan club rows the list panel shows
const maxFanclubRows = 8

// View renders the dashboard
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	// Header
	var sections []string
	sections = append(sections, headerStyle.Width(m.width).Render("fantiadl · fan club batch"))

	// Main content area with two columns
	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderCurrentPanel(width),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderFanclubPanel(width),
		m.renderLogsPanel(width),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	// Help
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to stop"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

// renderStatsPanel renders batch counters and the overall progress bar
func (m Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" BATCH ")
	done, failed := m.finishedFanclubs()

	stats := []string{
		stat("Elapsed:", formatDuration(time.Since(m.sessionStartTime))),
		stat("Fan clubs:", fmt.Sprintf("%d/%d", done, m.totalFanclubs)),
		stat("Posts downloaded:", fmt.Sprintf("%d", m.downloaded)),
	}
	if failed > 0 {
		stats = append(stats, warningStyle.Render(fmt.Sprintf("%d fan clubs stopped early", failed)))
	}
	if m.failedPosts > 0 {
		stats = append(stats, errorStyle.Render(fmt.Sprintf("%d posts failed", m.failedPosts)))
	}
	stats = append(stats, "", m.progress.ViewAs(m.Percent()))

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

// renderCurrentPanel renders the fan club and post being downloaded
func (m Model) renderCurrentPanel(width int) string {
	title := titleStyle.Render(" CURRENT ")

	var content string
	fc := m.current()
	switch {
	case m.done || m.report != nil:
		content = successStyle.Render("Finished")
	case fc == nil || fc.State != FanclubActive:
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for the next fan club")
	case m.currentPost == "":
		content = fmt.Sprintf("%s %s\n%s", m.spinner.View(), itemActiveStyle.Render(label(fc.Entry)), "  listing new posts")
	default:
		content = fmt.Sprintf("%s %s\n  post %s (%d/%d)",
			m.spinner.View(),
			itemActiveStyle.Render(label(fc.Entry)),
			m.currentPost, m.postIndex, m.postTotal)
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

// renderFanclubPanel renders the most recent fan clubs with their outcome
func (m Model) renderFanclubPanel(width int) string {
	title := titleStyle.Render(" FAN CLUBS ")

	start := len(m.fanclubs) - maxFanclubRows
	if start < 0 {
		start = 0
	}

	// Older rows collapse into a counter
	var rows []string
	if start > 0 {
		rows = append(rows, itemStyle.Render(fmt.Sprintf("... %d earlier", start)))
	}
	for _, fc := range m.fanclubs[start:] {
		switch fc.State {
		case FanclubActive:
			rows = append(rows, itemActiveStyle.Render("▶ "+label(fc.Entry)))
		case FanclubFailed:
			rows = append(rows, errorStyle.PaddingLeft(2).Render(fmt.Sprintf("✗ %s (%s, %d posts)", label(fc.Entry), fc.Failure.Kind, fc.Processed)))
		default:
			rows = append(rows, itemDoneStyle.Render(fmt.Sprintf("✓ %s (%d posts)", label(fc.Entry), fc.Processed)))
		}
	}
	if len(rows) == 0 {
		rows = append(rows, lipgloss.NewStyle().Foreground(dimWhite).Render("No fan clubs yet"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

// renderLogsPanel renders the last ten log lines
func (m Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	maxMsgLen := width - 25
	if maxMsgLen < 10 {
		maxMsgLen = 10
	}

	// Truncate long messages to fit the panel
	var logs []string
	for _, log := range m.logMessages[start:] {
		msg := log.Message
		if r := []rune(msg); len(r) > maxMsgLen {
			msg = string(r[:maxMsgLen-3]) + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s",
			logTimestampStyle.Render(log.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level)),
			logMessageStyle.Render(msg),
		))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m Model) renderHelp() string {
	help := `
  Keys:
    q/Q, ctrl+c - Stop the batch (progress is not saved)
    ctrl+l      - Clear the log
    ?           - Toggle this help

  Status:
    ` + successStyle.Render("✓") + ` finished    ` + warningStyle.Render("▶") + ` running    ` + errorStyle.Render("✗") + ` stopped early
`
	return panelStyle.Width(m.width).Render(help)
}

func stat(labelText, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(labelText), statsValueStyle.Render(value))
}

// formatDuration formats a duration as HH:MM:SS or MM:SS
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
