package tui

import (
	"fmt"
	"time"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/batch"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/checkpoint"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// FanclubStartedMsg is sent when the runner starts a fan club
type FanclubStartedMsg struct {
	Index int
	Total int
	Entry checkpoint.Entry
}

// PostStartedMsg is sent when a post download starts
type PostStartedMsg struct {
	Entry  checkpoint.Entry
	PostID string
	N      int
	Total  int
}

// PostFinishedMsg is sent when a post download ends
type PostFinishedMsg struct {
	Entry  checkpoint.Entry
	PostID string
	Err    error
}

// FanclubFinishedMsg carries a fan club result
type FanclubFinishedMsg struct {
	Result batch.Result
}

// BatchFinishedMsg carries the final report
type BatchFinishedMsg struct {
	Report *batch.Report
}

// DoneMsg is sent when the work function returns
type DoneMsg struct {
	Err error
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to refresh elapsed time
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = clamp(msg.Width/2-12, 10, 60)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()

	case FanclubStartedMsg:
		m.StartFanclub(msg.Index, msg.Total, msg.Entry)
		m.AddLogMessage("INFO", fmt.Sprintf("Fan club %s (%d/%d)", label(msg.Entry), msg.Index, msg.Total))
		return m, nil

	case PostStartedMsg:
		m.StartPost(msg.PostID, msg.N, msg.Total)
		return m, nil

	case PostFinishedMsg:
		m.FinishPost(msg.PostID, msg.Err)
		if msg.Err != nil {
			m.AddLogMessage("ERROR", fmt.Sprintf("Post %s: %v", msg.PostID, msg.Err))
		}
		return m, nil

	case FanclubFinishedMsg:
		m.FinishFanclub(msg.Result)
		if f := msg.Result.Failure; f != nil {
			m.AddLogMessage("WARN", fmt.Sprintf("%s stopped: %s", label(msg.Result.Entry), f.Kind))
		} else {
			m.AddLogMessage("SUCCESS", fmt.Sprintf("%s: %d posts", label(msg.Result.Entry), msg.Result.Processed))
		}
		return m, nil

	case BatchFinishedMsg:
		m.report = msg.Report
		m.AddLogMessage("SUCCESS", fmt.Sprintf("Batch finished, %d posts downloaded", msg.Report.Total()))
		return m, nil

	case DoneMsg:
		m.done = true
		if msg.Err != nil {
			m.AddLogMessage("ERROR", msg.Err.Error())
		}
		return m, tea.Quit

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.AddLogMessage("WARN", "Stopping")
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func label(e checkpoint.Entry) string {
	if e.FanclubName == "" {
		return e.FanclubID
	}
	return e.FanclubName
}
