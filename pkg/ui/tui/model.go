package tui

import (
	"time"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/batch"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/checkpoint"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FanclubState is the dashboard state of one fan club
type FanclubState int

const (
	FanclubActive FanclubState = iota
	FanclubDone
	FanclubFailed
)

// FanclubItem is one fan club row of the dashboard
type FanclubItem struct {
	Entry     checkpoint.Entry
	State     FanclubState
	Processed int
	Cursor    string
	Failure   *batch.Failure
}

// Model is the batch dashboard
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	fanclubs      []*FanclubItem
	totalFanclubs int
	currentPost   string
	postIndex     int
	postTotal     int

	downloaded       int
	failedPosts      int
	sessionStartTime time.Time
	report           *batch.Report
	done             bool

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	onQuit func()
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates the dashboard model. onQuit runs when the user quits.
func NewModel(onQuit func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:          s,
		progress:         p,
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
		onQuit:           onQuit,
	}
}

// Init starts the spinner and the elapsed time ticker
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *Model) current() *FanclubItem {
	if len(m.fanclubs) == 0 {
		return nil
	}
	return m.fanclubs[len(m.fanclubs)-1]
}

// StartFanclub adds a fan club row
func (m *Model) StartFanclub(index, total int, entry checkpoint.Entry) {
	m.totalFanclubs = total
	m.fanclubs = append(m.fanclubs, &FanclubItem{
		Entry:  entry,
		State:  FanclubActive,
		Cursor: entry.LastPostID,
	})
	m.currentPost, m.postIndex, m.postTotal = "", 0, 0
}

// StartPost marks postID as downloading
func (m *Model) StartPost(postID string, n, total int) {
	m.currentPost, m.postIndex, m.postTotal = postID, n, total
}

// FinishPost records the outcome of a post
func (m *Model) FinishPost(postID string, err error) {
	if err != nil {
		m.failedPosts++
		return
	}
	m.downloaded++
	if fc := m.current(); fc != nil {
		fc.Processed++
		fc.Cursor = postID
	}
}

// FinishFanclub applies a fan club result
func (m *Model) FinishFanclub(res batch.Result) {
	fc := m.current()
	if fc == nil || fc.Entry.FanclubID != res.Entry.FanclubID {
		return
	}
	fc.Processed = res.Processed
	fc.Cursor = res.Cursor
	fc.Failure = res.Failure
	fc.State = FanclubDone
	if res.Failure != nil {
		fc.State = FanclubFailed
	}
	m.currentPost, m.postIndex, m.postTotal = "", 0, 0
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = neonRed
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// finishedFanclubs counts rows that are no longer active
func (m *Model) finishedFanclubs() (done, failed int) {
	for _, fc := range m.fanclubs {
		switch fc.State {
		case FanclubDone:
			done++
		case FanclubFailed:
			done++
			failed++
		}
	}
	return done, failed
}

// Percent is the share of fan clubs finished
func (m *Model) Percent() float64 {
	if m.totalFanclubs == 0 {
		return 0
	}
	done, _ := m.finishedFanclubs()
	return float64(done) / float64(m.totalFanclubs)
}
