package tui

import (
	"github.com/Rusty-starlightExpress/fantiadl/pkg/batch"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/checkpoint"
	tea "github.com/charmbracelet/bubbletea"
)

// TUI runs the dashboard and forwards batch notifications to it. It
// implements batch.Observer.
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a dashboard. onQuit is called when the user stops the batch.
func NewTUI(onQuit func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(onQuit)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Run shows the dashboard while work runs in another goroutine, and returns
// work's error once both have finished.
func (t *TUI) Run(work func(obs batch.Observer) error) error {
	errCh := make(chan error, 1)
	go func() {
		err := work(t)
		errCh <- err
		t.program.Send(DoneMsg{Err: err})
	}()

	if _, err := t.program.Run(); err != nil {
		if t.model.onQuit != nil {
			t.model.onQuit()
		}
		<-errCh
		return err
	}
	return <-errCh
}

// Send sends a message to the dashboard
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TUI) FanclubStarted(index, total int, entry checkpoint.Entry) {
	t.Send(FanclubStartedMsg{Index: index, Total: total, Entry: entry})
}

func (t *TUI) PostStarted(entry checkpoint.Entry, postID string, n, total int) {
	t.Send(PostStartedMsg{Entry: entry, PostID: postID, N: n, Total: total})
}

func (t *TUI) PostFinished(entry checkpoint.Entry, postID string, err error) {
	t.Send(PostFinishedMsg{Entry: entry, PostID: postID, Err: err})
}

func (t *TUI) FanclubFinished(result batch.Result) {
	t.Send(FanclubFinishedMsg{Result: result})
}

func (t *TUI) BatchFinished(report *batch.Report) {
	t.Send(BatchFinishedMsg{Report: report})
}
