package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/batch"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %s with title %s`, strconv.Quote(message), strconv.Quote(title))
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier sends a desktop notification when a batch finishes. It implements
// batch.Observer.
type Notifier struct {
	batch.NopObserver
	sender NotificationSender
}

// NewNotifier creates a Notifier for the current platform. On other
// platforms it does nothing.
func NewNotifier() *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	}
	return &Notifier{sender: sender}
}

// NewNotifierWithSender creates a Notifier using sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// BatchFinished sends the run summary; delivery errors are ignored
func (n *Notifier) BatchFinished(report *batch.Report) {
	if n.sender == nil {
		return
	}
	_ = n.sender.Send("fantiadl", SummaryMessage(report))
}

// SummaryMessage is the one line run summary
func SummaryMessage(report *batch.Report) string {
	msg := fmt.Sprintf("Downloaded %d posts from %d fan clubs", report.Total(), len(report.Results))
	if failed := len(report.Failed()); failed > 0 {
		msg += fmt.Sprintf(", %d stopped early", failed)
	}
	return msg
}
