package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/batch"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/checkpoint"
)

// ProgressDisplay prints batch progress line by line. It implements
// batch.Observer.
type ProgressDisplay struct {
	mu      sync.Mutex
	w       io.Writer
	tracker *StatusTracker
	verbose bool
}

// NewProgressDisplay creates a display writing to w; verbose adds a line per post
func NewProgressDisplay(w io.Writer, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{
		w:       w,
		tracker: NewStatusTracker(0),
		verbose: verbose,
	}
}

// Tracker exposes the running counters
func (p *ProgressDisplay) Tracker() *StatusTracker {
	return p.tracker
}

func (p *ProgressDisplay) FanclubStarted(index, total int, entry checkpoint.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.TotalFanclubs = total
	cursor := entry.LastPostID
	if cursor == "" {
		cursor = "start"
	}
	fmt.Fprintf(p.w, "%s %s %s\n",
		Magenta(fmt.Sprintf("[%d/%d]", index, total)),
		Cyan(fanclubLabel(entry)),
		Dim("since "+cursor),
	)
}

func (p *ProgressDisplay) PostStarted(entry checkpoint.Entry, postID string, n, total int) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "  %s post %s (%d/%d)\n", Dim("→"), postID, n, total)
}

func (p *ProgressDisplay) PostFinished(entry checkpoint.Entry, postID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		fmt.Fprintf(p.w, "  %s post %s: %v\n", Red("✗"), postID, err)
		return
	}
	p.tracker.IncrementDownloaded()
	if p.verbose {
		fmt.Fprintf(p.w, "  %s post %s\n", Green("✓"), postID)
	}
}

func (p *ProgressDisplay) FanclubFinished(result batch.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.FinishFanclub(result.Failure != nil)

	switch {
	case result.Failure != nil && result.Failure.Kind == batch.FailureDownload:
		fmt.Fprintf(p.w, "  %s stopped after %d posts, cursor %s\n", Yellow("⚠"), result.Processed, result.Cursor)
	case result.Failure != nil:
		fmt.Fprintf(p.w, "  %s %s\n", Red("✗"), result.Failure.Error())
	case result.Processed == 0:
		fmt.Fprintf(p.w, "  %s no new posts\n", Dim("•"))
	default:
		fmt.Fprintf(p.w, "  %s %d posts, cursor %s\n", Green("✓"), result.Processed, result.Cursor)
	}
}

func (p *ProgressDisplay) BatchFinished(report *batch.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "\n%s Downloaded %d posts from %d fan clubs in %s %s\n",
		Green("✓"),
		report.Total(),
		len(report.Results),
		FormatDuration(p.tracker.GetElapsedTime()),
		Dim(fmt.Sprintf("(%.1f posts/min)", p.tracker.GetDownloadRate())),
	)

	failed := report.Failed()
	if len(failed) == 0 {
		return
	}
	fmt.Fprintf(p.w, "  %s %d fan clubs stopped early\n", Yellow("⚠"), len(failed))
	for _, res := range failed {
		fmt.Fprintf(p.w, "    %s %s: %s\n", Dim("•"), fanclubLabel(res.Entry), res.Failure.Kind)
	}
}

func fanclubLabel(e checkpoint.Entry) string {
	if e.FanclubName == "" {
		return e.FanclubID
	}
	return fmt.Sprintf("%s (%s)", e.FanclubName, e.FanclubID)
}
