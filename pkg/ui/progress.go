package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker counts batch progress across fan clubs
type StatusTracker struct {
	TotalFanclubs    int
	FinishedFanclubs int
	FailedFanclubs   int
	TotalDownloaded  int
	StartTime        time.Time

	now func() time.Time
}

// NewStatusTracker creates a tracker for total fan clubs
func NewStatusTracker(total int) *StatusTracker {
	return &StatusTracker{
		TotalFanclubs: total,
		StartTime:     time.Now(),
		now:           time.Now,
	}
}

// IncrementDownloaded counts a downloaded post
func (st *StatusTracker) IncrementDownloaded() {
	st.TotalDownloaded++
}

// FinishFanclub counts a finished fan club
func (st *StatusTracker) FinishFanclub(failed bool) {
	st.FinishedFanclubs++
	if failed {
		st.FailedFanclubs++
	}
}

// GetBatchProgress returns a progress bar over the fan clubs
func (st *StatusTracker) GetBatchProgress() string {
	const width = 20
	filled := 0
	if st.TotalFanclubs > 0 {
		filled = st.FinishedFanclubs * width / st.TotalFanclubs
	}
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.FinishedFanclubs, st.TotalFanclubs)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return st.now().Sub(st.StartTime)
}

// GetDownloadRate returns the average number of posts per minute
func (st *StatusTracker) GetDownloadRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(st.TotalDownloaded) / elapsed
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
