package batch

import (
	"errors"
	"fmt"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/checkpoint"
)

// ErrInterrupted is returned when the run is cancelled before it completes
var ErrInterrupted = errors.New("batch interrupted")

// FailureKind classifies why a fan club stopped early
type FailureKind string

const (
	// FailureFetch means the post listing could not be fetched
	FailureFetch FailureKind = "fetch"
	// FailureDownload means a post download failed
	FailureDownload FailureKind = "download"
	// FailureUnexpected is a panic recovered while processing the fan club
	FailureUnexpected FailureKind = "unexpected"
)

// Failure describes the error that stopped a fan club
type Failure struct {
	Kind      FailureKind
	FanclubID string
	PostID    string
	Err       error
}

func (f *Failure) Error() string {
	if f.PostID != "" {
		return fmt.Sprintf("%s failure in fan club %s at post %s: %v", f.Kind, f.FanclubID, f.PostID, f.Err)
	}
	return fmt.Sprintf("%s failure in fan club %s: %v", f.Kind, f.FanclubID, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of one fan club
type Result struct {
	Entry     checkpoint.Entry
	Cursor    string
	Processed int
	Failure   *Failure
}

// Next is the progress entry written back for this fan club
func (r Result) Next() checkpoint.Entry {
	return checkpoint.Entry{
		FanclubID:   r.Entry.FanclubID,
		LastPostID:  r.Cursor,
		FanclubName: r.Entry.FanclubName,
	}
}

// Summary is the completion log line for this fan club
func (r Result) Summary() checkpoint.Summary {
	return checkpoint.Summary{
		FanclubID:   r.Entry.FanclubID,
		FanclubName: r.Entry.FanclubName,
		Count:       r.Processed,
	}
}

// Report collects the results of a whole run
type Report struct {
	Results    []Result
	Progress   checkpoint.ProgressRecord
	Completion checkpoint.CompletionLog
}

// Total is the number of posts downloaded in the run
func (r *Report) Total() int {
	return r.Completion.AllCount
}

// Failed returns the results that stopped early
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Failure != nil {
			failed = append(failed, res)
		}
	}
	return failed
}
