package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/checkpoint"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/logger"
)

// Source lists and downloads posts. *fantia.Downloader implements it.
type Source interface {
	// FetchFanclubPostsSince returns the ids newer than sincePostID, oldest first
	FetchFanclubPostsSince(ctx context.Context, fanclubID, sincePostID string) ([]string, error)
	DownloadPost(ctx context.Context, postID string) error
}

// Runner processes the fan club list sequentially
type Runner struct {
	source   Source
	store    *checkpoint.Store
	observer Observer
	logger   logger.Logger
	now      func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithObserver reports progress to o
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithLogger sets the runner's logger
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the completion log timestamp source
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a runner reading and writing artifacts through store
func NewRunner(source Source, store *checkpoint.Store, opts ...Option) *Runner {
	r := &Runner{
		source:   source,
		store:    store,
		observer: NopObserver{},
		logger:   logger.NewNopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads the progress record, processes it and writes both artifacts
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rec, err := r.store.LoadProgress()
	if err != nil {
		return nil, err
	}
	return r.RunRecord(ctx, rec)
}

// RunRecord processes rec and writes both artifacts. Per fan club failures
// are reported in the Report, not as an error.
func (r *Runner) RunRecord(ctx context.Context, rec checkpoint.ProgressRecord) (*Report, error) {
	r.logger.InfoWithFields("Batch started", map[string]interface{}{
		"fanclubs": len(rec.Entries),
	})

	report := &Report{Results: make([]Result, 0, len(rec.Entries))}
	next := make([]checkpoint.Entry, 0, len(rec.Entries))
	summaries := make([]checkpoint.Summary, 0, len(rec.Entries))

	for i, entry := range rec.Entries {
		if ctx.Err() != nil {
			return nil, ErrInterrupted
		}

		r.observer.FanclubStarted(i+1, len(rec.Entries), entry)
		res := r.runFanclub(ctx, entry)
		if ctx.Err() != nil {
			r.logger.WithField("fanclub_id", entry.FanclubID).Warn("Batch interrupted")
			return nil, ErrInterrupted
		}

		var failErr error
		if res.Failure != nil {
			failErr = res.Failure
		}
		logger.LogFanclubSummary(r.logger, entry.FanclubID, entry.FanclubName, res.Cursor, res.Processed, failErr)
		r.observer.FanclubFinished(res)

		report.Results = append(report.Results, res)
		next = append(next, res.Next())
		summaries = append(summaries, res.Summary())
	}

	report.Progress = checkpoint.ProgressRecord{Entries: next}
	report.Completion = checkpoint.NewCompletionLog(summaries, r.now())

	if err := r.store.SaveProgress(report.Progress); err != nil {
		return report, err
	}
	if err := r.store.SaveCompletion(report.Completion); err != nil {
		return report, err
	}

	r.logger.InfoWithFields("Batch finished", map[string]interface{}{
		"fanclubs": len(report.Results),
		"failed":   len(report.Failed()),
		"allcount": report.Total(),
	})
	r.observer.BatchFinished(report)
	return report, nil
}

// runFanclub downloads the new posts of one fan club. The cursor only moves
// on success, so with nothing processed it keeps the input value.
func (r *Runner) runFanclub(ctx context.Context, entry checkpoint.Entry) (res Result) {
	res = Result{Entry: entry, Cursor: entry.LastPostID}
	current := ""

	defer func() {
		if p := recover(); p != nil {
			res.Failure = &Failure{
				Kind:      FailureUnexpected,
				FanclubID: entry.FanclubID,
				PostID:    current,
				Err:       fmt.Errorf("panic: %v", p),
			}
		}
		if res.Processed == 0 {
			res.Cursor = entry.LastPostID
		}
	}()

	ids, err := r.source.FetchFanclubPostsSince(ctx, entry.FanclubID, entry.LastPostID)
	if err != nil {
		res.Failure = &Failure{Kind: FailureFetch, FanclubID: entry.FanclubID, Err: err}
		return res
	}

	r.logger.DebugWithFields("New posts found", map[string]interface{}{
		"fanclub_id": entry.FanclubID,
		"cursor":     entry.LastPostID,
		"posts":      len(ids),
	})

	for i, id := range ids {
		current = id
		r.observer.PostStarted(entry, id, i+1, len(ids))
		err := r.source.DownloadPost(ctx, id)
		r.observer.PostFinished(entry, id, err)
		if err != nil {
			res.Failure = &Failure{Kind: FailureDownload, FanclubID: entry.FanclubID, PostID: id, Err: err}
			return res
		}
		res.Cursor = id
		res.Processed++
	}

	return res
}
