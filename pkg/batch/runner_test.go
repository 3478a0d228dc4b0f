package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/checkpoint"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/logger"
	"github.com/andreyvit/diff"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	progressPath = "/data/fanList.json"
	completePath = "/data/fantia_complete.json"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local)

// fakeSource serves canned listings; posts listed in failPosts fail to
// download and posts in panicPosts panic.
type fakeSource struct {
	mu         sync.Mutex
	listings   map[string][]string
	fetchErr   map[string]error
	failPosts  map[string]error
	panicPosts map[string]bool
	onDownload func(postID string)
	since      map[string]string
	downloaded []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		listings:   make(map[string][]string),
		fetchErr:   make(map[string]error),
		failPosts:  make(map[string]error),
		panicPosts: make(map[string]bool),
		since:      make(map[string]string),
	}
}

func (f *fakeSource) FetchFanclubPostsSince(_ context.Context, fanclubID, sincePostID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since[fanclubID] = sincePostID
	if err := f.fetchErr[fanclubID]; err != nil {
		return nil, err
	}
	return f.listings[fanclubID], nil
}

func (f *fakeSource) DownloadPost(_ context.Context, postID string) error {
	if f.onDownload != nil {
		f.onDownload(postID)
	}
	if f.panicPosts[postID] {
		panic("boom")
	}
	if err := f.failPosts[postID]; err != nil {
		return err
	}
	f.mu.Lock()
	f.downloaded = append(f.downloaded, postID)
	f.mu.Unlock()
	return nil
}

// recordingObserver keeps a trace of notifications
type recordingObserver struct {
	events []string
	report *Report
}

func (o *recordingObserver) FanclubStarted(index, total int, entry checkpoint.Entry) {
	o.events = append(o.events, "start:"+entry.FanclubID)
}

func (o *recordingObserver) PostStarted(entry checkpoint.Entry, postID string, n, total int) {
	o.events = append(o.events, "post:"+postID)
}

func (o *recordingObserver) PostFinished(entry checkpoint.Entry, postID string, err error) {
	if err != nil {
		o.events = append(o.events, "fail:"+postID)
		return
	}
	o.events = append(o.events, "done:"+postID)
}

func (o *recordingObserver) FanclubFinished(result Result) {
	o.events = append(o.events, "finish:"+result.Entry.FanclubID)
}

func (o *recordingObserver) BatchFinished(report *Report) {
	o.report = report
	o.events = append(o.events, "batch")
}

func newTestRunner(t *testing.T, src Source, opts ...Option) (*Runner, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := checkpoint.NewStore(fs, progressPath, completePath, nil)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithLogger(logger.NewTestLogger())}, opts...)
	return NewRunner(src, store, opts...), fs
}

func writeList(t *testing.T, fs afero.Fs, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, progressPath, []byte(content), 0644))
}

func assertFile(t *testing.T, fs afero.Fs, path, want string) {
	t.Helper()
	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	if string(got) != want {
		t.Errorf("%s differs from expected:\n%v", path, diff.LineDiff(want, string(got)))
	}
}

func entries(triples ...string) checkpoint.ProgressRecord {
	var rec checkpoint.ProgressRecord
	for _, s := range triples {
		e, err := checkpoint.ParseLegacyEntry(s)
		if err != nil {
			panic(err)
		}
		rec.Entries = append(rec.Entries, e)
	}
	return rec
}

func TestRunScenario(t *testing.T) {
	src := newFakeSource()
	src.listings["100"] = []string{"p1", "p2"}
	src.fetchErr["200"] = errors.New("listing unavailable")

	runner, fs := newTestRunner(t, src)
	writeList(t, fs, `{"fantiadata": ["100:p0:Alice", "200:p5:Bob"]}`)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total())
	assert.Equal(t, "p0", src.since["100"])
	assert.Equal(t, "p5", src.since["200"])

	require.Len(t, report.Results, 2)
	assert.Nil(t, report.Results[0].Failure)
	require.NotNil(t, report.Results[1].Failure)
	assert.Equal(t, FailureFetch, report.Results[1].Failure.Kind)

	assertFile(t, fs, progressPath, `{
  "fantiadata": [
    {
      "fanclub_id": "100",
      "last_post_id": "p2",
      "fanclub_name": "Alice"
    },
    {
      "fanclub_id": "200",
      "last_post_id": "p5",
      "fanclub_name": "Bob"
    }
  ]
}
`)
	assertFile(t, fs, completePath, `{
  "download-compleate": [
    {
      "fanclub_id": "100",
      "fanclub_name": "Alice",
      "count": 2
    },
    {
      "fanclub_id": "200",
      "fanclub_name": "Bob",
      "count": 0
    }
  ],
  "dayTime": "2026/10/18 09:30",
  "allcount": 2
}
`)
}

func TestRunEmptyList(t *testing.T) {
	runner, fs := newTestRunner(t, newFakeSource())
	writeList(t, fs, `{"fantiadata": []}`)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total())
	assert.Empty(t, report.Results)

	assertFile(t, fs, progressPath, "{\n  \"fantiadata\": []\n}\n")
	assertFile(t, fs, completePath, `{
  "download-compleate": [],
  "dayTime": "2026/10/18 09:30",
  "allcount": 0
}
`)
}

func TestRunMissingList(t *testing.T) {
	runner, _ := newTestRunner(t, newFakeSource())
	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, checkpoint.ErrNoProgressRecord)
}

func TestRunPreservesOrderAndCount(t *testing.T) {
	src := newFakeSource()
	src.listings["1"] = []string{"11"}
	src.listings["3"] = []string{"31", "32", "33"}
	src.failPosts["21"] = errors.New("bad post")
	src.listings["2"] = []string{"21", "22"}

	runner, _ := newTestRunner(t, src)
	rec := entries("3:30:C", "1::A", "2:20:B", "4:40:D")

	report, err := runner.RunRecord(context.Background(), rec)
	require.NoError(t, err)

	require.Len(t, report.Progress.Entries, len(rec.Entries))
	for i, e := range rec.Entries {
		assert.Equal(t, e.FanclubID, report.Progress.Entries[i].FanclubID)
		assert.Equal(t, e.FanclubName, report.Progress.Entries[i].FanclubName)
	}

	assert.Equal(t, []string{"33", "11", "20", "40"}, []string{
		report.Progress.Entries[0].LastPostID,
		report.Progress.Entries[1].LastPostID,
		report.Progress.Entries[2].LastPostID,
		report.Progress.Entries[3].LastPostID,
	})

	sum := 0
	for _, s := range report.Completion.Summaries {
		sum += s.Count
	}
	assert.Equal(t, sum, report.Completion.AllCount)
	assert.Equal(t, 4, report.Total())
}

func TestRunDownloadFailureKeepsLastSuccess(t *testing.T) {
	src := newFakeSource()
	src.listings["1"] = []string{"a", "b", "c", "d"}
	src.failPosts["c"] = errors.New("disk full")

	runner, _ := newTestRunner(t, src)
	report, err := runner.RunRecord(context.Background(), entries("1:z:A"))
	require.NoError(t, err)

	res := report.Results[0]
	assert.Equal(t, "b", res.Cursor)
	assert.Equal(t, 2, res.Processed)
	require.NotNil(t, res.Failure)
	assert.Equal(t, FailureDownload, res.Failure.Kind)
	assert.Equal(t, "c", res.Failure.PostID)
	assert.EqualError(t, errors.Unwrap(res.Failure), "disk full")
	assert.Equal(t, []string{"a", "b"}, src.downloaded)
}

func TestRunFirstDownloadFailureRevertsCursor(t *testing.T) {
	src := newFakeSource()
	src.listings["1"] = []string{"a", "b"}
	src.failPosts["a"] = errors.New("forbidden")

	runner, _ := newTestRunner(t, src)
	report, err := runner.RunRecord(context.Background(), entries("1:z:A"))
	require.NoError(t, err)

	res := report.Results[0]
	assert.Equal(t, "z", res.Cursor)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, FailureDownload, res.Failure.Kind)
}

func TestRunZeroPostsIsNotAFailure(t *testing.T) {
	runner, _ := newTestRunner(t, newFakeSource())
	report, err := runner.RunRecord(context.Background(), entries("1:z:A"))
	require.NoError(t, err)

	res := report.Results[0]
	assert.Nil(t, res.Failure)
	assert.Equal(t, "z", res.Cursor)
	assert.Equal(t, 0, res.Processed)
	assert.Empty(t, report.Failed())
}

func TestRunRecoversPanic(t *testing.T) {
	src := newFakeSource()
	src.listings["1"] = []string{"a", "b"}
	src.listings["2"] = []string{"x"}
	src.panicPosts["b"] = true

	runner, _ := newTestRunner(t, src)
	report, err := runner.RunRecord(context.Background(), entries("1:z:A", "2::B"))
	require.NoError(t, err)

	first := report.Results[0]
	require.NotNil(t, first.Failure)
	assert.Equal(t, FailureUnexpected, first.Failure.Kind)
	assert.Equal(t, "b", first.Failure.PostID)
	assert.Equal(t, "a", first.Cursor)
	assert.Equal(t, 1, first.Processed)

	assert.Equal(t, "x", report.Results[1].Cursor)
	assert.Equal(t, 2, report.Total())
}

func TestRunInterrupted(t *testing.T) {
	src := newFakeSource()
	src.listings["1"] = []string{"a", "b"}
	src.listings["2"] = []string{"c"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src.onDownload = func(postID string) {
		if postID == "b" {
			cancel()
		}
	}

	runner, fs := newTestRunner(t, src)
	writeList(t, fs, `{"fantiadata": ["1::A", "2::B"]}`)

	report, err := runner.Run(ctx)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Nil(t, report)

	assertFile(t, fs, progressPath, `{"fantiadata": ["1::A", "2::B"]}`)
	exists, _ := afero.Exists(fs, completePath)
	assert.False(t, exists)
}

func TestRunAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, _ := newTestRunner(t, newFakeSource())
	_, err := runner.RunRecord(ctx, entries("1::A"))
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestRunObserver(t *testing.T) {
	src := newFakeSource()
	src.listings["1"] = []string{"a", "b"}
	src.failPosts["b"] = errors.New("nope")
	src.fetchErr["2"] = errors.New("down")

	obs := &recordingObserver{}
	runner, _ := newTestRunner(t, src, WithObserver(obs))
	_, err := runner.RunRecord(context.Background(), entries("1::A", "2::B"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"start:1", "post:a", "done:a", "post:b", "fail:b", "finish:1",
		"start:2", "finish:2",
		"batch",
	}, obs.events)
	require.NotNil(t, obs.report)
	assert.Equal(t, 1, obs.report.Total())
}

func TestRunLogsSummaries(t *testing.T) {
	src := newFakeSource()
	src.listings["100"] = []string{"p1"}
	src.fetchErr["200"] = errors.New("listing unavailable")

	log := logger.NewTestLogger()
	runner, _ := newTestRunner(t, src, WithLogger(log))
	_, err := runner.RunRecord(context.Background(), entries("100:p0:Alice", "200:p5:Bob"))
	require.NoError(t, err)

	assert.True(t, log.HasMessage("Fan club done"))
	assert.True(t, log.HasMessage("Fan club stopped"))
	assert.True(t, log.HasError())
}

func TestFailureError(t *testing.T) {
	f := &Failure{Kind: FailureDownload, FanclubID: "1", PostID: "9", Err: errors.New("x")}
	assert.Equal(t, "download failure in fan club 1 at post 9: x", f.Error())

	f = &Failure{Kind: FailureFetch, FanclubID: "1", Err: errors.New("x")}
	assert.Equal(t, "fetch failure in fan club 1: x", f.Error())
}
