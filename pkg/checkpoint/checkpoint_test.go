package checkpoint

import (
	"errors"
	"testing"
	"time"

	"github.com/MarvinJWendt/testza"
	"github.com/andreyvit/diff"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore() (*Store, afero.Fs) {
	fs := afero.NewMemMapFs()
	return NewStore(fs, "/data/fanList.json", "/data/fantia_complete.json", nil), fs
}

func assertFileText(t *testing.T, fs afero.Fs, path, want string) {
	t.Helper()
	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	if string(got) != want {
		t.Errorf("%s differs from expected:\n%v", path, diff.LineDiff(want, string(got)))
	}
}

func TestParseLegacyEntry(t *testing.T) {
	run := func(name, in string, expected Entry) {
		t.Run(name, func(t *testing.T) {
			got, err := ParseLegacyEntry(in)
			testza.AssertNoError(t, err)
			testza.AssertEqual(t, expected, got)
		})
	}

	run("Full triple", "100:p0:Alice", Entry{FanclubID: "100", LastPostID: "p0", FanclubName: "Alice"})
	run("Empty cursor", "100::Alice", Entry{FanclubID: "100", FanclubName: "Alice"})
	run("Colon in name", "100:p0:Re:Zero", Entry{FanclubID: "100", LastPostID: "p0", FanclubName: "Re:Zero"})
	run("Id only", "100", Entry{FanclubID: "100"})

	_, err := ParseLegacyEntry(":p0:nobody")
	testza.AssertNotNil(t, err)
}

func TestLoadProgressStructuredAndLegacy(t *testing.T) {
	store, fs := newMemStore()
	require.NoError(t, afero.WriteFile(fs, "/data/fanList.json", []byte(`{
  "fantiadata": [
    "100:p0:Alice",
    {"fanclub_id": "200", "last_post_id": "p5", "fanclub_name": "Bob"}
  ]
}`), 0644))

	rec, err := store.LoadProgress()
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{FanclubID: "100", LastPostID: "p0", FanclubName: "Alice"},
		{FanclubID: "200", LastPostID: "p5", FanclubName: "Bob"},
	}, rec.Entries)
	assert.True(t, rec.Contains("200"))
	assert.False(t, rec.Contains("300"))
}

func TestLoadProgressMissing(t *testing.T) {
	store, _ := newMemStore()
	_, err := store.LoadProgress()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoProgressRecord))
}

func TestLoadProgressCorrupt(t *testing.T) {
	store, fs := newMemStore()
	require.NoError(t, afero.WriteFile(fs, "/data/fanList.json", []byte(`{"fantiadata": [`), 0644))

	_, err := store.LoadProgress()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestSaveProgressGolden(t *testing.T) {
	store, fs := newMemStore()
	require.NoError(t, store.SaveProgress(ProgressRecord{Entries: []Entry{
		{FanclubID: "100", LastPostID: "p2", FanclubName: "Alice"},
		{FanclubID: "200", LastPostID: "p5", FanclubName: "Bob"},
	}}))

	assertFileText(t, fs, "/data/fanList.json", `{
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

	exists, err := afero.Exists(fs, "/data/fanList.json.tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSaveProgressRoundTripsLegacyNames(t *testing.T) {
	store, fs := newMemStore()
	require.NoError(t, afero.WriteFile(fs, "/data/fanList.json", []byte(`{"fantiadata":["7:9:a:b:c"]}`), 0644))

	rec, err := store.LoadProgress()
	require.NoError(t, err)
	require.NoError(t, store.SaveProgress(rec))

	again, err := store.LoadProgress()
	require.NoError(t, err)
	assert.Equal(t, "a:b:c", again.Entries[0].FanclubName)
}

func TestCompletionLogGolden(t *testing.T) {
	store, fs := newMemStore()
	now := time.Date(2026, 10, 18, 9, 30, 59, 0, time.Local)

	log := NewCompletionLog([]Summary{
		{FanclubID: "100", FanclubName: "Alice", Count: 2},
		{FanclubID: "200", FanclubName: "Bob", Count: 0},
	}, now)
	assert.Equal(t, 2, log.AllCount)
	require.NoError(t, store.SaveCompletion(log))

	assertFileText(t, fs, "/data/fantia_complete.json", `{
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

func TestEmptyArtifacts(t *testing.T) {
	store, fs := newMemStore()

	require.NoError(t, store.SaveProgress(ProgressRecord{}))
	require.NoError(t, store.SaveCompletion(NewCompletionLog(nil, time.Date(2026, 1, 2, 3, 4, 0, 0, time.Local))))

	assertFileText(t, fs, "/data/fanList.json", "{\n  \"fantiadata\": []\n}\n")
	assertFileText(t, fs, "/data/fantia_complete.json", `{
  "download-compleate": [],
  "dayTime": "2026/01/02 03:04",
  "allcount": 0
}
`)
}
