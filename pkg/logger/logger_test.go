package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/config"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "warning alias", cfg: &config.LoggingConfig{Level: "WARNING"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "verbose"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "fantiadl.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel)

	child := l.WithField("fanclub_id", "100").WithFields(map[string]interface{}{
		"processed": 2,
		"elapsed":   1500 * time.Millisecond,
	})
	child.WithError(errors.New("boom")).Error("fan club failed")
	l.Info("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "error", lines[0]["level"])
	assert.Equal(t, "fan club failed", lines[0]["message"])
	assert.Equal(t, "100", lines[0]["fanclub_id"])
	assert.Equal(t, float64(2), lines[0]["processed"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "fantiadl", lines[0]["app"])

	// parent logger is untouched by child fields
	_, ok := lines[1]["fanclub_id"]
	assert.False(t, ok)
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	l.WarnWithFields("shown", map[string]interface{}{"post_id": "p1"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
	assert.Equal(t, "p1", lines[0]["post_id"])
}

func TestWithNilError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel)
	l.WithError(nil).Info("ok")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["error"]
	assert.False(t, ok)
}

func TestLogRequest(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "https://fantia.jp/api/v1/posts/1", 200, 12.5)
	LogRequest(tl, "GET", "https://fantia.jp/api/v1/posts/2", 404, 3)
	LogRequest(tl, "GET", "https://fantia.jp/api/v1/posts/3", 502, 3)

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
	assert.Equal(t, 404, tl.GetMessagesByLevel("WARN")[0].Fields["status_code"])
}

func TestLogFanclubSummary(t *testing.T) {
	tl := NewTestLogger()

	LogFanclubSummary(tl, "100", "Alice", "p2", 2, nil)
	LogFanclubSummary(tl, "200", "Bob", "p5", 0, errors.New("fetch failed"))

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "INFO", msgs[0].Level)
	assert.Equal(t, "p2", msgs[0].Fields["cursor"])
	assert.Equal(t, "ERROR", msgs[1].Level)
	assert.Equal(t, "fetch failed", msgs[1].Fields["error"])
	assert.True(t, tl.HasError())
	assert.True(t, tl.HasMessage("stopped"))
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.WithField("a", 1).WithError(errors.New("x")).Error("nothing")
		l.InfoWithFields("nothing", nil)
		l.GetZerolog().Info().Msg("nothing")
	})
}

func TestConsoleWriterHidesAppField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(newConsoleWriter(&buf), zerolog.InfoLevel)

	l.WithField("post_id", "42").Info("Post downloaded")

	out := buf.String()
	assert.Contains(t, out, "| Post downloaded")
	assert.Contains(t, out, "post_id")
	assert.Contains(t, out, "42")
	assert.NotContains(t, out, "fantiadl")
}
