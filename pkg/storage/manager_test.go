package storage

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(afero.NewMemMapFs(), "/downloads")
	require.NoError(t, err)
	return m
}

func TestManagerSave(t *testing.T) {
	m := newMemManager(t)

	assert.False(t, m.Exists("club/post/1.jpg"))

	n, err := m.Save("club/post/1.jpg", strings.NewReader("image bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	assert.True(t, m.Exists("club/post/1.jpg"))
	assert.False(t, m.Exists("club/post/1.jpg.part"))
	assert.Equal(t, 1, m.SavedCount())

	data, err := afero.ReadFile(m.Fs(), "/downloads/club/post/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestManagerSaveFailureLeavesNothing(t *testing.T) {
	m := newMemManager(t)

	_, err := m.Save("a/b.zip", failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.False(t, m.Exists("a/b.zip"))
	assert.False(t, m.Exists("a/b.zip.part"))
	assert.Equal(t, 0, m.SavedCount())
}

func TestManagerMarkers(t *testing.T) {
	m := newMemManager(t)
	require.NoError(t, m.MkdirAll("post"))

	require.NoError(t, m.Touch("post/.incomplete"))
	assert.True(t, m.Exists("post/.incomplete"))

	require.NoError(t, m.Remove("post/.incomplete"))
	assert.False(t, m.Exists("post/.incomplete"))
	assert.NoError(t, m.Remove("post/.incomplete"))
}

func TestManagerExclusions(t *testing.T) {
	m := newMemManager(t)
	require.NoError(t, afero.WriteFile(m.Fs(), "/exclude.txt", []byte("skip.png\n\n  other.zip  \n"), 0644))

	require.NoError(t, m.LoadExclusions("/exclude.txt"))
	assert.True(t, m.IsExcluded("skip.png"))
	assert.True(t, m.IsExcluded("club/post/other.zip"))
	assert.False(t, m.IsExcluded("keep.png"))

	assert.Error(t, m.LoadExclusions("/missing.txt"))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a/b", "a／b"},
		{"what? <yes>", "what？ ＜yes＞"},
		{"  trailing dots...", "trailing dots"},
		{"tab\there", "tabhere"},
		{"", "_"},
		{"..", "_"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), "input %q", tt.in)
	}

}

func TestSanitizeNameLimitsBytes(t *testing.T) {
	// 3 bytes per rune, so 100 runes already overflow a 255 byte component
	long := strings.Repeat("あ", 100)

	got := SanitizeName(long)
	assert.LessOrEqual(t, len(got), maxNameBytes)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("あ", 85), got)

	assert.Equal(t, "ab", SanitizeName("ab"+strings.Repeat(" ", 300)+"c"))
	assert.Equal(t, "a", SanitizeName("a"+strings.Repeat(".", 300)+"b"))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "photo.jpg", SanitizeFileName("photo", "jpg"))
	assert.Equal(t, "a／b", SanitizeFileName("a/b", ""))

	got := SanitizeFileName(strings.Repeat("あ", 200), "jpg")
	assert.True(t, strings.HasSuffix(got, "あ.jpg"))
	assert.LessOrEqual(t, len(got), maxFileNameBytes)
	assert.LessOrEqual(t, len(got+partSuffix), maxNameBytes)
	assert.True(t, utf8.ValidString(got))
}

func TestSaveLongMultibyteNameOnDisk(t *testing.T) {
	m, err := NewManager(afero.NewOsFs(), t.TempDir())
	require.NoError(t, err)

	title := strings.Repeat("長いタイトル", 40)
	rel := SanitizeName(title) + "/" + SanitizeFileName(title, "png")

	_, err = m.Save(rel, strings.NewReader("png"))
	require.NoError(t, err)
	assert.True(t, m.Exists(rel))
}
