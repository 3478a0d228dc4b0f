package fantia

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/MarvinJWendt/testza"
)

func TestRenderDir(t *testing.T) {
	v := Values{
		FanclubName: "Club",
		CreatorName: "Alice",
		PostedShort: "2023-01-02",
		Title:       "a/b: c",
		PostID:      "42",
	}

	got := RenderDir("[fanclub_name]（[creator_name]）/[posted_short]_[title]_[post_id]", v)
	testza.AssertEqual(t, "Club（Alice）/2023-01-02_a／b： c_42", got)
}

func TestRenderDirSkipsEmptySegments(t *testing.T) {
	got := RenderDir("/[post_id]//", Values{PostID: "7"})
	testza.AssertEqual(t, "7", got)
}

func TestRenderFile(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		v    Values
		want string
	}{
		{"appends extension", "[post_id]_[file_id]", Values{PostID: "1", FileID: "9", Ext: "jpg"}, "1_9.jpg"},
		{"explicit extension", "[filename]-[file_id].[ext]", Values{Filename: "pic", FileID: "9", Ext: "png"}, "pic-9.png"},
		{"no extension", "[post_id]", Values{PostID: "1"}, "1"},
		{"sanitises", "[title]", Values{Title: "x?y", Ext: "zip"}, "x？y.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testza.AssertEqual(t, tt.want, RenderFile(tt.tmpl, tt.v))
		})
	}
}

func TestSplitExt(t *testing.T) {
	base, ext := splitExt("Photo.JPG")
	testza.AssertEqual(t, "Photo", base)
	testza.AssertEqual(t, "jpg", ext)

	base, ext = splitExt("README")
	testza.AssertEqual(t, "README", base)
	testza.AssertEqual(t, "", ext)
}

func TestRenderLongMultibyteTitle(t *testing.T) {
	v := Values{
		PostID:      "42",
		Title:       strings.Repeat("とても長い投稿タイトル", 30),
		FileID:      "9",
		Ext:         "jpg",
		PostedShort: "2023-01-02",
	}

	dir := RenderDir("[posted_short]_[title]_[post_id]", v)
	for _, segment := range strings.Split(dir, "/") {
		testza.AssertTrue(t, len(segment) <= 255, "segment is %d bytes", len(segment))
		testza.AssertTrue(t, utf8.ValidString(segment))
	}

	for _, tmpl := range []string{"[title]_[file_id]", "[title].[ext]"} {
		name := RenderFile(tmpl, v)
		testza.AssertTrue(t, strings.HasSuffix(name, ".jpg"), "%q lost its extension", tmpl)
		testza.AssertTrue(t, len(name+".part") <= 255, "%q renders %d bytes", tmpl, len(name))
		testza.AssertTrue(t, utf8.ValidString(name))
	}
}
