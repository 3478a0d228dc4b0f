package fantia

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpoints(t *testing.T) {
	assert.Equal(t, "https://fantia.jp/posts/5", PostPageURL(BaseURL, "5"))
	assert.Equal(t, "https://fantia.jp/api/v1/posts/5", PostAPIURL(BaseURL, "5"))
	assert.Equal(t, "https://fantia.jp/api/v1/fanclubs/3", FanclubAPIURL(BaseURL, "3"))
	assert.Equal(t, "https://fantia.jp/fanclubs/3/posts?page=2&q%5Bs%5D=newer", FanclubPostsURL(BaseURL, "3", 2))
	assert.Equal(t, "https://fantia.jp/api/v1/me/fanclubs", FollowedFanclubsURL(BaseURL))
	assert.Equal(t, "https://fantia.jp/mypage/users/plans?type=not_free&page=1", PaidPlansURL(BaseURL, 1))
	assert.Equal(t, "https://fantia.jp/api/v1/me/timelines/posts?page=1&per=24", TimelineURL(BaseURL, 1))
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://fantia.jp/posts/1/download/2", AbsoluteURL(BaseURL, "/posts/1/download/2"))
	assert.Equal(t, "https://fantia.jp/x", AbsoluteURL(BaseURL, "x"))
	assert.Equal(t, "https://cc.fantia.jp/a.jpg", AbsoluteURL(BaseURL, "https://cc.fantia.jp/a.jpg"))
}

func TestIDFromPath(t *testing.T) {
	id, ok := PostIDFromPath("/posts/123?foo=bar")
	assert.True(t, ok)
	assert.Equal(t, "123", id)

	_, ok = PostIDFromPath("/fanclubs/1")
	assert.False(t, ok)

	id, ok = FanclubIDFromPath("/fanclubs/77/posts")
	assert.True(t, ok)
	assert.Equal(t, "77", id)
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw  string
		kind URLKind
		id   string
	}{
		{"https://fantia.jp/posts/100", URLPost, "100"},
		{"https://www.fantia.jp/fanclubs/7", URLFanclub, "7"},
		{" https://fantia.jp/fanclubs/7/posts ", URLFanclub, "7"},
		{"https://example.com/posts/100", URLUnknown, ""},
		{"https://fantia.jp/mypage", URLUnknown, ""},
		{"::not a url", URLUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			kind, id := ParseURL(tt.raw)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.id, id)
		})
	}
}
