package fantia

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// BaseURL is the Fantia site root
const BaseURL = "https://fantia.jp"

// TimelinePageSize is the per-page count requested from the timeline API
const TimelinePageSize = 24

var (
	postPathPattern    = regexp.MustCompile(`^/posts/(\d+)`)
	fanclubPathPattern = regexp.MustCompile(`^/fanclubs/(\d+)`)
)

// PostPageURL is the HTML page of a post
func PostPageURL(base, postID string) string {
	return fmt.Sprintf("%s/posts/%s", base, postID)
}

// PostAPIURL is the JSON representation of a post
func PostAPIURL(base, postID string) string {
	return fmt.Sprintf("%s/api/v1/posts/%s", base, postID)
}

// FanclubAPIURL is the JSON representation of a fan club
func FanclubAPIURL(base, fanclubID string) string {
	return fmt.Sprintf("%s/api/v1/fanclubs/%s", base, fanclubID)
}

// FanclubPostsURL lists a fan club's posts newest first
func FanclubPostsURL(base, fanclubID string, page int) string {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("q[s]", "newer")
	return fmt.Sprintf("%s/fanclubs/%s/posts?%s", base, fanclubID, params.Encode())
}

// FollowedFanclubsURL lists the fan clubs the session follows
func FollowedFanclubsURL(base string) string {
	return base + "/api/v1/me/fanclubs"
}

// PaidPlansURL lists the session's paid plans
func PaidPlansURL(base string, page int) string {
	return fmt.Sprintf("%s/mypage/users/plans?type=not_free&page=%d", base, page)
}

// TimelineURL is the session's post timeline
func TimelineURL(base string, page int) string {
	return fmt.Sprintf("%s/api/v1/me/timelines/posts?page=%d&per=%d", base, page, TimelinePageSize)
}

// AbsoluteURL resolves a site-relative path such as a download_uri
func AbsoluteURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}

// PostIDFromPath extracts the id from "/posts/{id}"
func PostIDFromPath(path string) (string, bool) {
	m := postPathPattern.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FanclubIDFromPath extracts the id from "/fanclubs/{id}"
func FanclubIDFromPath(path string) (string, bool) {
	m := fanclubPathPattern.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// URLKind says what a user supplied URL points at
type URLKind int

const (
	URLUnknown URLKind = iota
	URLPost
	URLFanclub
)

// ParseURL recognises fantia.jp post and fan club URLs
func ParseURL(raw string) (URLKind, string) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return URLUnknown, ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "fantia.jp" {
		return URLUnknown, ""
	}

	if id, ok := PostIDFromPath(u.Path); ok {
		return URLPost, id
	}
	if id, ok := FanclubIDFromPath(u.Path); ok {
		return URLFanclub, id
	}
	return URLUnknown, ""
}
