package metadata

import (
	"net/url"
	"regexp"
	"strings"
)

// LinksFile is written into a post directory when external links are parsed
const LinksFile = "links.txt"

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>()\[\]{}]+`)

// hosts whose links usually point at content hosted off Fantia
var externalHosts = []string{
	"mega.nz",
	"mega.co.nz",
	"mediafire.com",
	"drive.google.com",
	"docs.google.com",
	"dropbox.com",
	"gigafile.nu",
	"youtube.com",
	"youtu.be",
	"onedrive.live.com",
	"1drv.ms",
	"booth.pm",
	"dlsite.com",
}

// ExtractLinks returns external download links found in texts, deduplicated in
// order of first appearance.
func ExtractLinks(texts ...string) []string {
	seen := make(map[string]struct{})
	var links []string

	for _, text := range texts {
		for _, raw := range urlPattern.FindAllString(text, -1) {
			raw = strings.TrimRight(raw, ".,;:!?、。")
			if !isExternal(raw) {
				continue
			}
			if _, ok := seen[raw]; ok {
				continue
			}
			seen[raw] = struct{}{}
			links = append(links, raw)
		}
	}

	return links
}

func isExternal(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range externalHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// FormatLinks renders links.txt
func FormatLinks(links []string) []byte {
	if len(links) == 0 {
		return nil
	}
	return []byte(strings.Join(links, "\n") + "\n")
}
