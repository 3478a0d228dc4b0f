package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide explains how to obtain the Fantia session cookie
func ShowCookieExtractionGuide(w io.Writer) {
	lines := []string{
		strings.Repeat("=", 72),
		"FANTIA SESSION COOKIE",
		strings.Repeat("=", 72),
		"",
		"fantiadl authenticates with the _session_id cookie of a logged-in browser.",
		"",
		"1. Log in at https://fantia.jp",
		"2. Open Developer Tools (F12, Cmd+Option+I on macOS)",
		"3. Application (Chrome) or Storage (Firefox) -> Cookies -> https://fantia.jp",
		"4. Copy the value of _session_id",
		"",
		"Alternatively export cookies.txt (Netscape format) with a browser",
		"extension and pass the file path instead of the value.",
		"",
		"The cookie grants full access to your account. Do not share it.",
		strings.Repeat("=", 72),
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
