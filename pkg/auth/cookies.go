package auth

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// SessionCookieName is the Fantia session cookie
const SessionCookieName = "_session_id"

// ErrNoSessionCookie is returned when a cookies.txt has no Fantia session
var ErrNoSessionCookie = errors.New("no _session_id cookie for fantia.jp found")

// ResolveSessionArg accepts either a raw _session_id value or a path on fs to
// a Netscape cookies.txt file and returns the session id.
func ResolveSessionArg(fs afero.Fs, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", ErrInvalidCredentials
	}

	info, err := fs.Stat(arg)
	if err != nil || info.IsDir() {
		return arg, nil
	}

	f, err := fs.Open(arg)
	if err != nil {
		return "", fmt.Errorf("failed to open cookies file: %w", err)
	}
	defer f.Close()

	return parseCookiesFile(bufio.NewScanner(f))
}

// parseCookiesFile reads Netscape format lines:
// domain, include-subdomains, path, secure, expiry, name, value (tab separated).
func parseCookiesFile(scanner *bufio.Scanner) (string, error) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// curl writes HttpOnly cookies with this prefix
		line = strings.TrimPrefix(line, "#HttpOnly_")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			continue
		}

		domain := strings.TrimPrefix(fields[0], ".")
		if domain != "fantia.jp" && !strings.HasSuffix(domain, ".fantia.jp") {
			continue
		}
		if fields[5] == SessionCookieName && fields[6] != "" {
			return fields[6], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read cookies file: %w", err)
	}
	return "", ErrNoSessionCookie
}
