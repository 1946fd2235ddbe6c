package session

import (
	"fmt"
	"net/url"
	"strings"
)

// Canonicalize derives the join base from the configured public URL: the
// fragment and query are dropped and the path is normalized to end with
// exactly one "/". Deterministic, never produces a double slash.
func Canonicalize(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base url must be http or https, got %q", pageURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url missing host: %q", pageURL)
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = ""
	u.Path = strings.TrimRight(u.Path, "/") + "/"

	return u.String(), nil
}

// JoinURL builds the audience-facing join link for a session code.
func JoinURL(baseURL, code string) (string, error) {
	base, err := Canonicalize(baseURL)
	if err != nil {
		return "", err
	}
	return base + "join/" + url.PathEscape(code), nil
}
