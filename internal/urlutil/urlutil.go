// Package urlutil validates and describes bookmark URLs.
package urlutil

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/abhijith/smart-bookmark/internal/models"
)

// ValidateAndNormalize trims raw, adds https:// when no scheme is given and
// checks that the result is an http(s) URL with a plausible host.
func ValidateAndNormalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", models.ErrEmptyURL
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", models.ErrInvalidURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", models.ErrInvalidURL
	}
	if !validHost(u.Hostname()) {
		return "", models.ErrInvalidURL
	}
	return u.String(), nil
}

func validHost(host string) bool {
	if host == "" || strings.ContainsAny(host, " \t") {
		return false
	}
	if host == "localhost" || net.ParseIP(host) != nil {
		return true
	}
	i := strings.LastIndex(host, ".")
	return i > 0 && i < len(host)-1
}

// ExtractDomain returns the host of raw without a leading "www.".
// Unparseable input is returned unchanged.
func ExtractDomain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// FaviconURL points at Google's favicon service for the URL's domain.
func FaviconURL(raw string, size int) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return ""
	}
	if size <= 0 {
		size = 64
	}
	q := url.Values{"domain": {u.Hostname()}, "sz": {strconv.Itoa(size)}}
	return "https://www.google.com/s2/favicons?" + q.Encode()
}
