package util

import (
	"net/url"
	"strings"
)

// IsAbsoluteHTTPURL reports whether raw is an absolute http or https URL
// with a host. Header-injection characters are rejected outright.
func IsAbsoluteHTTPURL(raw string) bool {
	if raw == "" || strings.ContainsAny(raw, "\r\n\\") {
		return false
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	// Reject javascript:, data:, and other non-http(s) schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	return parsed.Host != ""
}
