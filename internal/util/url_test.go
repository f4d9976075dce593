package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAbsoluteHTTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{name: "https url", url: "https://app.example.com/callback", expected: true},
		{name: "http url with port", url: "http://localhost:3000/cb?x=1", expected: true},
		{name: "empty", url: "", expected: false},
		{name: "relative path", url: "/callback", expected: false},
		{name: "protocol relative", url: "//evil.com/cb", expected: false},
		{name: "javascript scheme", url: "javascript:alert(1)", expected: false},
		{name: "ftp scheme", url: "ftp://files.example.com", expected: false},
		{name: "missing host", url: "https:///path", expected: false},
		{name: "header injection", url: "https://a.com/\r\nSet-Cookie: x", expected: false},
		{name: "backslash", url: "https://a.com\\@evil.com", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAbsoluteHTTPURL(tt.url))
		})
	}
}
