package remotepath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbsolute(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: "/"},
		{name: "root", in: "/", want: "/"},
		{name: "simple", in: "a/b", want: "/a/b/"},
		{name: "repeated slashes", in: "//a///b//", want: "/a/b/"},
		{name: "backslashes", in: `a\b\c`, want: "/a/b/c/"},
		{name: "dot segments", in: "/a/./b/.", want: "/a/b/"},
		{name: "dotdot", in: "/a/b/../c", want: "/a/c/"},
		{name: "dotdot above root", in: "/../../a", want: "/a/"},
		{name: "only dotdot", in: "../..", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Absolute(tt.in))
		})
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "a/b%20c/d%23e", Encode("/a//b c/d#e/"))
	assert.Equal(t, "100%25%2Bplus", Encode("100%+plus"))
	assert.Equal(t, "", Encode("///"))
	// Unreserved characters pass through untouched.
	assert.Equal(t, "A-z_0.9~", Encode("A-z_0.9~"))
}

func TestEncode_NormalizesToNFC(t *testing.T) {
	// "e" followed by a combining acute accent (NFD) becomes U+00E9.
	assert.Equal(t, "caf%C3%A9", Encode("cafe\u0301"))
}

func TestRequestPath(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		query  bool
		isFile bool
		want   string
	}{
		{name: "root folder", in: "/", query: true, want: "/"},
		{name: "root file", in: "", query: true, isFile: true, want: ""},
		{name: "folder", in: "/docs/reports", query: true, want: ":/docs/reports:/"},
		{name: "file", in: "/docs/a b.txt", query: true, isFile: true, want: ":/docs/a%20b.txt"},
		{name: "no query", in: "/docs/a b.txt", want: "docs/a%20b.txt"},
		{name: "already encoded", in: "/docs/a%20b", query: true, want: ":/docs/a%20b:/"},
		{name: "dotdot", in: "/docs/../pics", query: true, want: ":/pics:/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequestPath(tt.in, tt.query, tt.isFile))
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/docs/a.txt", Join("/docs/", "a.txt"))
	assert.Equal(t, "/a.txt", Join("/", "a.txt"))
	assert.Equal(t, "/", Join("/docs", ".."))
}
