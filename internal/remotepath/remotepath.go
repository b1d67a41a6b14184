// Package remotepath normalizes user-supplied drive paths into the forms the
// Graph API expects. It is a leaf package: pure string functions, no I/O.
package remotepath

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Root is the normalized form of the drive root.
const Root = "/"

// Absolute resolves p into a canonical absolute path. Backslashes are treated
// as separators, empty and "." segments are dropped and ".." removes the
// previous segment (never climbing above the root). The result always starts
// and ends with a slash; the root is "/".
func Absolute(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")

	parts := make([]string, 0, strings.Count(p, "/")+1)

	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, seg)
		}
	}

	if len(parts) == 0 {
		return Root
	}

	return "/" + strings.Join(parts, "/") + "/"
}

// Encode percent-encodes every non-empty segment of p and joins them with
// "/". Leading, trailing and repeated slashes disappear. Segments are
// NFC-normalized first because OneDrive stores names in NFC.
func Encode(p string) string {
	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))

	for _, seg := range segments {
		if seg == "" {
			continue
		}

		out = append(out, escapeSegment(norm.NFC.String(seg)))
	}

	return strings.Join(out, "/")
}

// RequestPath converts p into the path-addressing suffix used after
// /me/drive/root. With query false it returns only the encoded relative path
// ("a/b%20c"). Otherwise the root maps to "/" and other paths to ":/a/b:/";
// isFile drops the trailing ":/" so the suffix addresses the item itself
// (the root file form is the empty suffix).
func RequestPath(p string, query, isFile bool) string {
	trimmed := strings.Trim(Absolute(p), "/")

	// Callers may pass paths copied from URLs; decode before re-encoding so
	// escapes are not doubled.
	if decoded, err := url.PathUnescape(trimmed); err == nil {
		trimmed = decoded
	}

	encoded := Encode(trimmed)
	if !query {
		return encoded
	}

	if encoded == "" {
		if isFile {
			return ""
		}

		return Root
	}

	if isFile {
		return ":/" + encoded
	}

	return ":/" + encoded + ":/"
}

// Join appends name to the directory dir and returns the normalized
// absolute path of the result (without trailing slash for non-root paths).
func Join(dir, name string) string {
	abs := Absolute(dir + "/" + name)
	if abs == Root {
		return Root
	}

	return strings.TrimSuffix(abs, "/")
}

// escapeSegment encodes everything except RFC 3986 unreserved characters,
// using %20 for spaces.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
