package endpoint

import "strings"

// NormalizePath canonicalizes the path portion of an endpoint URI into a
// root path plus an absolute/relative marker.
//
// Rules, in priority order:
//  1. An empty path or a bare separator is the root separator, absolute.
//  2. A leading separator means absolute; repeated leading separators
//     collapse to exactly one.
//  3. Otherwise the path is relative to the caller's working context,
//     whether or not an authority marker was present.
//  4. A trailing separator is stripped unless the whole path is "/".
//  5. Drive-letter forms ("C:/...") are preserved verbatim inside the
//     path string.
//
// Malformed input never fails here; a degenerate path is left for the
// factory's cross-field validation to reject.
func NormalizePath(pathPart string, hasAuthority bool) (root string, isAbsolute bool) {
	_ = hasAuthority // the marker carries no path meaning, see parseURI

	p := strings.ReplaceAll(pathPart, `\`, "/")

	if p == "" || allSeparators(p) {
		return "/", true
	}

	if strings.HasPrefix(p, "/") {
		isAbsolute = true
		p = "/" + strings.TrimLeft(p, "/")
	}

	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}

	return p, isAbsolute
}

func allSeparators(p string) bool {
	return strings.Trim(p, "/") == ""
}
