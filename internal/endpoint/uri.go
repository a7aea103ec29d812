package endpoint

import (
	"fmt"
	"net/url"
	"strings"
)

// parsedURI is the raw split of an endpoint URI before normalization
// and binding.
type parsedURI struct {
	Scheme       string
	PathPart     string
	HasAuthority bool
	Options      map[string]string
}

// parseURI splits scheme:[//]path[?opt=val&...] into its parts.
//
// The "//" after the scheme is an authority marker, not part of the path,
// and does not make the path absolute: "scheme://a/b" and "scheme:a/b" are
// the same relative root, while "scheme:/a/b" is absolute. This asymmetry
// is a fixed contract; several equivalence cases depend on it.
func parseURI(raw string) (parsedURI, error) {
	var p parsedURI

	colon := strings.IndexByte(raw, ':')
	if colon <= 0 {
		return p, fmt.Errorf("missing scheme in %q", raw)
	}
	p.Scheme = raw[:colon]
	rest := raw[colon+1:]

	if q := strings.IndexByte(rest, '?'); q >= 0 {
		opts, err := parseQuery(rest[q+1:])
		if err != nil {
			return p, err
		}
		p.Options = opts
		rest = rest[:q]
	} else {
		p.Options = map[string]string{}
	}

	if strings.HasPrefix(rest, "//") {
		p.HasAuthority = true
		rest = rest[2:]
	}
	p.PathPart = rest

	return p, nil
}

// parseQuery parses the option portion into a single-valued map.
// Duplicate keys are allowed on the wire; last wins.
func parseQuery(query string) (map[string]string, error) {
	opts := map[string]string{}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("malformed option key %q: %w", pair, err)
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("malformed option value %q: %w", pair, err)
		}
		if key == "" {
			return nil, fmt.Errorf("empty option key in %q", pair)
		}
		opts[key] = value
	}
	return opts, nil
}
