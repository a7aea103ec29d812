// Package endpoint resolves file endpoint URIs of the form
// scheme:[//]path[?opt=val&...] into validated, immutable configurations.
package endpoint

import (
	"fmt"
	"os"
)

// Endpoint is a resolved file endpoint: a canonical root path plus bound
// options. Immutable after Resolve; safe to share across consumers.
type Endpoint struct {
	Scheme     string
	RootPath   string
	IsAbsolute bool
	Config     Config
}

// String returns a display form of the endpoint address.
func (e *Endpoint) String() string {
	if e.IsAbsolute {
		return e.Scheme + ":" + e.RootPath
	}
	return e.Scheme + "://" + e.RootPath
}

// Resolve parses, normalizes, binds, and cross-validates an endpoint URI.
// Any failure is returned as a *ResolveError wrapping the typed cause.
func Resolve(uri string) (*Endpoint, error) {
	return ResolveWithDefaults(uri, nil)
}

// ResolveWithDefaults is Resolve with an extra layer of option defaults,
// applied for keys absent from the URI. Default keys pass through the same
// schema, so an unknown default fails exactly like an unknown URI option.
func ResolveWithDefaults(uri string, defaults map[string]string) (*Endpoint, error) {
	parsed, err := parseURI(uri)
	if err != nil {
		return nil, &ResolveError{URI: uri, Err: err}
	}

	for key, value := range defaults {
		if _, set := parsed.Options[key]; !set {
			parsed.Options[key] = value
		}
	}

	root, isAbsolute := NormalizePath(parsed.PathPart, parsed.HasAuthority)

	cfg, err := Bind(parsed.Options)
	if err != nil {
		return nil, &ResolveError{URI: uri, Err: err}
	}

	ep, err := build(parsed.Scheme, root, isAbsolute, cfg)
	if err != nil {
		return nil, &ResolveError{URI: uri, Err: err}
	}
	return ep, nil
}

// build assembles the endpoint and performs cross-field validation.
// This is the only place resolution touches the filesystem.
func build(scheme, root string, isAbsolute bool, cfg Config) (*Endpoint, error) {
	if root == "" {
		return nil, &ConfigurationError{Detail: "empty root path"}
	}

	if cfg.Charset != "" && !SupportedCharset(cfg.Charset) {
		return nil, &ConfigurationError{
			Detail: fmt.Sprintf("unsupported charset %q", cfg.Charset),
		}
	}

	if cfg.AutoCreate {
		// Best effort: a failure here surfaces through the existence
		// check below or at poll time.
		_ = os.MkdirAll(root, 0o755)
	}

	if cfg.StartingDirectoryMustExist {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return nil, &ConfigurationError{
				Detail: fmt.Sprintf("starting directory %q does not exist", root),
			}
		}
	}

	return &Endpoint{
		Scheme:     scheme,
		RootPath:   root,
		IsAbsolute: isAbsolute,
		Config:     cfg,
	}, nil
}
