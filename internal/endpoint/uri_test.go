package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		input         string
		wantScheme    string
		wantPath      string
		wantAuthority bool
		wantOptions   map[string]string
	}{
		{
			name:          "authority form",
			input:         "file://a/b/c",
			wantScheme:    "file",
			wantPath:      "a/b/c",
			wantAuthority: true,
			wantOptions:   map[string]string{},
		},
		{
			name:        "plain form",
			input:       "file:a/b/c",
			wantScheme:  "file",
			wantPath:    "a/b/c",
			wantOptions: map[string]string{},
		},
		{
			name:        "single leading slash stays in the path",
			input:       "file:/a/b/c",
			wantScheme:  "file",
			wantPath:    "/a/b/c",
			wantOptions: map[string]string{},
		},
		{
			name:          "triple slash keeps one in the path",
			input:         "file:///a/b/c",
			wantScheme:    "file",
			wantPath:      "/a/b/c",
			wantAuthority: true,
			wantOptions:   map[string]string{},
		},
		{
			name:          "options parsed from the query",
			input:         "file://in?delete=true&delay=10",
			wantScheme:    "file",
			wantPath:      "in",
			wantAuthority: true,
			wantOptions:   map[string]string{"delete": "true", "delay": "10"},
		},
		{
			name:        "escaped values unescape",
			input:       "file:in?move=arch%20ive",
			wantScheme:  "file",
			wantPath:    "in",
			wantOptions: map[string]string{"move": "arch ive"},
		},
		{
			name:        "duplicate keys last wins",
			input:       "file:in?delay=10&delay=20",
			wantScheme:  "file",
			wantPath:    "in",
			wantOptions: map[string]string{"delay": "20"},
		},
		{
			name:        "valueless option binds empty string",
			input:       "file:in?charset",
			wantScheme:  "file",
			wantPath:    "in",
			wantOptions: map[string]string{"charset": ""},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseURI(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScheme, got.Scheme)
			assert.Equal(t, tt.wantPath, got.PathPart)
			assert.Equal(t, tt.wantAuthority, got.HasAuthority)
			assert.Equal(t, tt.wantOptions, got.Options)
		})
	}
}

func TestParseURIErrors(t *testing.T) {
	t.Parallel()

	tests := []string{
		"no-scheme-here",
		":path",
		"file:in?%zz=1",
		"file:in?a=%zz",
		"file:in?=value",
	}
	for _, input := range tests {
		input := input
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			_, err := parseURI(input)
			assert.Error(t, err)
		})
	}
}
