// Package gfile models a discovered file relative to an endpoint root.
// The relative path, with canonical separators, is the durable identity
// used by downstream processing.
package gfile

import (
	"fmt"
	"strings"
)

// PathOutsideRootError indicates a file path that is not a proper
// descendant of the root. This signals an integration bug in the caller,
// not user misconfiguration.
type PathOutsideRootError struct {
	Root string
	Path string
}

func (e *PathOutsideRootError) Error() string {
	return fmt.Sprintf("path %q is outside root %q", e.Path, e.Root)
}

// GenericFile is one discovered file. Immutable; scoped to a single
// processing pass.
type GenericFile struct {
	// AbsolutePath is the full path as seen on the filesystem.
	AbsolutePath string

	// RelativePath is the path relative to the endpoint root, using "/"
	// separators and no leading separator.
	RelativePath string

	// EndpointPath is the root path as configured, for display and
	// identity purposes.
	EndpointPath string
}

// New builds a GenericFile for a file discovered beneath root.
func New(root, absolutePath string) (*GenericFile, error) {
	rel, err := Relative(root, absolutePath)
	if err != nil {
		return nil, err
	}
	return &GenericFile{
		AbsolutePath: absolutePath,
		RelativePath: rel,
		EndpointPath: root,
	}, nil
}

// Relative computes filePath relative to root. Both paths are compared
// with canonical "/" separators; the root's trailing separator, if any,
// is ignored. A path equal to the root, or outside it, fails with
// *PathOutsideRootError.
func Relative(root, filePath string) (string, error) {
	r := canonical(root)
	p := canonical(filePath)

	if r != "/" {
		r = strings.TrimRight(r, "/")
	}

	if !strings.HasPrefix(p, r) {
		return "", &PathOutsideRootError{Root: root, Path: filePath}
	}

	rel := p[len(r):]
	if r == "/" {
		rel = p[1:]
	} else {
		if !strings.HasPrefix(rel, "/") {
			// Prefix match ended mid-segment, e.g. root "/a/b" and
			// path "/a/bc".
			return "", &PathOutsideRootError{Root: root, Path: filePath}
		}
		rel = strings.TrimLeft(rel, "/")
	}

	if rel == "" {
		return "", &PathOutsideRootError{Root: root, Path: filePath}
	}
	return rel, nil
}

func canonical(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
