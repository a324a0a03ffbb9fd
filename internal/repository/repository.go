// Package repository provides the content repository artisync reads
// declarations from.
//
// Paths are slash-rooted and slash-separated ("/project/a.extension")
// regardless of the host operating system.
package repository

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned when a resource does not exist.
var ErrNotFound = errors.New("resource not found")

// Resource is one declaration file.
type Resource struct {
	Path    string
	Content []byte
}

// Filter selects resources by path. A nil Filter selects every resource.
type Filter func(path string) bool

func (f Filter) match(p string) bool {
	return f == nil || f(p)
}

// Repository is the read side of the content repository.
type Repository interface {
	// List returns the resources under prefix selected by accept, sorted by
	// path. Content is only read for selected resources. A prefix that does
	// not exist is an error.
	List(ctx context.Context, prefix string, accept Filter) ([]Resource, error)

	// Exists reports whether a resource exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Content returns the bytes at path, or ErrNotFound.
	Content(ctx context.Context, path string) ([]byte, error)
}

// Writer is the write side of the content repository.
type Writer interface {
	Write(ctx context.Context, path string, content []byte) error
	Delete(ctx context.Context, path string) error
}

// ReadWriter combines Repository and Writer.
type ReadWriter interface {
	Repository
	Writer
}

// CleanPath normalizes p to a slash-rooted absolute repository path.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return "", fmt.Errorf("empty repository path")
	}
	// Clean resolves ".." against the root, so a path never escapes it.
	return path.Clean("/" + p), nil
}

// hasPrefix reports whether p lies under the directory prefix.
func hasPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}
