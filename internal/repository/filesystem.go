package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSystem is a repository rooted at a directory on disk.
type FileSystem struct {
	root string
}

// NewFileSystem creates a repository rooted at dir. The directory must exist.
func NewFileSystem(dir string) (*FileSystem, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("repository root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository root %s: not a directory", abs)
	}
	return &FileSystem{root: abs}, nil
}

// Root returns the absolute directory backing the repository.
func (f *FileSystem) Root() string {
	return f.root
}

func (f *FileSystem) hostPath(p string) (string, string, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(f.root, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}

// List walks the directory under prefix and returns every regular file
// selected by accept, sorted by path. Hidden files and directories are
// skipped.
func (f *FileSystem) List(ctx context.Context, prefix string, accept Filter) ([]Resource, error) {
	_, dir, err := f.hostPath(prefix)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist) && dir == f.root:
		return nil, fmt.Errorf("list %s: repository root missing: %w", prefix, err)
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("list %s: directory missing: %w", prefix, err)
	case err != nil:
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	case !info.IsDir():
		return nil, fmt.Errorf("list %s: not a directory", prefix)
	}

	var out []Resource
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		p := "/" + filepath.ToSlash(rel)
		if !accept.match(p) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out = append(out, Resource{Path: p, Content: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Exists reports whether a regular file exists at path.
func (f *FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	_, host, err := f.hostPath(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(host)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", p, err)
	}
	return info.Mode().IsRegular(), nil
}

// Content returns the bytes of the file at path.
func (f *FileSystem) Content(ctx context.Context, p string) ([]byte, error) {
	cleaned, host, err := f.hostPath(p)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(host)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", cleaned, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("content %s: %w", cleaned, err)
	}
	return content, nil
}

// Write creates or replaces the file at path, creating parent directories.
func (f *FileSystem) Write(ctx context.Context, p string, content []byte) error {
	cleaned, host, err := f.hostPath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(host), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", cleaned, err)
	}
	if err := os.WriteFile(host, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", cleaned, err)
	}
	return nil
}

// Delete removes the file at path. Deleting a missing file is a no-op.
func (f *FileSystem) Delete(ctx context.Context, p string) error {
	cleaned, host, err := f.hostPath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(host); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", cleaned, err)
	}
	return nil
}
