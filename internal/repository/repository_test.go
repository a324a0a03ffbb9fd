package repository

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a/b.extension", "/a/b.extension"},
		{"/a//b.extension", "/a/b.extension"},
		{"/a/../b.job", "/b.job"},
		{"../../etc/passwd", "/etc/passwd"},
		{`a\b.listener`, "/a/b.listener"},
		{"/", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanPath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := CleanPath("")
	require.Error(t, err)
}

// exercise runs the shared behavior checks against any ReadWriter.
func exercise(t *testing.T, repo ReadWriter) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, repo.Write(ctx, "/p/b.extension", []byte("b")))
	require.NoError(t, repo.Write(ctx, "/p/a.extension", []byte("a")))
	require.NoError(t, repo.Write(ctx, "/q/c.job", []byte("c")))
	require.NoError(t, repo.Write(ctx, "/pp/d.job", []byte("d")))

	all, err := repo.List(ctx, "/", nil)
	require.NoError(t, err)
	var paths []string
	for _, r := range all {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"/p/a.extension", "/p/b.extension", "/pp/d.job", "/q/c.job"}, paths)

	under, err := repo.List(ctx, "/p", nil)
	require.NoError(t, err)
	require.Len(t, under, 2, "prefix matches whole path segments only")
	assert.Equal(t, []byte("a"), under[0].Content)

	jobs, err := repo.List(ctx, "/", func(p string) bool { return strings.HasSuffix(p, ".job") })
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "/pp/d.job", jobs[0].Path)
	assert.Equal(t, []byte("c"), jobs[1].Content)

	_, err = repo.List(ctx, "/missing", nil)
	assert.Error(t, err, "a missing prefix is not an empty listing")

	_, err = repo.List(ctx, "/q/c.job", nil)
	assert.Error(t, err, "a file is not a prefix")

	ok, err := repo.Exists(ctx, "/q/c.job")
	require.NoError(t, err)
	assert.True(t, ok)

	content, err := repo.Content(ctx, "q/c.job")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), content)

	require.NoError(t, repo.Delete(ctx, "/q/c.job"))
	require.NoError(t, repo.Delete(ctx, "/q/c.job"), "deleting twice is a no-op")

	ok, err = repo.Exists(ctx, "/q/c.job")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Content(ctx, "/q/c.job")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestMemory_Unreachable(t *testing.T) {
	repo := NewMemory()
	repo.Err = errors.New("connection refused")

	_, err := repo.List(context.Background(), "/", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFileSystem(t *testing.T) {
	repo, err := NewFileSystem(t.TempDir())
	require.NoError(t, err)
	exercise(t, repo)
}

func TestFileSystem_SkipsHidden(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "x.job"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.job"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visible.job"), []byte("v"), 0o644))

	repo, err := NewFileSystem(dir)
	require.NoError(t, err)

	all, err := repo.List(context.Background(), "/", nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "/visible.job", all[0].Path)
}

func TestFileSystem_MissingPrefix(t *testing.T) {
	repo, err := NewFileSystem(t.TempDir())
	require.NoError(t, err)

	_, err = repo.List(context.Background(), "/nope", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "directory missing")
}

func TestFileSystem_EmptyPrefixDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))
	repo, err := NewFileSystem(dir)
	require.NoError(t, err)

	all, err := repo.List(context.Background(), "/empty", nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileSystem_SkipsReadOfRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.job"), []byte("a"), 0o644))
	// Unreadable content must not matter when the path is rejected.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "locked.bin"), []byte("x"), 0o000))

	repo, err := NewFileSystem(dir)
	require.NoError(t, err)

	all, err := repo.List(context.Background(), "/", func(p string) bool { return strings.HasSuffix(p, ".job") })
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "/a.job", all[0].Path)
}

func TestMemory_MissingPrefix(t *testing.T) {
	repo := NewMemory()
	require.NoError(t, repo.Write(context.Background(), "/p/a.job", []byte("a")))

	_, err := repo.List(context.Background(), "/q", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	all, err := repo.List(context.Background(), "/", nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFileSystem_RootRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "repo")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	repo, err := NewFileSystem(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	_, err = repo.List(context.Background(), "/", nil)
	require.Error(t, err, "a vanished root is an infrastructure failure")
}

func TestNewFileSystem_Errors(t *testing.T) {
	_, err := NewFileSystem(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewFileSystem(file)
	require.Error(t, err)
}
