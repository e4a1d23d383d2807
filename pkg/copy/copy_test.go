package copy

import (
	"os"
	"path/filepath"
	"testing"

	"gitbridge/pkg/api"
	"gitbridge/pkg/util/context"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func read(t *testing.T, root, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	return string(b)
}

func TestCopyFilesPreservingStructure(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, src, "a.txt", "A")
	write(t, src, "sub/b.txt", "B")
	// Pre-existing content at a destination path is replaced, never merged.
	write(t, dst, "a.txt", "stale")

	res, err := Copy(context.Background(), src, dst, Options{
		Mode:              api.CopyModeFiles,
		Files:             []string{"a.txt", "sub/b.txt"},
		PreserveStructure: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesCopied)
	assert.Equal(t, 0, res.FoldersCopied)
	assert.Equal(t, "A", read(t, dst, "a.txt"))
	assert.Equal(t, "B", read(t, dst, "sub/b.txt"))
}

func TestCopyFilesFlattened(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, src, "sub/b.txt", "B")

	_, err := Copy(context.Background(), src, dst, Options{
		Mode:  api.CopyModeFiles,
		Files: []string{"sub/b.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, "B", read(t, dst, "b.txt"))
	_, statErr := os.Stat(filepath.Join(dst, "sub"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCopyFolderReplacesExistingTree(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, src, "docs/one.md", "one")
	write(t, src, "docs/deep/two.md", "two")
	// The destination folder holds a file the source lacks; it must not survive.
	write(t, dst, "docs/orphan.md", "orphan")

	res, err := Copy(context.Background(), src, dst, Options{
		Mode:              api.CopyModeFolders,
		Folders:           []string{"docs"},
		PreserveStructure: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FoldersCopied)
	assert.Equal(t, 2, res.FilesCopied)
	assert.Equal(t, "one", read(t, dst, "docs/one.md"))
	assert.Equal(t, "two", read(t, dst, "docs/deep/two.md"))
	_, statErr := os.Stat(filepath.Join(dst, "docs/orphan.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCopyMixed(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, src, "a.txt", "A")
	write(t, src, "docs/one.md", "one")

	res, err := Copy(context.Background(), src, dst, Options{
		Mode:              api.CopyModeMixed,
		Files:             []string{"a.txt"},
		Folders:           []string{"docs"},
		PreserveStructure: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesCopied)
	assert.Equal(t, 1, res.FoldersCopied)
}

func TestCopyFullTreeSkipsGitDir(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, src, "a.txt", "A")
	write(t, src, "sub/b.txt", "B")
	write(t, src, ".git/HEAD", "ref: refs/heads/main")

	res, err := Copy(context.Background(), src, dst, Options{Mode: api.CopyModeMixed})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesCopied)
	assert.Equal(t, "A", read(t, dst, "a.txt"))
	assert.Equal(t, "B", read(t, dst, "sub/b.txt"))
	_, statErr := os.Stat(filepath.Join(dst, ".git"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCopyMissingSource(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()

	_, err := Copy(context.Background(), src, dst, Options{
		Mode:  api.CopyModeFiles,
		Files: []string{"missing.txt"},
	})
	require.Error(t, err)
	assert.IsType(t, api.NotFoundError{}, err)
}

func TestCopyRejectsEscapingPath(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, src, "a.txt", "A")

	_, err := Copy(context.Background(), src, dst, Options{
		Mode:              api.CopyModeFiles,
		Files:             []string{"../outside.txt"},
		PreserveStructure: true,
	})
	require.Error(t, err)
	assert.IsType(t, api.ValidationError{}, err)
}
