// Package copy places a selected file subset from a source working directory
// into a target working directory.
package copy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gitbridge/pkg/api"
	"gitbridge/pkg/util/context"

	"github.com/pkg/errors"
)

// Options selects what is copied and where it lands.
type Options struct {
	Mode    api.CopyMode
	Files   []string
	Folders []string

	// PreserveStructure keeps each entry at its source-relative path under
	// the destination. When false, entries are flattened to their base name.
	PreserveStructure bool
}

// Result counts what was copied.
type Result struct {
	FilesCopied   int
	FoldersCopied int
}

// Copy copies the selected entries from srcRoot into dstRoot. Patterns may be
// absolute or relative to srcRoot. A pre-existing file or directory at a
// destination path is deleted first and then replaced, never merged. With no
// patterns configured, the entire source tree is copied (excluding version
// control metadata).
func Copy(ctx context.Context, srcRoot, dstRoot string, opts Options) (Result, error) {
	var res Result

	files, folders := opts.Files, opts.Folders
	switch opts.Mode {
	case api.CopyModeFiles:
		folders = nil
	case api.CopyModeFolders:
		files = nil
	}

	if len(files) == 0 && len(folders) == 0 {
		return copyFullTree(ctx, srcRoot, dstRoot)
	}

	for _, f := range files {
		src := resolve(f, srcRoot)
		dst, err := destination(f, srcRoot, dstRoot, opts.PreserveStructure)
		if err != nil {
			return res, err
		}
		info, err := os.Stat(src)
		if err != nil {
			return res, api.NotFoundError{What: fmt.Sprintf("source file %s", f)}
		}
		if info.IsDir() {
			return res, api.ValidationError{Field: "files", Reason: fmt.Sprintf("%s is a directory", f)}
		}
		if err := replaceFile(src, dst); err != nil {
			return res, err
		}
		res.FilesCopied++
	}

	for _, d := range folders {
		src := resolve(d, srcRoot)
		dst, err := destination(d, srcRoot, dstRoot, opts.PreserveStructure)
		if err != nil {
			return res, err
		}
		info, err := os.Stat(src)
		if err != nil {
			return res, api.NotFoundError{What: fmt.Sprintf("source folder %s", d)}
		}
		if !info.IsDir() {
			return res, api.ValidationError{Field: "folders", Reason: fmt.Sprintf("%s is not a directory", d)}
		}
		n, err := replaceTree(src, dst)
		if err != nil {
			return res, err
		}
		res.FoldersCopied++
		res.FilesCopied += n
	}

	ctx.Logger().Infof("copied %d files and %d folders", res.FilesCopied, res.FoldersCopied)
	return res, nil
}

func copyFullTree(ctx context.Context, srcRoot, dstRoot string) (Result, error) {
	var res Result
	entries, err := os.ReadDir(srcRoot)
	if err != nil {
		return res, errors.Wrapf(err, "cannot read source directory %s", srcRoot)
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		src := filepath.Join(srcRoot, e.Name())
		dst := filepath.Join(dstRoot, e.Name())
		if e.IsDir() {
			n, err := replaceTree(src, dst)
			if err != nil {
				return res, err
			}
			res.FoldersCopied++
			res.FilesCopied += n
		} else {
			if err := replaceFile(src, dst); err != nil {
				return res, err
			}
			res.FilesCopied++
		}
	}
	ctx.Logger().Infof("copied full source tree: %d files, %d folders", res.FilesCopied, res.FoldersCopied)
	return res, nil
}

func resolve(p, root string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// destination computes where an entry lands under dstRoot, refusing paths
// that would escape it.
func destination(p, srcRoot, dstRoot string, preserve bool) (string, error) {
	var rel string
	if preserve {
		abs := resolve(p, srcRoot)
		r, err := filepath.Rel(srcRoot, abs)
		if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return "", api.ValidationError{Field: "files", Reason: fmt.Sprintf("%s escapes the source directory", p)}
		}
		rel = r
	} else {
		rel = filepath.Base(p)
	}
	return filepath.Join(dstRoot, rel), nil
}

// replaceFile copies a single file, deleting any entry already at dst.
func replaceFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, "cannot create directory for %s", dst)
	}
	if err := os.RemoveAll(dst); err != nil {
		return errors.Wrapf(err, "cannot remove existing %s", dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "cannot copy %s", src)
	}
	return out.Close()
}

// replaceTree copies a whole directory tree, deleting any entry already at
// dst. Returns the number of files copied.
func replaceTree(src, dst string) (int, error) {
	if err := os.RemoveAll(dst); err != nil {
		return 0, errors.Wrapf(err, "cannot remove existing %s", dst)
	}
	count := 0
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" && rel != "." {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), info.Mode().Perm())
		}
		if err := replaceFile(path, filepath.Join(dst, rel)); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}
