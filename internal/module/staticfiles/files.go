package staticfiles

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/simp-lee/assetsrv/internal/domain"
)

var (
	// ErrTraversal means the requested name tried to leave its root.
	ErrTraversal = errors.New("path escapes asset root")
	// errNoFile covers empty names and directories, which are never served.
	errNoFile = errors.New("not a regular file")
)

// FixedFile is a single asset served from a fixed location.
type FixedFile struct {
	Root string
	Name string
}

// NewFixedFile splits p, resolved against baseDir, into its directory and
// file name.
func NewFixedFile(baseDir, p string) FixedFile {
	full := resolvePath(baseDir, p)
	return FixedFile{Root: filepath.Dir(full), Name: filepath.Base(full)}
}

// cleanAssetPath turns a request path into a slash-separated name relative
// to an asset root. Any ".." element is rejected outright rather than
// cleaned away, so "a/../b" is refused even though it stays inside the root.
func cleanAssetPath(name string) (string, error) {
	if strings.IndexByte(name, 0) >= 0 {
		return "", ErrTraversal
	}

	elems := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
	for _, elem := range elems {
		if elem == ".." {
			return "", ErrTraversal
		}
	}

	clean := path.Clean(strings.TrimLeft(name, "/"))
	if clean == "." || clean == "" {
		return "", errNoFile
	}
	return clean, nil
}

// openAsset opens name beneath root. The lookup goes through os.Root, which
// also refuses symlinks that resolve outside root. Directories are reported
// as errNoFile.
func openAsset(root, name string) (*os.File, fs.FileInfo, error) {
	rel, err := cleanAssetPath(name)
	if err != nil {
		return nil, nil, err
	}

	r, err := os.OpenRoot(root)
	if err != nil {
		return nil, nil, fmt.Errorf("open root %s: %w", root, err)
	}
	defer r.Close()

	f, err := r.Open(filepath.FromSlash(rel))
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, errNoFile
	}
	return f, info, nil
}

// classifyOpenError maps an openAsset error to a request error. Missing
// files, directories and non-directory path components are not found;
// everything else the sandbox refused to open is forbidden.
func classifyOpenError(err error) *domain.AppError {
	switch {
	case errors.Is(err, ErrTraversal):
		return domain.NewAppError(domain.CodeForbidden, "forbidden", err)
	case errors.Is(err, errNoFile),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, syscall.ENOTDIR):
		return domain.NewAppError(domain.CodeNotFound, "file not found", err)
	default:
		return domain.NewAppError(domain.CodeForbidden, "forbidden", err)
	}
}
