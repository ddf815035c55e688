package fileutils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/blueboxgroup/ursula/internal/envs"
)

// Root maps absolute host paths below a filesystem root, so that modules can
// be pointed at a chroot or a test directory.
type Root string

// DefaultRoot returns the root configured through URSULA_FS_ROOT.
func DefaultRoot() Root { return Root(envs.FSRoot) }

// Path returns the location of the host path p below the root.
func (r Root) Path(p string) string {
	if r == "" || r == "/" {
		return filepath.Clean("/" + p)
	}
	return filepath.Join(string(r), p)
}

// Exists reports whether the host path exists below the root.
func (r Root) Exists(p string) bool {
	_, err := os.Lstat(r.Path(p))
	return err == nil
}

// ReadFile reads the host path below the root. A missing file yields nil content
// and no error.
func (r Root) ReadFile(p string) ([]byte, error) {
	b, err := os.ReadFile(r.Path(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

// WriteFile writes data to the host path below the root, creating parent directories.
func (r Root) WriteFile(p string, data []byte, perm os.FileMode) error {
	if err := CreateDirectory(filepath.Dir(r.Path(p))); err != nil {
		return err
	}
	return os.WriteFile(r.Path(p), data, perm)
}

// Remove deletes the host path below the root. It reports whether a file was removed.
func (r Root) Remove(p string) (bool, error) {
	err := os.Remove(r.Path(p))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func DirectoryExists(dir string) bool {
	_, err := os.Stat(dir)
	return err == nil
}

func CreateDirectory(dir string) error {
	if DirectoryExists(dir) {
		return nil
	}
	return os.MkdirAll(dir, os.ModePerm)
}
