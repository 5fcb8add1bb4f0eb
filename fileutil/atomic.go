package fileutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteFile writes data to path through a temporary sibling file that is renamed
// into place once complete.
func WriteFile(path string, data []byte) error {
	return Write(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Write is WriteFile for streamed content. fill receives a buffered writer over the
// temporary file; if it fails, the temporary file is removed and path is untouched.
func Write(path string, fill func(w io.Writer) error) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}
	dir, err := EnsureParent(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriter(tmp)
	fillErr := fill(bw)
	if fillErr == nil {
		fillErr = bw.Flush()
	}
	closeErr := tmp.Close()
	if fillErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, fillErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, closeErr)
	}
	return Commit(tmpPath, path)
}

// TempSibling reserves an empty temporary file next to path, for writers (such as a
// database driver) that need a real path rather than an io.Writer. The caller fills
// it and then calls Commit, or removes it on failure.
func TempSibling(path string) (string, error) {
	dir, err := EnsureParent(path)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// Commit renames a finished temporary file over dst.
func Commit(tmpPath, dst string) error {
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	return nil
}

// EnsureParent creates the directory that will hold path and returns it.
func EnsureParent(path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
