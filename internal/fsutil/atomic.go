package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// ErrCrossDevice is returned when a hard link target lives on a different
// filesystem. Falling back to a copy would silently break the shared-inode
// contract, so the caller gets a dedicated error instead.
var ErrCrossDevice = errors.New("FS_CROSS_DEVICE: link source and target are on different filesystems")

// AtomicWrite writes data to path using a tmp+rename strategy.
// If rename fails, the tmp file is cleaned up.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Install streams content to dest without ever exposing a partial file.
// The temporary file lives in dest's directory so the final rename is a
// single metadata operation on one filesystem. A process still executing
// the old file keeps its open descriptor across the rename, which is what
// makes overwriting a running binary safe. An existing dest is always
// replaced.
func Install(content io.Reader, dest string, perm os.FileMode) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("FS_TEMP: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		_ = os.Remove(tmpName)
	}
	if _, err := io.Copy(tmp, content); err != nil {
		cleanup()
		return fmt.Errorf("FS_WRITE: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("FS_CHMOD: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("FS_WRITE: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("FS_RENAME: %w", err)
	}
	return nil
}

// Hardlink replaces dst with a hard link to src. Both paths must be on the
// same filesystem; a cross-device link reports ErrCrossDevice.
func Hardlink(src, dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("FS_UNLINK: %w", err)
	}
	if err := os.Link(src, dst); err != nil {
		var linkErr *os.LinkError
		if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
			return fmt.Errorf("%w: %s -> %s", ErrCrossDevice, dst, src)
		}
		return fmt.Errorf("FS_LINK: %w", err)
	}
	return nil
}

// EnsureDir creates dir and its parents. An existing directory is never an
// error.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
