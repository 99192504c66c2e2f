// Package atomicfile replaces file contents atomically: readers observe
// either the previous contents or the new contents in full, never a partial
// write. It pairs with the lock package when writers also need mutual
// exclusion; the atomicity here protects readers that do not take locks.
package atomicfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrWriteFailed is returned when any step of the atomic replacement fails.
var ErrWriteFailed = errors.New("write operation failed")

// writeFileSync writes data to path and calls Sync() before closing the
// file, ensuring the data is flushed from the OS page-cache to stable
// storage before any subsequent rename. This prevents data loss on
// unexpected power-off.
func writeFileSync(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}

// WriteFile writes data to path atomically: the bytes go to a temporary file
// in the same directory, are synced to stable storage, and the temporary
// file is renamed over path. The temporary file is removed when any step
// fails.
//
// The temporary file lives next to path because rename is only atomic within
// a filesystem.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temporary file: %v", ErrWriteFailed, err)
	}
	tmpPath := tmp.Name()
	tmp.Close() //nolint:errcheck

	if err := writeFileSync(tmpPath, data, perm); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("%w: write %s: %v", ErrWriteFailed, path, err)
	}

	// CreateTemp always uses 0600; apply the requested mode before the
	// rename makes the file visible.
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("%w: chmod %s: %v", ErrWriteFailed, path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("%w: rename to %s: %v", ErrWriteFailed, path, err)
	}
	return nil
}
