// Package fsutil holds low-level filesystem helpers used by the nar
// package: atomic temp-file writes and a large-file mmap read path.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic calls write with a handle to a temp file created alongside
// destPath (so the final rename is same-filesystem), then renames the temp
// file onto destPath on success. On any failure from write, Sync, Close or
// rename, the temp file is removed and the error is returned; destPath is
// never left partially written.
func WriteAtomic(destPath string, write func(*os.File) error) (err error) {
	dir := filepath.Dir(destPath)

	tmp, err := os.CreateTemp(dir, filepath.Base(destPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("fsutil: creating temp file in %s: %w", dir, err)
	}

	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("fsutil: writing %s: %w", tmpPath, err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("fsutil: syncing %s: %w", tmpPath, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("fsutil: closing %s: %w", tmpPath, err)
	}

	if err = os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("fsutil: renaming %s to %s: %w", tmpPath, destPath, err)
	}

	return nil
}
