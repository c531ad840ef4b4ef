//go:build unix

package fsutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// copyViaMmap maps f's contents and writes them to w. A size of 0 copies
// nothing and reports ok. ok is false when the mapping itself could not be
// established (e.g. the file is not mmap-able such as a pipe substituted in
// tests), signalling the caller to fall back to a buffered copy instead of
// treating it as fatal.
func copyViaMmap(w io.Writer, f *os.File, size uint64) (n uint64, ok bool, err error) {
	if size == 0 {
		return 0, true, nil
	}

	//nolint:gosec // size is an on-disk file length, always representable
	data, mmapErr := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if mmapErr != nil {
		slog.Debug("mmap read failed, falling back to buffered copy", "path", f.Name(), "size", size, "error", mmapErr)

		return 0, false, nil
	}

	defer func() {
		if unmapErr := unix.Munmap(data); unmapErr != nil && err == nil {
			err = fmt.Errorf("fsutil: munmap: %w", unmapErr)
		}
	}()

	written, writeErr := w.Write(data)
	if writeErr != nil {
		return uint64(written), true, fmt.Errorf("fsutil: writing mapped file contents: %w", writeErr)
	}

	return uint64(written), true, nil
}
