//go:build !unix

package fsutil

import (
	"io"
	"os"
)

// copyViaMmap has no portable equivalent off unix; CopyFileContents always
// falls back to the buffered path on these platforms.
func copyViaMmap(w io.Writer, f *os.File, size uint64) (n uint64, ok bool, err error) {
	return 0, false, nil
}
