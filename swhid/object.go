package swhid

import (
	"fmt"
	"io"

	"github.com/Mic92/narswh/digest"
)

// mode is a Git tree-entry file mode, rendered without a leading zero
// exactly as Git does (spec.md §4.5).
type mode string

const (
	modeRegular    mode = "100644"
	modeExecutable mode = "100755"
	modeSymlink    mode = "120000"
	modeDirectory  mode = "40000"
)

// blobHeader returns the Git blob object header for size bytes of content:
// "blob " + decimal(size) + NUL.
func blobHeader(size int) []byte {
	return fmt.Appendf(nil, "blob %d\x00", size)
}

// hashBlob computes the 20-byte raw SHA-1 object id of a Git blob wrapping
// content, per spec.md §4.5 and the invariant in §8.7. Used for symlink
// targets, which are always short.
func hashBlob(content []byte) ([]byte, error) {
	header := blobHeader(len(content))

	bundle, err := digest.SumBytes(digest.SHA1, append(header, content...))
	if err != nil {
		return nil, fmt.Errorf("swhid: hashing blob: %w", err)
	}

	return bundle.Raw, nil
}

// hashBlobReader is hashBlob for a regular file's contents: it streams size
// bytes from r through the aggregator instead of buffering them, so a blob
// larger than available RAM still hashes successfully (spec.md §5's "large
// files never materialize in memory" applies equally to SWHID).
func hashBlobReader(r io.Reader, size uint64) ([]byte, error) {
	agg, err := digest.New(digest.SHA1)
	if err != nil {
		return nil, fmt.Errorf("swhid: %w", err)
	}

	//nolint:gosec // size comes from a prior fstat on the same handle
	if _, err := agg.Write(blobHeader(int(size))); err != nil {
		return nil, fmt.Errorf("swhid: hashing blob header: %w", err)
	}

	//nolint:gosec // size comes from a prior fstat on the same handle
	n, err := agg.ReadFrom(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, fmt.Errorf("swhid: hashing blob contents: %w", err)
	}

	if uint64(n) != size { //nolint:gosec // n is bounded by size above
		return nil, fmt.Errorf("%w: file size changed during read: expected %d bytes, read %d", ErrIO, size, n)
	}

	return agg.Sum().Raw, nil
}

// treeEntry is one already-hashed child of a directory, ready to be
// appended to a tree object body in sorted order.
type treeEntry struct {
	mode   mode
	name   string
	oid    []byte // 20 raw SHA-1 bytes
	sortOn string // name, or name+"/" for directories (spec.md §4.5 sort rule)
}

// treeHeader returns the Git tree object header for a body of bodySize
// bytes: "tree " + decimal(bodySize) + NUL.
func treeHeader(bodySize int) []byte {
	return fmt.Appendf(nil, "tree %d\x00", bodySize)
}

// hashTree assembles a tree object body from entries (which must already
// be in the sort order spec.md §4.5 requires) and returns its 20-byte raw
// SHA-1 object id.
func hashTree(entries []treeEntry) ([]byte, error) {
	var body []byte

	for _, e := range entries {
		body = append(body, e.mode...)
		body = append(body, ' ')
		body = append(body, e.name...)
		body = append(body, 0)
		body = append(body, e.oid...)
	}

	header := treeHeader(len(body))

	bundle, err := digest.SumBytes(digest.SHA1, append(header, body...))
	if err != nil {
		return nil, fmt.Errorf("swhid: hashing tree: %w", err)
	}

	return bundle.Raw, nil
}
