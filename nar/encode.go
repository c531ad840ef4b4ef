package nar

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Mic92/narswh/fsnode"
	"github.com/Mic92/narswh/internal/fsutil"
)

// writer wraps the destination io.Writer with the framing helpers every
// node needs, and tracks the running byte offset so a Listing side-channel
// can record where each regular file's contents begin. It holds no
// buffered state of its own: every Write call goes straight through to w,
// so the archive is never materialized in memory, matching spec.md §9's
// "lazy byte generation" requirement.
type writer struct {
	w      io.Writer
	offset uint64
}

func (nw *writer) writeStatic(b []byte) error {
	if _, err := nw.w.Write(b); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	nw.offset += uint64(len(b))

	return nil
}

func (nw *writer) writeString(s string) error {
	return nw.writeStatic(encodeStaticString(s))
}

// writeFileContents streams exactly size bytes from f, followed by zero
// padding to the next 8-byte boundary, and returns the offset at which the
// content bytes began. size must already equal the number of bytes f will
// yield (obtained atomically with opening f). A short copy, or a size
// reported by a second fstat of f after the copy that differs from size,
// is surfaced as ErrIO per spec.md §4.1.
func (nw *writer) writeFileContents(f *os.File, size uint64) (uint64, error) {
	var sizeBuf [8]byte
	sizeLE(sizeBuf[:], size)

	if err := nw.writeStatic(sizeBuf[:]); err != nil {
		return 0, err
	}

	contentOffset := nw.offset

	n, err := fsutil.CopyFileContents(nw.w, f, size)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIO, err)
	}

	if n != size {
		return 0, fmt.Errorf("%w: file size changed during read: expected %d bytes, copied %d", ErrIO, size, n)
	}

	fi, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: fstat %s: %w", ErrIO, f.Name(), err)
	}

	if uint64(fi.Size()) != size { //nolint:gosec // file sizes are always non-negative
		return 0, fmt.Errorf("%w: file size changed during read: expected %d bytes, now %d", ErrIO, size, fi.Size())
	}

	nw.offset += size

	p := pad(size)
	if p == 0 {
		return contentOffset, nil
	}

	if err := nw.writeStatic(zeroPad[:p]); err != nil {
		return 0, err
	}

	return contentOffset, nil
}

func sizeLE(buf []byte, v uint64) {
	for i := range 8 {
		buf[i] = byte(v >> (8 * i))
	}
}

// WriteTo serializes the filesystem object at path as a NAR byte stream,
// writing it to w as it is produced. It is the core of every dispatcher
// operation in this package: Hash, ComputeHashes and Stream all drive this
// function, and Write additionally wraps it in an atomic rename.
func WriteTo(w io.Writer, path string) error {
	_, err := dump(w, path)

	return err
}

// DumpWithListing is WriteTo plus a Listing describing the tree it wrote,
// mirroring the teacher's DumpPathWithListing/NarListing pair.
func DumpWithListing(w io.Writer, path string) (*Listing, error) {
	root, err := dump(w, path)
	if err != nil {
		return nil, err
	}

	return &Listing{Version: 1, Root: root}, nil
}

func dump(w io.Writer, path string) (ListingEntry, error) {
	nw := &writer{w: w}

	if err := nw.writeStatic(magicFramed); err != nil {
		return ListingEntry{}, err
	}

	root, err := fsnode.Probe(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ListingEntry{}, fmt.Errorf("%w: %w", ErrPathNotFound, err)
		}

		if errors.Is(err, fsnode.ErrUnsupported) {
			return ListingEntry{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}

		return ListingEntry{}, fmt.Errorf("%w: %w", ErrIO, err)
	}

	return dumpNode(nw, path, root)
}

func dumpNode(nw *writer, path string, info fsnode.Info) (ListingEntry, error) {
	if err := nw.writeStatic(openFramed); err != nil {
		return ListingEntry{}, err
	}

	if err := nw.writeStatic(typeFramed); err != nil {
		return ListingEntry{}, err
	}

	var (
		entry ListingEntry
		err   error
	)

	switch info.Kind {
	case fsnode.Regular:
		entry, err = dumpRegular(nw, path, info)
	case fsnode.Directory:
		entry, err = dumpDirectory(nw, path)
	case fsnode.Symlink:
		entry, err = dumpSymlink(nw, info)
	default:
		err = fmt.Errorf("%w: unknown node kind for %s", ErrInvalidArgument, path)
	}

	if err != nil {
		return ListingEntry{}, err
	}

	if err := nw.writeStatic(closeFramed); err != nil {
		return ListingEntry{}, err
	}

	return entry, nil
}

func dumpRegular(nw *writer, path string, info fsnode.Info) (ListingEntry, error) {
	if err := nw.writeStatic(regularFramed); err != nil {
		return ListingEntry{}, err
	}

	if info.Executable {
		if err := nw.writeStatic(executableFramed); err != nil {
			return ListingEntry{}, err
		}

		if err := nw.writeStatic(emptyFramed); err != nil {
			return ListingEntry{}, err
		}
	}

	if err := nw.writeStatic(contentsFramed); err != nil {
		return ListingEntry{}, err
	}

	f, openInfo, err := fsnode.Open(path)
	if err != nil {
		return ListingEntry{}, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	contentOffset, err := nw.writeFileContents(f, openInfo.Size)
	if err != nil {
		return ListingEntry{}, err
	}

	size := openInfo.Size
	executable := openInfo.Executable
	entry := ListingEntry{Type: "regular", Size: &size, NarOffset: &contentOffset}

	if executable {
		entry.Executable = &executable
	}

	return entry, nil
}

func dumpSymlink(nw *writer, info fsnode.Info) (ListingEntry, error) {
	if err := nw.writeStatic(symlinkFramed); err != nil {
		return ListingEntry{}, err
	}

	if err := nw.writeStatic(targetFramed); err != nil {
		return ListingEntry{}, err
	}

	if err := nw.writeString(info.Target); err != nil {
		return ListingEntry{}, err
	}

	target := info.Target

	return ListingEntry{Type: "symlink", Target: &target}, nil
}

func dumpDirectory(nw *writer, path string) (ListingEntry, error) {
	if err := nw.writeStatic(directoryFramed); err != nil {
		return ListingEntry{}, err
	}

	entries, err := fsnode.ReadDir(path)
	if err != nil {
		if errors.Is(err, fsnode.ErrInvalidName) {
			return ListingEntry{}, fmt.Errorf("%w: %w", ErrFormat, err)
		}

		return ListingEntry{}, fmt.Errorf("%w: %w", ErrIO, err)
	}

	listingEntries := make(map[string]ListingEntry, len(entries))

	for _, entry := range entries {
		childInfo, err := fsnode.Probe(entry.Path)
		if err != nil {
			if errors.Is(err, fsnode.ErrUnsupported) {
				return ListingEntry{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
			}

			return ListingEntry{}, fmt.Errorf("%w: %w", ErrIO, err)
		}

		if err := nw.writeStatic(entryFramed); err != nil {
			return ListingEntry{}, err
		}

		if err := nw.writeStatic(openFramed); err != nil {
			return ListingEntry{}, err
		}

		if err := nw.writeStatic(nameFramed); err != nil {
			return ListingEntry{}, err
		}

		if err := nw.writeString(entry.Name); err != nil {
			return ListingEntry{}, err
		}

		if err := nw.writeStatic(nodeFramed); err != nil {
			return ListingEntry{}, err
		}

		childEntry, err := dumpNode(nw, entry.Path, childInfo)
		if err != nil {
			return ListingEntry{}, err
		}

		listingEntries[entry.Name] = childEntry

		if err := nw.writeStatic(closeFramed); err != nil {
			return ListingEntry{}, err
		}
	}

	return ListingEntry{Type: "directory", Entries: listingEntries}, nil
}
