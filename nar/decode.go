package nar

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Mic92/narswh/fsnode"
)

// chunkSize is the size of the buffer the decoder pulls regular file
// bodies through; spec.md §4.2 requires streaming discipline so a file
// body larger than available RAM still succeeds.
const chunkSize = 8 * 1024

// reader parses a NAR byte stream per the state machine in spec.md §4.2.
type reader struct {
	r *bufio.Reader
}

func (d *reader) readUint64() (uint64, error) {
	var buf [8]byte

	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: reading length prefix: %w", ErrFormat, shortReadErr(err))
	}

	return binary.LittleEndian.Uint64(buf[:]), nil
}

// readRaw reads one framed string: its length prefix, content and zero
// padding to the next 8-byte boundary.
func (d *reader) readRaw(maxLen int) (string, error) {
	n, err := d.readUint64()
	if err != nil {
		return "", err
	}

	if n > uint64(maxLen) {
		return "", fmt.Errorf("%w: string of length %d exceeds limit %d", ErrFormat, n, maxLen)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", fmt.Errorf("%w: reading string content: %w", ErrFormat, shortReadErr(err))
	}

	if p := pad(n); p > 0 {
		if _, err := io.CopyN(io.Discard, d.r, int64(p)); err != nil {
			return "", fmt.Errorf("%w: reading string padding: %w", ErrFormat, shortReadErr(err))
		}
	}

	return string(buf), nil
}

// tokenMaxLen bounds the framed strings that are supposed to be one of
// the NAR grammar's fixed keywords (the longest, the "nix-archive-1"
// magic, is 13 bytes); anything longer is definitely not a valid token and is
// rejected before the decoder allocates a buffer for it.
const tokenMaxLen = 16

// readToken reads a framed string expected to be one of the short,
// fixed NAR grammar keywords.
func (d *reader) readToken() (string, error) {
	return d.readRaw(tokenMaxLen)
}

func (d *reader) expect(want string) error {
	got, err := d.readToken()
	if err != nil {
		return err
	}

	if got != want {
		return fmt.Errorf("%w: expected %q, got %q", ErrFormat, want, got)
	}

	return nil
}

func shortReadErr(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}

// Extract parses the NAR byte stream read from r and materializes it
// rooted at destDir. It fails only on a syntactically invalid stream or a
// filesystem operation error; on failure the partially materialized tree
// is left in place, per spec.md §4.2.
func Extract(r io.Reader, destDir string) error {
	d := &reader{r: bufio.NewReaderSize(r, chunkSize)}

	if err := d.expect(magic); err != nil {
		return err
	}

	return d.readNode(destDir)
}

func (d *reader) readNode(path string) error {
	if err := d.expect(tokOpen); err != nil {
		return err
	}

	if err := d.expect(tokType); err != nil {
		return err
	}

	typ, err := d.readToken()
	if err != nil {
		return err
	}

	switch typ {
	case tokRegular:
		return d.readRegularBody(path)
	case tokDirectory:
		return d.readDirectoryBody(path)
	case tokSymlink:
		return d.readSymlinkBody(path)
	default:
		return fmt.Errorf("%w: unknown node type %q", ErrFormat, typ)
	}
}

// readRegularBody consumes everything after the "regular" type tag (which
// readNode has already read) through the NODE's own closing paren: the
// optional executable marker, the file contents, and the trailing ")".
func (d *reader) readRegularBody(path string) error {
	next, err := d.readToken()
	if err != nil {
		return err
	}

	executable := false

	if next == tokExecutable {
		if err := d.expect(tokEmpty); err != nil {
			return err
		}

		executable = true

		next, err = d.readToken()
		if err != nil {
			return err
		}
	}

	if next != tokContents {
		return fmt.Errorf("%w: expected %q, got %q", ErrFormat, tokContents, next)
	}

	size, err := d.readUint64()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // permissions narrowed below if executable
	if err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrIO, path, err)
	}

	copyErr := d.copyFileBody(f, size)

	closeErr := f.Close()

	if copyErr != nil {
		return copyErr
	}

	if closeErr != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrIO, path, closeErr)
	}

	if executable {
		if err := os.Chmod(path, 0o755); err != nil { //nolint:gosec // executable bit is an explicit archive marker
			return fmt.Errorf("%w: chmod %s: %w", ErrIO, path, err)
		}
	}

	return d.expect(tokClose)
}

func (d *reader) copyFileBody(f *os.File, size uint64) error {
	buf := make([]byte, chunkSize)

	//nolint:gosec // size comes from the archive's own length prefix
	n, err := io.CopyBuffer(f, io.LimitReader(d.r, int64(size)), buf)
	if err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrIO, f.Name(), err)
	}

	if uint64(n) != size { //nolint:gosec // n is bounded by size above
		return fmt.Errorf("%w: short file body: expected %d bytes, got %d", ErrFormat, size, n)
	}

	if p := pad(size); p > 0 {
		if _, err := io.CopyN(io.Discard, d.r, int64(p)); err != nil {
			return fmt.Errorf("%w: reading content padding: %w", ErrFormat, shortReadErr(err))
		}
	}

	return nil
}

func (d *reader) readSymlinkBody(path string) error {
	if err := d.expect(tokTarget); err != nil {
		return err
	}

	target, err := d.readRaw(symlinkTargetMaxLen)
	if err != nil {
		return err
	}

	if _, err := os.Lstat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("%w: removing existing %s before re-extraction: %w", ErrIO, path, err)
		}
	}

	if err := os.Symlink(target, path); err != nil {
		return fmt.Errorf("%w: creating symlink %s: %w", ErrIO, path, err)
	}

	return d.expect(tokClose)
}

func (d *reader) readDirectoryBody(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil { //nolint:gosec // NAR has no permission model beyond the executable bit
		return fmt.Errorf("%w: creating directory %s: %w", ErrIO, path, err)
	}

	for {
		tok, err := d.readToken()
		if err != nil {
			return err
		}

		switch tok {
		case tokClose:
			return nil
		case tokEntry:
			if err := d.readEntry(path); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unexpected key %q in directory", ErrFormat, tok)
		}
	}
}

func (d *reader) readEntry(parent string) error {
	if err := d.expect(tokOpen); err != nil {
		return err
	}

	if err := d.expect(tokName); err != nil {
		return err
	}

	name, err := d.readRaw(entryNameMaxLen)
	if err != nil {
		return err
	}

	if err := fsnode.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}

	if err := d.expect(tokNode); err != nil {
		return err
	}

	childPath := filepath.Join(parent, name)

	if err := d.readNode(childPath); err != nil {
		return err
	}

	return d.expect(tokClose)
}
