// Package fsnode classifies filesystem paths into the three shapes a NAR or
// SWHID serializer can emit: regular files, directories and symlinks.
//
// It never follows symlinks (targets are captured as literal byte strings)
// and never reports device nodes, FIFOs or sockets as anything other than
// an error, matching the tagged FsNode variant the encoders serialize. A
// hard link is not a case of its own: it is classified as the regular
// file it is.
package fsnode

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

// Kind identifies which of the three FsNode variants a path resolves to.
type Kind int

const (
	// Regular is a plain file; executables are regular files with the
	// owner execute bit set.
	Regular Kind = iota
	Directory
	Symlink
)

func (k Kind) String() string {
	switch k {
	case Regular:
		return "regular"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Info is the classification of a single path: its kind plus whatever
// metadata the NAR/SWHID grammars need to serialize it. Size and
// Executable are only meaningful for Regular; Target is only meaningful
// for Symlink.
type Info struct {
	Kind       Kind
	Size       uint64
	Executable bool
	Target     string
}

// ErrUnsupported is returned for filesystem objects with no FsNode
// representation: device nodes, FIFOs and sockets.
var ErrUnsupported = errors.New("fsnode: unsupported filesystem object")

// ErrInvalidName is returned for a directory entry basename that could
// never be serialized and re-parsed: "." / "..", or one containing NUL or
// a slash.
var ErrInvalidName = errors.New("fsnode: invalid entry name")

// Probe classifies path without following a trailing symlink. It does not
// open the file; regular-file size is reported from the stat result, but
// callers that need a read handle and a TOCTOU-safe size together should
// use Open instead.
func Probe(path string) (Info, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, fmt.Errorf("fsnode: probe %s: %w", path, err)
		}

		return Info{}, fmt.Errorf("fsnode: stat %s: %w", path, err)
	}

	return infoFromFileInfo(path, fi)
}

func infoFromFileInfo(path string, fi os.FileInfo) (Info, error) {
	mode := fi.Mode()

	switch {
	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return Info{}, fmt.Errorf("fsnode: readlink %s: %w", path, err)
		}

		return Info{Kind: Symlink, Target: target}, nil
	case mode.IsDir():
		return Info{Kind: Directory}, nil
	case mode.IsRegular():
		//nolint:gosec // file sizes are always non-negative
		return Info{Kind: Regular, Size: uint64(fi.Size()), Executable: mode&0o100 != 0}, nil
	default:
		return Info{}, fmt.Errorf("%w: %s has mode %v", ErrUnsupported, path, mode)
	}
}

// Open opens path for reading and returns its Info computed from the open
// handle's own Stat, so the reported size and the bytes later read from f
// can never disagree about a file that changed between the two syscalls.
// The caller owns f and must close it. Open follows a symlink at path (it
// uses os.Open) and returns an error for anything whose fstat is not a
// regular file, such as a directory; to classify a symlink itself, use
// Probe.
func Open(path string) (f *os.File, info Info, err error) {
	f, err = os.Open(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("fsnode: open %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, Info{}, fmt.Errorf("fsnode: fstat %s: %w", path, err)
	}

	info, err = infoFromFileInfo(path, fi)
	if err != nil {
		f.Close()

		return nil, Info{}, err
	}

	if info.Kind != Regular {
		f.Close()

		return nil, Info{}, fmt.Errorf("fsnode: %s is not a regular file (%s)", path, info.Kind)
	}

	return f, info, nil
}

// Entry is one sorted directory entry: a basename paired with its path
// (the listed directory joined with the basename), suitable for recursing
// into.
type Entry struct {
	Name string
	Path string
}

// ReadDir lists dir and returns its entries sorted by the raw byte value
// of Name, which is the only sort order that makes a NAR or SWHID-dir
// hash stable across OS/filesystem enumeration order.
func ReadDir(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("fsnode: readdir %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		name := de.Name()
		if err := ValidateName(name); err != nil {
			return nil, err
		}

		entries = append(entries, Entry{Name: name, Path: dir + string(os.PathSeparator) + name})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}

// ValidateName rejects a basename that could not round-trip through the
// NAR or SWHID grammars: "." and "..", embedded NUL, and embedded slash.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: reserved entry name %q", ErrInvalidName, name)
	}

	for i := 0; i < len(name); i++ {
		if name[i] == 0 || name[i] == '/' {
			return fmt.Errorf("%w: entry name %q contains %q", ErrInvalidName, name, string(name[i]))
		}
	}

	return nil
}
