package nar

import "errors"

// The four error kinds from the NAR contract. Callers should match them
// with errors.Is; the wrapped error carries the underlying cause and path.
var (
	// ErrPathNotFound is returned when the root path given to an encoder
	// does not exist (and is not a dangling symlink target is never
	// resolved, so a dangling symlink itself is fine: it is serialized as
	// a Symlink node).
	ErrPathNotFound = errors.New("nar: path not found")

	// ErrIO covers read/write/stat/open/close/mkdir/symlink/chmod
	// failures, and a file whose size changes between being stat'd and
	// fully read.
	ErrIO = errors.New("nar: i/o error")

	// ErrFormat is returned by the decoder for any syntactic violation of
	// the NAR grammar: bad magic, unknown key, mismatched parentheses, a
	// short read, "contents" outside a regular node, "entry" outside a
	// directory node, or an unknown type tag.
	ErrFormat = errors.New("nar: malformed archive")

	// ErrInvalidArgument is returned for an unsupported hash algorithm or
	// an unsupported filesystem object (device node, FIFO, socket).
	ErrInvalidArgument = errors.New("nar: invalid argument")
)
