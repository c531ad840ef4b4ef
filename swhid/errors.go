package swhid

import "errors"

// Error kinds mirroring three of the nar package's four; there is no
// format error, since this package never parses an archive. Callers
// should match them with errors.Is.
var (
	// ErrPathNotFound is returned when the root path given to Hash or
	// Stream (via hashPath) does not exist.
	ErrPathNotFound = errors.New("swhid: path not found")

	// ErrIO covers read/stat/open/close failures.
	ErrIO = errors.New("swhid: i/o error")

	// ErrInvalidArgument is returned for an unsupported filesystem object
	// (device node, FIFO, socket).
	ErrInvalidArgument = errors.New("swhid: invalid argument")
)
