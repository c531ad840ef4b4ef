// Package nar implements the Nix ARchive (NAR) format: a canonical,
// byte-exact serialization of a filesystem subtree, its SHA-256 "hash of
// a path", and a decoder that can materialize an archive back onto disk.
//
// The five dispatcher operations (Hash, ComputeHashes, Stream and Write
// below, and Extract in decode.go) are the public surface; everything
// else in the package exists to support them.
package nar

import (
	"fmt"
	"io"
	"os"

	"github.com/Mic92/narswh/digest"
	"github.com/Mic92/narswh/internal/fsutil"
)

// Stdout is the sentinel destination for Write that means "write to the
// process's standard output" instead of a file path.
const Stdout = "stdout"

// Hash returns the SRI-encoded SHA-256 NAR hash of path, e.g.
// "sha256-8Zli5QunHMIWw0Qr61FCdl2CLeLtBXUrC80Tw8PzaBY=".
func Hash(path string) (string, error) {
	bundle, err := ComputeHashes(path)
	if err != nil {
		return "", err
	}

	return bundle.SRI, nil
}

// ComputeHashes serializes path as a NAR and hashes the result, defaulting
// to SHA-256 (the canonical Nix "hash of a path") unless an explicit
// algorithm is given.
func ComputeHashes(path string, algo ...digest.Algorithm) (digest.Bundle, error) {
	a := digest.SHA256
	if len(algo) > 0 {
		a = algo[0]
	}

	agg, err := digest.New(a)
	if err != nil {
		return digest.Bundle{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	if err := WriteTo(agg, path); err != nil {
		return digest.Bundle{}, err
	}

	return agg.Sum(), nil
}

// Stream returns an io.Reader that lazily yields the NAR serialization of
// path as it is pulled. It is backed by an io.Pipe with a single producer
// goroutine driving WriteTo — the standard Go idiom for turning a
// "write to a sink" function into a pull-based io.Reader without
// buffering the whole output. The returned value is the pipe's read end,
// an *io.PipeReader; closing it before it is drained aborts the in-flight WriteTo (its next Write fails with
// io.ErrClosedPipe), matching the cancellation contract in spec.md §5: no
// further chunks are produced and no persisted state has been mutated.
func Stream(path string) io.Reader {
	pr, pw := io.Pipe()

	go func() {
		pw.CloseWithError(WriteTo(pw, path))
	}()

	return pr
}

// Write serializes path as a NAR and writes it to destination, which is
// either a filesystem path or the Stdout sentinel. For a file
// destination, the archive is streamed into a temp file beside it and
// atomically renamed into place; on any failure the temp file is removed
// and destination is left untouched.
func Write(path string, destination string) error {
	if destination == Stdout {
		return WriteTo(os.Stdout, path)
	}

	return fsutil.WriteAtomic(destination, func(f *os.File) error {
		return WriteTo(f, path)
	})
}
