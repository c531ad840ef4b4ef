// Package digest drives a streaming hash over a byte sequence produced by
// a NAR or SWHID encoder and renders the result in the encodings callers
// care about: raw bytes, lowercase hex, an SRI string, and Nix base32.
package digest

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is required by the SWHID/Git object model, not used for security
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/Mic92/narswh/nixbase32"
)

// Algorithm identifies a supported hash function.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
	SHA1   Algorithm = "sha1"
)

func (a Algorithm) new() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case SHA1:
		return sha1.New(), nil //nolint:gosec // see import comment
	default:
		return nil, fmt.Errorf("%w: unsupported hash algorithm %q", ErrInvalidArgument, a)
	}
}

// ErrInvalidArgument is returned for an unsupported Algorithm value.
var ErrInvalidArgument = errInvalidArgument{}

type errInvalidArgument struct{}

func (errInvalidArgument) Error() string { return "digest: invalid argument" }

// Bundle is a completed hash in every encoding the dispatcher exposes.
type Bundle struct {
	Algorithm Algorithm
	Raw       []byte
	Hex       string
	SRI       string
	Nix32     string
}

// Aggregator is a streaming hasher that can be fed chunks as they arrive
// from a lazy encoder and, once drained, produces a Bundle.
type Aggregator struct {
	algo Algorithm
	h    hash.Hash
}

// New starts a new Aggregator for algo.
func New(algo Algorithm) (*Aggregator, error) {
	h, err := algo.new()
	if err != nil {
		return nil, err
	}

	return &Aggregator{algo: algo, h: h}, nil
}

// Write feeds p into the underlying hash. It never returns an error or a
// short write, matching the contract of hash.Hash.
func (a *Aggregator) Write(p []byte) (int, error) {
	return a.h.Write(p) //nolint:wrapcheck // hash.Hash.Write never errors
}

// ReadFrom drains r into the aggregator, for callers that have a
// lazy byte sequence exposed as an io.Reader rather than pushing chunks
// directly.
func (a *Aggregator) ReadFrom(r io.Reader) (int64, error) {
	n, err := io.Copy(a.h, r)
	if err != nil {
		return n, fmt.Errorf("digest: reading input: %w", err)
	}

	return n, nil
}

// Sum finalizes the hash and renders it in every supported encoding.
// Calling Sum does not prevent further Write calls, matching hash.Hash.
func (a *Aggregator) Sum() Bundle {
	raw := a.h.Sum(nil)

	return Bundle{
		Algorithm: a.algo,
		Raw:       raw,
		Hex:       hex.EncodeToString(raw),
		SRI:       string(a.algo) + "-" + base64.StdEncoding.EncodeToString(raw),
		Nix32:     nixbase32.Encode(raw),
	}
}

// SumReader is a convenience wrapper: hash all of r with algo and return
// the Bundle in one call.
func SumReader(algo Algorithm, r io.Reader) (Bundle, error) {
	agg, err := New(algo)
	if err != nil {
		return Bundle{}, err
	}

	if _, err := agg.ReadFrom(r); err != nil {
		return Bundle{}, err
	}

	return agg.Sum(), nil
}

// SumBytes hashes raw directly, without going through the streaming path;
// used by SWHID for small in-memory objects (symlink blobs and tree
// objects).
func SumBytes(algo Algorithm, raw []byte) (Bundle, error) {
	agg, err := New(algo)
	if err != nil {
		return Bundle{}, err
	}

	if _, err := agg.Write(raw); err != nil {
		return Bundle{}, fmt.Errorf("digest: hashing bytes: %w", err)
	}

	return agg.Sum(), nil
}
