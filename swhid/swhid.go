// Package swhid computes a Software Heritage persistent identifier for a
// filesystem object, using the same Git blob/tree object model `git
// hash-object` and `git write-tree` use internally: SHA-1 over a
// "<type> <size>\0<body>" framed header. Only the content (cnt) and
// directory (dir) object types are in scope; revision, release and
// snapshot identifiers are a higher layer this package does not implement.
package swhid

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Qualifier is one "key=value" SWHID qualifier. Qualifiers are appended to
// the identifier string in the order they appear in the slice, matching
// spec.md §8.8's insertion-order guarantee — Go has no ordered map, so the
// caller's slice order *is* the insertion order.
type Qualifier struct {
	Key   string
	Value string
}

// Hash returns the SWHID for path: "swh:1:cnt:<oid>" for a file or
// symlink, "swh:1:dir:<oid>" for a directory, with any qualifiers appended
// as ";key=<percent-encoded value>".
func Hash(path string, qualifiers ...Qualifier) (string, error) {
	ctx, oid, err := hashPath(path)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString("swh:1:")
	b.WriteString(string(ctx))
	b.WriteByte(':')
	b.WriteString(hex.EncodeToString(oid))

	for _, q := range qualifiers {
		b.WriteByte(';')
		b.WriteString(q.Key)
		b.WriteByte('=')
		b.WriteString(percentEncode(q.Value))
	}

	return b.String(), nil
}

// Stream returns an io.Reader over the SWHID string for path, the same
// string Hash returns ("swh:1:", ctx, ":", oid_hex, then any qualifiers).
// It is not lazy: unlike nar.Stream, the hashing pass runs when Stream is
// called, and the full identifier (only a few dozen bytes) is then served
// from an in-memory reader rather than produced field by field. A hashing
// error is returned by the reader's first Read.
func Stream(path string, qualifiers ...Qualifier) io.Reader {
	s, err := Hash(path, qualifiers...)
	if err != nil {
		return errReader{err: err}
	}

	return strings.NewReader(s)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

const unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// percentEncode applies RFC 3986 percent-encoding to every byte outside the
// unreserved set, per spec.md §4.5's qualifier-value rule.
func percentEncode(s string) string {
	needsEscape := false

	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(unreserved, rune(s[i])) {
			needsEscape = true

			break
		}
	}

	if !needsEscape {
		return s
	}

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.ContainsRune(unreserved, rune(c)) {
			b.WriteByte(c)

			continue
		}

		fmt.Fprintf(&b, "%%%02X", c)
	}

	return b.String()
}
