package nar

import "encoding/binary"

// Token vocabulary of the NAR grammar (spec.md §4.1/§4.2). Names match
// the wire strings exactly; see other_examples' zombiezen-go-nix/nar and
// aldoborrero-go-nix/narv2 for the reference vocabulary this was checked
// against, since the teacher repo only ever produces NAR archives and
// never parses the token stream back.
const (
	magic = "nix-archive-1"

	tokOpen  = "("
	tokClose = ")"

	tokType       = "type"
	tokRegular    = "regular"
	tokDirectory  = "directory"
	tokSymlink    = "symlink"
	tokExecutable = "executable"
	tokEmpty      = ""
	tokContents   = "contents"
	tokEntry      = "entry"
	tokName       = "name"
	tokNode       = "node"
	tokTarget     = "target"
)

// entryNameMaxLen and symlinkTargetMaxLen bound how large a single name
// or link target the decoder will accept, matching the limits documented
// in other_examples' zombiezen-go-nix/nar package; they exist so a
// corrupt or adversarial archive can't force an unbounded allocation.
const (
	entryNameMaxLen     = 255
	symlinkTargetMaxLen = 4095
)

// pad returns the number of zero bytes needed to round n up to the next
// multiple of 8, per spec.md's "pad = (8 − (n mod 8)) mod 8".
func pad(n uint64) uint64 {
	return (8 - (n % 8)) % 8
}

// encodeStaticString pre-renders the framed bytes for a string known at
// compile time, so the encoder never reframes the same literal twice per
// node. Mirrors the teacher's encodeStaticString in client/nar.go.
func encodeStaticString(s string) []byte {
	n := len(s)
	p := pad(uint64(n)) //nolint:gosec // n is a small literal length

	buf := make([]byte, 8+n+int(p))
	binary.LittleEndian.PutUint64(buf[:8], uint64(n))
	copy(buf[8:], s)

	return buf
}

//nolint:gochecknoglobals // pre-encoded constants avoid reframing the same literal on every node
var (
	magicFramed      = encodeStaticString(magic)
	openFramed       = encodeStaticString(tokOpen)
	closeFramed      = encodeStaticString(tokClose)
	typeFramed       = encodeStaticString(tokType)
	regularFramed    = encodeStaticString(tokRegular)
	directoryFramed  = encodeStaticString(tokDirectory)
	symlinkFramed    = encodeStaticString(tokSymlink)
	executableFramed = encodeStaticString(tokExecutable)
	emptyFramed      = encodeStaticString(tokEmpty)
	contentsFramed   = encodeStaticString(tokContents)
	entryFramed      = encodeStaticString(tokEntry)
	nameFramed       = encodeStaticString(tokName)
	nodeFramed       = encodeStaticString(tokNode)
	targetFramed     = encodeStaticString(tokTarget)

	zeroPad [8]byte
)
