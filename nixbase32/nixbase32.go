// Package nixbase32 implements Nix's custom base32 encoding.
//
// It is a 32-symbol alphabet that omits 'e', 'o', 'u' and 't' (to avoid
// spelling offensive words and to reduce confusion with similar-looking
// digits), encoded least-significant-bit-first, with no padding
// character.
package nixbase32

// alphabet is Nix's encoding alphabet: 0-9 and lowercase letters with
// e, o, u, t removed.
const alphabet = "0123456789abcdfghijklmnpqrsvwxyz"

// Encode encodes raw into Nix's base32 alphabet. The output length is
// ceil(8*len(raw)/5); the empty input encodes to the empty string.
//
// Digits are produced least-significant-bit-first: raw is treated as a
// big-endian unsigned integer and the output is built from the highest
// digit index down to zero, which is equivalent to Nix's own
// implementation in src/libutil/base-nix-32.cc.
func Encode(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	length := (len(raw)*8-1)/5 + 1

	out := make([]byte, length)

	for n := length - 1; n >= 0; n-- {
		bit := n * 5
		byteIdx := bit / 8
		bitOffset := bit % 8

		var c byte
		if byteIdx < len(raw) {
			c = raw[byteIdx] >> bitOffset
		}

		if byteIdx+1 < len(raw) {
			c |= raw[byteIdx+1] << (8 - bitOffset)
		}

		out[length-1-n] = alphabet[c&0x1f]
	}

	return string(out)
}
