package nixbase32_test

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/Mic92/narswh/nixbase32"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string // hex-encoded input
		expected string
	}{
		{
			name:     "sha256 of the string test",
			input:    "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
			expected: "020ay2q1av2xs4n842rb3d7vz8qms1dcb87a5yd6azaci20x11lz",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var input []byte
			if tt.input != "" {
				var err error

				input, err = hex.DecodeString(tt.input)
				if err != nil {
					t.Fatalf("decoding hex input: %v", err)
				}
			}

			if got := nixbase32.Encode(input); got != tt.expected {
				t.Errorf("Encode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEncodeRealHash(t *testing.T) {
	t.Parallel()

	hash := sha256.Sum256([]byte("test"))

	const want = "020ay2q1av2xs4n842rb3d7vz8qms1dcb87a5yd6azaci20x11lz"
	if got := nixbase32.Encode(hash[:]); got != want {
		t.Errorf("Encode(sha256(test)) = %q, want %q", got, want)
	}
}

func TestEncodeThirtyTwoZeroBytes(t *testing.T) {
	t.Parallel()

	got := nixbase32.Encode(make([]byte, 32))

	if len(got) != 52 {
		t.Fatalf("len(Encode(32 zero bytes)) = %d, want 52", len(got))
	}

	if strings.Trim(got, "0") != "" {
		t.Fatalf("Encode(32 zero bytes) = %q, want all zeros", got)
	}
}

func TestEncodeUsesOnlyAlphabetCharacters(t *testing.T) {
	t.Parallel()

	const alphabet = "0123456789abcdfghijklmnpqrsvwxyz"

	for _, b := range [][]byte{{0xff}, {0x00, 0xff, 0x10}, []byte("the quick brown fox")} {
		got := nixbase32.Encode(b)
		for _, r := range got {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("Encode(%x) = %q contains non-alphabet rune %q", b, got, r)
			}
		}

		wantLen := (len(b)*8 + 4) / 5
		if len(got) != wantLen {
			t.Fatalf("len(Encode(%x)) = %d, want %d", b, len(got), wantLen)
		}
	}
}
