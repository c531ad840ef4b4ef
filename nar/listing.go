package nar

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Listing is a JSON-friendly directory listing produced alongside a NAR
// dump, mirroring Nix's own `.ls` sidecar format. It is a reporting
// convenience, not part of the hashed byte stream: two trees with the
// same NAR hash always have the same Listing shape, but nothing reads a
// Listing back into a tree.
type Listing struct {
	Version int          `json:"version"`
	Root    ListingEntry `json:"root"`
}

// ListingEntry is one node of a Listing.
type ListingEntry struct {
	Type       string                  `json:"type"`
	Size       *uint64                 `json:"size,omitempty"`
	Executable *bool                   `json:"executable,omitempty"`
	NarOffset  *uint64                 `json:"narOffset,omitempty"` //nolint:tagliatelle // matches Nix's own .ls field name
	Entries    map[string]ListingEntry `json:"entries,omitempty"`
	Target     *string                 `json:"target,omitempty"`
}

// CompressListing zstd-compresses the JSON encoding of l, using the same
// one-shot encoder settings as the teacher's narinfo compression.
func CompressListing(l *Listing) ([]byte, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("nar: marshaling listing: %w", err)
	}

	var buf bytes.Buffer

	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("nar: creating zstd encoder: %w", err)
	}

	if _, err := enc.Write(data); err != nil {
		enc.Close()

		return nil, fmt.Errorf("nar: compressing listing: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("nar: closing zstd encoder: %w", err)
	}

	return buf.Bytes(), nil
}
