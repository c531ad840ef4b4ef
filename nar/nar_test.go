package nar_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mic92/narswh/nar"
)

func TestHashIsStableAndContentSensitive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.md")

	if err := os.WriteFile(path, fixtureTestMD, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	first, err := nar.Hash(path)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	second, err := nar.Hash(path)
	if err != nil {
		t.Fatalf("Hash (second call): %v", err)
	}

	if first != second {
		t.Fatalf("Hash() is not deterministic: %q != %q", first, second)
	}

	if err := os.WriteFile(path, append(fixtureTestMD, '!'), 0o644); err != nil {
		t.Fatalf("WriteFile (modified): %v", err)
	}

	changed, err := nar.Hash(path)
	if err != nil {
		t.Fatalf("Hash (modified): %v", err)
	}

	if changed == first {
		t.Fatalf("Hash() did not change after content changed")
	}
}

func TestHashOfDirectoryWrappingAFileDiffersFromTheFileAlone(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sub := filepath.Join(root, "dir1")

	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	filePath := filepath.Join(sub, "test.md")
	if err := os.WriteFile(filePath, fixtureTestMD, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fileHash, err := nar.Hash(filePath)
	if err != nil {
		t.Fatalf("Hash(file): %v", err)
	}

	dirHash, err := nar.Hash(sub)
	if err != nil {
		t.Fatalf("Hash(dir): %v", err)
	}

	if fileHash == dirHash {
		t.Fatalf("Hash(dir) must differ from Hash(file) wrapped inside it")
	}
}

func TestHashPathNotFound(t *testing.T) {
	t.Parallel()

	_, err := nar.Hash(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, nar.ErrPathNotFound) {
		t.Fatalf("err = %v, want ErrPathNotFound", err)
	}
}

func TestStreamMatchesWriteTo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	buildTree(t, dir)

	var buf bytes.Buffer
	if err := nar.WriteTo(&buf, dir); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	streamed, err := io.ReadAll(nar.Stream(dir))
	if err != nil {
		t.Fatalf("reading Stream: %v", err)
	}

	if !bytes.Equal(buf.Bytes(), streamed) {
		t.Fatalf("Stream() output differs from WriteTo()")
	}
}

func TestWriteIsAtomicAndExtractRoundTrips(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	buildTree(t, srcDir)

	origHash, err := nar.Hash(srcDir)
	if err != nil {
		t.Fatalf("Hash(src): %v", err)
	}

	workDir := t.TempDir()
	archivePath := filepath.Join(workDir, "out.nar")

	if err := nar.Write(srcDir, archivePath); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("workDir has %d entries, want 1 (no leftover temp file)", len(entries))
	}

	f, err := os.Open(archivePath)
	if err != nil {
		t.Fatalf("Open archive: %v", err)
	}
	defer f.Close()

	destDir := filepath.Join(t.TempDir(), "extracted")

	if err := nar.Extract(f, destDir); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	gotHash, err := nar.Hash(destDir)
	if err != nil {
		t.Fatalf("Hash(extracted): %v", err)
	}

	if gotHash != origHash {
		t.Fatalf("hash after round trip = %q, want %q", gotHash, origHash)
	}
}

func TestExtractRoundTripWithExecutableAndSymlink(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(srcDir, "run.sh"), []byte("#!/bin/sh\necho hi\n"), 0o755); err != nil {
		t.Fatalf("WriteFile executable: %v", err)
	}

	if err := os.WriteFile(filepath.Join(srcDir, "data.txt"), []byte("plain data"), 0o644); err != nil {
		t.Fatalf("WriteFile regular: %v", err)
	}

	if err := os.Symlink("../x", filepath.Join(srcDir, "link")); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	if err := os.Mkdir(filepath.Join(srcDir, "empty"), 0o755); err != nil {
		t.Fatalf("Mkdir empty: %v", err)
	}

	var buf bytes.Buffer
	if err := nar.WriteTo(&buf, srcDir); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	destDir := filepath.Join(t.TempDir(), "extracted")

	if err := nar.Extract(bytes.NewReader(buf.Bytes()), destDir); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	runInfo, err := os.Lstat(filepath.Join(destDir, "run.sh"))
	if err != nil {
		t.Fatalf("Lstat run.sh: %v", err)
	}

	if runInfo.Mode()&0o100 == 0 {
		t.Fatalf("run.sh is not executable after extraction")
	}

	target, err := os.Readlink(filepath.Join(destDir, "link"))
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}

	if target != "../x" {
		t.Fatalf("symlink target = %q, want %q", target, "../x")
	}

	if fi, err := os.Stat(filepath.Join(destDir, "empty")); err != nil || !fi.IsDir() {
		t.Fatalf("empty subdirectory missing after extraction: %v", err)
	}

	got, err := nar.Hash(destDir)
	if err != nil {
		t.Fatalf("Hash(extracted): %v", err)
	}

	want, err := nar.Hash(srcDir)
	if err != nil {
		t.Fatalf("Hash(src): %v", err)
	}

	if got != want {
		t.Fatalf("hash after round trip = %q, want %q", got, want)
	}
}

func TestEntrySortIgnoresEnumerationOrder(t *testing.T) {
	t.Parallel()

	// os.ReadDir already sorts, so build two trees via different
	// creation orders and confirm the hash is identical either way.
	dirA := t.TempDir()
	for _, name := range []string{"z", "a", "m"} {
		os.WriteFile(filepath.Join(dirA, name), []byte(name), 0o644) //nolint:errcheck
	}

	dirB := t.TempDir()
	for _, name := range []string{"a", "m", "z"} {
		os.WriteFile(filepath.Join(dirB, name), []byte(name), 0o644) //nolint:errcheck
	}

	hashA, err := nar.Hash(dirA)
	if err != nil {
		t.Fatalf("Hash(dirA): %v", err)
	}

	hashB, err := nar.Hash(dirB)
	if err != nil {
		t.Fatalf("Hash(dirB): %v", err)
	}

	if hashA != hashB {
		t.Fatalf("hash depends on creation order: %q != %q", hashA, hashB)
	}
}

func TestContentsPaddingMultipleOfEight(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 1, 7, 8, 9, 16} {
		dir := t.TempDir()
		path := filepath.Join(dir, "f")

		if err := os.WriteFile(path, bytes.Repeat([]byte{'x'}, size), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		var buf bytes.Buffer
		if err := nar.WriteTo(&buf, path); err != nil {
			t.Fatalf("WriteTo(size=%d): %v", size, err)
		}

		// Fixed overhead for a non-executable regular file at the root:
		// magic(24) + "("(16) + "type"(16) + "regular"(16) + "contents"(16)
		// + size(8 raw bytes) + the node's closing ")"(16) = 112 bytes.
		const fixedOverhead = 24 + 16 + 16 + 16 + 16 + 8 + 16
		contentSection := buf.Len() - fixedOverhead
		want := size + (8-size%8)%8

		if contentSection != want {
			t.Fatalf("content section for size=%d is %d bytes, want %d", size, contentSection, want)
		}
	}
}

var fixtureTestMD = []byte("# Test\n\nThis is a fixture file used to check NAR and SWHID hashes.\n")

func buildTree(t *testing.T, root string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(root, "a"), []byte("file a"), 0o644); err != nil {
		t.Fatalf("WriteFile a: %v", err)
	}

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir sub: %v", err)
	}

	if err := os.WriteFile(filepath.Join(sub, "b"), []byte("file b"), 0o644); err != nil {
		t.Fatalf("WriteFile b: %v", err)
	}
}
