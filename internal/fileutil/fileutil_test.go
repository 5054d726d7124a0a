package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "out.wav")

	if err := WriteFileAtomic(dst, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(dst, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("content mismatch: got %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteFileAtomicMode(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.bin")
	if err := WriteFileAtomic(dst, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %o", info.Mode().Perm())
	}
}

func TestVerifyFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.bin")
	if err := os.WriteFile(dst, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := VerifyFile(dst, []byte("payload")); err != nil {
		t.Fatalf("VerifyFile: %v", err)
	}
	if err := VerifyFile(dst, []byte("payloaD")); err == nil {
		t.Fatal("expected hash mismatch")
	}
	if err := VerifyFile(dst, []byte("short")); err == nil {
		t.Fatal("expected size mismatch")
	}
	if err := VerifyFile(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}
