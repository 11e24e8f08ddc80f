package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSizeLimitedWriterStaysUnderCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := newSizeLimitedWriter(path, 1)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	line := make([]byte, 300*1024)
	for i := 0; i < 8; i++ {
		if _, err := w.Write(line); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if info.Size() > 1<<20 {
			t.Fatalf("log grew past the 1MB cap after write %d: %d bytes", i, info.Size())
		}
	}
}

func TestSizeLimitedWriterResumesAppending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	if err := os.WriteFile(path, []byte("earlier run\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	w, err := newSizeLimitedWriter(path, 1)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if _, err := w.Write([]byte("this run\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// A write after Close reopens the file instead of failing.
	if _, err := w.Write([]byte("late write\n")); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	defer w.Close()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	want := "earlier run\nthis run\nlate write\n"
	if string(got) != want {
		t.Fatalf("unexpected log contents: %q", got)
	}
}
