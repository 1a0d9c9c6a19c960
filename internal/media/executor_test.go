package media

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLimitedWriter_KeepsOnlyTail(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, limit: 10}

	lw.Write([]byte("hello"))
	if buf.String() != "hello" {
		t.Errorf("after short write got %q, want %q", buf.String(), "hello")
	}

	lw.Write([]byte(" world of test data"))
	got := buf.String()
	if len(got) > 10 {
		t.Errorf("buffer length %d exceeds limit 10", len(got))
	}

	want := " test data"
	if got != want {
		t.Errorf("after overflow got %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "...world"},
	}
	for _, tt := range tests {
		got := truncate(tt.input, tt.maxLen)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "x", "y"); got != "x" {
		t.Errorf("firstNonEmpty = %q, want %q", got, "x")
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty = %q, want empty", got)
	}
}

func TestLocate_OverrideDirMissing(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// An empty directory has neither binary; Locate may still fall through
	// to the system PATH, so only assert the error message shape when it
	// fails entirely.
	_, err := Locate(t.TempDir(), logger)
	if err != nil {
		if !bytes.Contains([]byte(err.Error()), []byte("attempted")) {
			t.Errorf("error %q does not list attempted locations", err)
		}
	}
}

func TestLocate_OverrideDirWithBinaries(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	dir := t.TempDir()

	for _, name := range []string{"ffmpeg", "ffprobe"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0755); err != nil {
			t.Fatal(err)
		}
	}

	e, err := Locate(dir, logger)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if e.FFmpegPath() != filepath.Join(dir, "ffmpeg") {
		t.Errorf("FFmpegPath = %q", e.FFmpegPath())
	}
}
