// Package media wraps the external ffmpeg/ffprobe binaries. It locates the
// binaries, runs one-shot invocations (probe, thumbnail, audio extraction,
// export render), and parses their output. Long-lived capture processes are
// owned by the capture package; media only builds and executes commands that
// run to completion.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics
)

// Executor runs ffmpeg and ffprobe commands.
type Executor struct {
	ffmpegPath  string
	ffprobePath string
	logger      *slog.Logger
}

// Locate resolves the ffmpeg and ffprobe binaries. Resolution order:
// an explicit directory override, a binaries/ directory next to the agent
// executable (bundled distribution), then the system PATH.
func Locate(overrideDir string, logger *slog.Logger) (*Executor, error) {
	var attempted []string

	if overrideDir != "" {
		ffmpeg := filepath.Join(overrideDir, "ffmpeg")
		ffprobe := filepath.Join(overrideDir, "ffprobe")
		attempted = append(attempted, "configured dir: "+overrideDir)
		if fileExists(ffmpeg) && fileExists(ffprobe) {
			return newExecutor(ffmpeg, ffprobe, logger), nil
		}
	}

	if exe, err := os.Executable(); err == nil {
		bundled := filepath.Join(filepath.Dir(exe), "binaries")
		ffmpeg := filepath.Join(bundled, "ffmpeg")
		ffprobe := filepath.Join(bundled, "ffprobe")
		attempted = append(attempted, "bundled dir: "+bundled)
		if fileExists(ffmpeg) && fileExists(ffprobe) {
			return newExecutor(ffmpeg, ffprobe, logger), nil
		}
	}

	attempted = append(attempted, "system PATH")
	ffmpeg, err1 := exec.LookPath("ffmpeg")
	ffprobe, err2 := exec.LookPath("ffprobe")
	if err1 == nil && err2 == nil {
		return newExecutor(ffmpeg, ffprobe, logger), nil
	}

	return nil, fmt.Errorf("ffmpeg binaries not found, attempted: %s", strings.Join(attempted, "; "))
}

func newExecutor(ffmpegPath, ffprobePath string, logger *slog.Logger) *Executor {
	logger.Info("ffmpeg binaries resolved", "ffmpeg", ffmpegPath, "ffprobe", ffprobePath)
	return &Executor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, logger: logger}
}

// NewExecutor builds an Executor with explicit binary names, bypassing
// resolution. Used as a fallback when Locate fails so commands still produce
// a useful error at invocation time.
func NewExecutor(ffmpegPath, ffprobePath string, logger *slog.Logger) *Executor {
	return &Executor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, logger: logger}
}

// FFmpegPath returns the resolved ffmpeg binary path.
func (e *Executor) FFmpegPath() string {
	return e.ffmpegPath
}

// Thumbnail extracts a single frame at the given timestamp as a JPEG.
func (e *Executor) Thumbnail(ctx context.Context, filePath string, timestamp float64, outputPath string) error {
	args := []string{
		"-ss", strconv.FormatFloat(timestamp, 'f', -1, 64),
		"-i", filePath,
		"-vframes", "1",
		"-q:v", "2",
		"-f", "image2",
		"-y",
		outputPath,
	}
	_, stderr, err := e.run(ctx, e.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("thumbnail generation failed: %s", firstNonEmpty(stderr, err.Error()))
	}
	return nil
}

// ExtractAudio writes a 16 kHz mono MP3 of the input's audio track, the
// format the transcription API expects.
func (e *Executor) ExtractAudio(ctx context.Context, filePath, outputPath string) error {
	args := []string{
		"-i", filePath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	}
	_, stderr, err := e.run(ctx, e.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("audio extraction failed: %s", firstNonEmpty(stderr, err.Error()))
	}
	return nil
}

// Render runs ffmpeg with fully prepared arguments (the export path).
// On non-zero exit the stderr tail is carried in the returned error.
func (e *Executor) Render(ctx context.Context, args []string) error {
	_, stderr, err := e.run(ctx, e.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("video export failed: %s", firstNonEmpty(stderr, err.Error()))
	}
	return nil
}

// run executes a binary to completion, returning stdout and the stderr tail.
func (e *Executor) run(ctx context.Context, bin string, args []string) ([]byte, string, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout bytes.Buffer
	var stderrBuf bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})

	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		e.logger.Warn("ffmpeg command failed",
			"bin", filepath.Base(bin),
			"args", args,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrBuf.String(), 512),
		)
		return stdout.Bytes(), stderrBuf.String(), err
	}

	e.logger.Debug("ffmpeg command succeeded",
		"bin", filepath.Base(bin),
		"duration_ms", elapsed.Milliseconds(),
	)
	return stdout.Bytes(), stderrBuf.String(), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
