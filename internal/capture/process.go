package capture

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

const maxStderrBytes = 8 * 1024

// Handle wraps a spawned capture process. Exactly one goroutine owns a
// Handle at any time: the manager while recording, then the stop routine
// once it has taken the handle out of shared state.
type Handle interface {
	// SignalQuit writes ffmpeg's graceful-quit byte ('q') to stdin.
	SignalQuit() error
	// Alive reports whether the process is still running.
	Alive() bool
	// Kill force-terminates the process.
	Kill() error
	// Wait blocks until the process has been reaped and returns its exit
	// code plus the captured stderr tail. Safe to call more than once.
	Wait() ExitState
}

// ExitState is the terminal state of a capture process.
type ExitState struct {
	Code   int
	Stderr string
}

// Launcher spawns a capture process from prepared ffmpeg arguments.
// Tests substitute a fake; production uses NewFFmpegLauncher.
type Launcher func(args []string) (Handle, error)

// NewFFmpegLauncher returns a Launcher that spawns the given ffmpeg binary
// with stdin piped (for the quit signal) and stderr captured (for
// diagnostics). Stdout is captured but never parsed.
func NewFFmpegLauncher(ffmpegPath string, logger *slog.Logger) Launcher {
	return func(args []string) (Handle, error) {
		cmd := exec.Command(ffmpegPath, args...)

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
		}

		h := &ffmpegHandle{
			cmd:   cmd,
			stdin: stdin,
			done:  make(chan struct{}),
		}
		cmd.Stderr = &h.stderr
		cmd.Stdout = io.Discard

		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
		}

		logger.Debug("capture process spawned", "pid", cmd.Process.Pid, "args", args)

		// Reap in the background so Alive is a channel check, not a
		// signal probe racing the OS.
		go func() {
			h.waitErr = cmd.Wait()
			close(h.done)
		}()

		return h, nil
	}
}

type ffmpegHandle struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  tailBuffer
	done    chan struct{}
	waitErr error

	quitOnce sync.Once
}

func (h *ffmpegHandle) SignalQuit() error {
	var err error
	h.quitOnce.Do(func() {
		if _, werr := h.stdin.Write([]byte("q")); werr != nil {
			err = werr
			return
		}
		err = h.stdin.Close()
	})
	return err
}

func (h *ffmpegHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *ffmpegHandle) Kill() error {
	return h.cmd.Process.Kill()
}

func (h *ffmpegHandle) Wait() ExitState {
	<-h.done

	code := 0
	if h.waitErr != nil {
		if exitErr, ok := h.waitErr.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	return ExitState{Code: code, Stderr: h.stderr.String()}
}

// tailBuffer keeps only the last maxStderrBytes written. It is written to
// by the reaper goroutine and read only after done is closed, so it needs
// no locking of its own.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if t.buf.Len() > maxStderrBytes {
		b := t.buf.Bytes()
		t.buf.Reset()
		t.buf.Write(b[len(b)-maxStderrBytes:])
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
