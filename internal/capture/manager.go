// Package capture owns the screen/webcam recording state machine. A single
// Manager guards the one-active-session invariant: starting while a session
// is active is rejected, and stop always returns the session to idle, even
// on failure paths.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/clipdesk/clipdesk-agent/internal/library"
	"github.com/clipdesk/clipdesk-agent/internal/metrics"
)

var (
	ErrAlreadyRecording = errors.New("recording is already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

const (
	KindScreen = "screen"
	KindWebcam = "webcam"

	// Grace between the quit signal and force-kill. Webcam encoders flush
	// more slowly than the screen path, so they get a longer window.
	defaultScreenGrace = 500 * time.Millisecond
	defaultWebcamGrace = 1000 * time.Millisecond

	// How long after spawn a webcam process is given before an exit is
	// treated as a startup failure.
	defaultStartupProbe = 500 * time.Millisecond
)

// Kind identifies what a session records.
type Kind struct {
	Type        string `json:"type"`
	CameraIndex int    `json:"camera_index,omitempty"`
}

// Status is a read-only snapshot of the session.
type Status struct {
	Active     bool    `json:"active"`
	ElapsedS   float64 `json:"elapsed_s"`
	OutputPath string  `json:"output_path,omitempty"`
	Kind       *Kind   `json:"kind,omitempty"`
}

// ScreenOptions configures a screen capture session.
type ScreenOptions struct {
	OutputPath    string
	Resolution    string // "WxH", or "source" for no rescale
	FPS           int
	CaptureCursor bool
	CaptureClicks bool
	AudioDevice   string // avfoundation audio selector; empty records no audio
}

// WebcamOptions configures a webcam capture session.
type WebcamOptions struct {
	OutputPath  string
	CameraIndex int
	Resolution  string
	FPS         int
	AudioDevice string
}

// Config wires a Manager. Launcher is required; Repo and Metrics are
// optional and skipped when nil. Zero durations fall back to defaults.
type Config struct {
	Launcher     Launcher
	ScreenDevice string // avfoundation video device index for screen capture
	Logger       *slog.Logger
	Repo         library.Repository
	Metrics      *metrics.Metrics
	ScreenGrace  time.Duration
	WebcamGrace  time.Duration
	StartupProbe time.Duration
}

// Manager is the capture session singleton. All state lives behind one
// mutex; the suspending work (spawn probe, grace sleep, process wait)
// happens only after the handle has been taken out of shared state.
type Manager struct {
	launcher     Launcher
	screenDevice string
	logger       *slog.Logger
	repo         library.Repository
	metrics      *metrics.Metrics
	screenGrace  time.Duration
	webcamGrace  time.Duration
	startupProbe time.Duration

	mu         sync.Mutex
	active     bool
	startedAt  time.Time
	outputPath string
	kind       Kind
	proc       Handle
}

func NewManager(cfg Config) *Manager {
	if cfg.ScreenGrace == 0 {
		cfg.ScreenGrace = defaultScreenGrace
	}
	if cfg.WebcamGrace == 0 {
		cfg.WebcamGrace = defaultWebcamGrace
	}
	if cfg.StartupProbe == 0 {
		cfg.StartupProbe = defaultStartupProbe
	}
	return &Manager{
		launcher:     cfg.Launcher,
		screenDevice: cfg.ScreenDevice,
		logger:       cfg.Logger,
		repo:         cfg.Repo,
		metrics:      cfg.Metrics,
		screenGrace:  cfg.ScreenGrace,
		webcamGrace:  cfg.WebcamGrace,
		startupProbe: cfg.StartupProbe,
	}
}

// StartScreen begins a screen recording. Returns ErrAlreadyRecording if a
// session is active; in that case nothing is spawned and no state changes.
func (m *Manager) StartScreen(ctx context.Context, opts ScreenOptions) error {
	if err := validateOutput(opts.OutputPath, opts.FPS); err != nil {
		return err
	}
	args := buildScreenArgs(m.screenDevice, opts)
	return m.start(ctx, args, Kind{Type: KindScreen}, opts.OutputPath, false)
}

// StartWebcam begins a webcam recording. Unlike the screen path, the spawned
// process is probed shortly after start: webcam capture fails immediately on
// permission or device errors, and that exit is surfaced as a start failure.
func (m *Manager) StartWebcam(ctx context.Context, opts WebcamOptions) error {
	if err := validateOutput(opts.OutputPath, opts.FPS); err != nil {
		return err
	}
	args := buildWebcamArgs(opts)
	return m.start(ctx, args, Kind{Type: KindWebcam, CameraIndex: opts.CameraIndex}, opts.OutputPath, true)
}

func (m *Manager) start(ctx context.Context, args []string, kind Kind, outputPath string, probe bool) error {
	// Reserve the session slot in the same critical section as the
	// check, so two concurrent starts cannot both spawn.
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return ErrAlreadyRecording
	}
	m.active = true
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		m.active = false
		m.mu.Unlock()
	}

	h, err := m.launcher(args)
	if err != nil {
		release()
		return fmt.Errorf("failed to start recording: %w", err)
	}

	if probe {
		select {
		case <-time.After(m.startupProbe):
		case <-ctx.Done():
		}
		if !h.Alive() {
			exit := h.Wait()
			release()
			if m.metrics != nil {
				m.metrics.RecordingFailed()
			}
			if strings.TrimSpace(exit.Stderr) != "" {
				return fmt.Errorf("recording failed to start: %s", classifyDiagnostic(exit.Stderr))
			}
			return fmt.Errorf("recording failed to start: ffmpeg exited with status %d", exit.Code)
		}
	}

	m.mu.Lock()
	m.proc = h
	m.startedAt = time.Now()
	m.outputPath = outputPath
	m.kind = kind
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordingStarted()
	}
	m.logger.Info("recording started",
		"kind", kind.Type,
		"camera_index", kind.CameraIndex,
		"output", outputPath,
	)
	return nil
}

// Stop ends the active session and returns the output path. The session is
// reset to idle no matter how the process handling goes; only the output
// file check decides success. A diagnostic captured alongside a valid
// non-empty file is logged, not returned as an error.
func (m *Manager) Stop(ctx context.Context) (string, error) {
	m.mu.Lock()
	if !m.active || m.proc == nil {
		m.mu.Unlock()
		return "", ErrNotRecording
	}
	// Take exclusive ownership of the handle so a concurrent Stop cannot
	// act on it twice.
	h := m.proc
	m.proc = nil
	outputPath := m.outputPath
	kind := m.kind
	startedAt := m.startedAt
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active = false
		m.startedAt = time.Time{}
		m.outputPath = ""
		m.mu.Unlock()
	}()

	var diagnostic string

	if !h.Alive() {
		// The process died on its own before stop was called. Keep its
		// stderr as a diagnostic but let the output check decide.
		exit := h.Wait()
		if exit.Code != 0 {
			diagnostic = classifyDiagnostic(exit.Stderr)
			if strings.TrimSpace(diagnostic) == "" {
				diagnostic = fmt.Sprintf("ffmpeg exited with status %d", exit.Code)
			}
		}
	} else {
		if err := h.SignalQuit(); err != nil {
			m.logger.Warn("failed to send quit signal", "error", err)
		}

		grace := m.screenGrace
		if kind.Type == KindWebcam {
			grace = m.webcamGrace
		}
		select {
		case <-time.After(grace):
		case <-ctx.Done():
		}

		if h.Alive() {
			if err := h.Kill(); err != nil {
				m.logger.Warn("failed to kill capture process", "error", err)
			}
		}

		exit := h.Wait()
		if exit.Code != 0 && strings.TrimSpace(exit.Stderr) != "" {
			diagnostic = classifyDiagnostic(exit.Stderr)
		}
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		if m.metrics != nil {
			m.metrics.RecordingFailed()
		}
		if diagnostic != "" {
			return "", fmt.Errorf("recording failed: %s", diagnostic)
		}
		return "", fmt.Errorf("recording produced no output at %s", outputPath)
	}

	if diagnostic != "" {
		m.logger.Warn("recording finished with diagnostics", "output", outputPath, "diagnostic", diagnostic)
	}

	if m.repo != nil {
		rec := &library.Recording{
			ID:        library.NewID(),
			Kind:      kind.Type,
			Path:      outputPath,
			DurationS: time.Since(startedAt).Seconds(),
			SizeBytes: info.Size(),
			CreatedAt: time.Now().UTC(),
		}
		if err := m.repo.CreateRecording(ctx, rec); err != nil {
			m.logger.Warn("failed to register recording", "error", err)
		}
	}

	if m.metrics != nil {
		m.metrics.RecordingCompleted()
	}
	m.logger.Info("recording stopped", "kind", kind.Type, "output", outputPath, "size_bytes", info.Size())
	return outputPath, nil
}

// Status returns a snapshot of the session. It never blocks on the process.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{Active: m.active}
	if m.active && !m.startedAt.IsZero() {
		st.ElapsedS = time.Since(m.startedAt).Seconds()
		st.OutputPath = m.outputPath
		kind := m.kind
		st.Kind = &kind
	}
	return st
}

func validateOutput(outputPath string, fps int) error {
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", fps)
	}
	return nil
}

func buildScreenArgs(screenDevice string, opts ScreenOptions) []string {
	audio := opts.AudioDevice
	if audio == "" {
		audio = "none"
	}

	args := []string{"-f", "avfoundation"}
	if opts.CaptureCursor {
		args = append(args, "-capture_cursor", "1")
	}
	if opts.CaptureClicks {
		args = append(args, "-capture_mouse_clicks", "1")
	}
	args = append(args, "-i", screenDevice+":"+audio)
	args = append(args, encoderArgs(opts.Resolution, opts.FPS)...)
	args = append(args, "-y", opts.OutputPath)
	return args
}

func buildWebcamArgs(opts WebcamOptions) []string {
	audio := opts.AudioDevice
	if audio == "" {
		audio = "none"
	}

	args := []string{
		"-f", "avfoundation",
		"-i", strconv.Itoa(opts.CameraIndex) + ":" + audio,
	}
	args = append(args, encoderArgs(opts.Resolution, opts.FPS)...)
	args = append(args, "-y", opts.OutputPath)
	return args
}

// encoderArgs is the shared low-latency encode policy for live capture.
func encoderArgs(resolution string, fps int) []string {
	args := []string{
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-r", strconv.Itoa(fps),
	}
	if resolution != "" && resolution != "source" {
		args = append(args, "-s", resolution)
	}
	return args
}

// classifyDiagnostic maps known ffmpeg stderr phrases to user-facing
// messages; anything unrecognised passes through untouched.
func classifyDiagnostic(stderr string) string {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission"),
		strings.Contains(lower, "not permitted"),
		strings.Contains(lower, "not authorized"):
		return "camera permission denied"
	case strings.Contains(lower, "device not found"),
		strings.Contains(lower, "could not find"),
		strings.Contains(lower, "no such device"):
		return "camera not found or inaccessible"
	default:
		return strings.TrimSpace(stderr)
	}
}
