package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clipdesk/clipdesk-agent/internal/capture"
	"github.com/clipdesk/clipdesk-agent/internal/export"
	"github.com/clipdesk/clipdesk-agent/internal/library"
	"github.com/clipdesk/clipdesk-agent/internal/media"
	"github.com/clipdesk/clipdesk-agent/internal/timeline"
	"github.com/clipdesk/clipdesk-agent/internal/transcribe"
)

// CaptureService is the capture manager surface the API needs.
type CaptureService interface {
	StartScreen(ctx context.Context, opts capture.ScreenOptions) error
	StartWebcam(ctx context.Context, opts capture.WebcamOptions) error
	Stop(ctx context.Context) (string, error)
	Status() capture.Status
}

// ExportService renders a timeline to a file.
type ExportService interface {
	Export(ctx context.Context, clips []timeline.Clip, settings export.Settings) error
}

// MediaService probes files, renders thumbnails, and lists cameras.
type MediaService interface {
	Probe(ctx context.Context, path string) (*media.Metadata, error)
	Thumbnail(ctx context.Context, path string, timestamp float64, outputPath string) error
	ListCameras(ctx context.Context) ([]media.Camera, error)
}

// TranscriptionService runs the transcription pipeline for one clip.
type TranscriptionService interface {
	Run(ctx context.Context, clipID, videoPath string, cfg transcribe.Config) (*transcribe.Transcript, error)
}

// ProgressSource reports the latest transcription progress per clip.
type ProgressSource interface {
	Latest(clipID string) (transcribe.Progress, bool)
}

// RecordingStreamer serves recording files with range support.
type RecordingStreamer interface {
	ServeRecording(w http.ResponseWriter, r *http.Request, id string)
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port          int
	RecordingsDir string
	TempDir       string
	Capture       CaptureService
	Exporter      ExportService
	Media         MediaService
	Transcriber   TranscriptionService
	Progress      ProgressSource
	Streamer      RecordingStreamer
	Repository    library.Repository
	Metrics       http.Handler
	Logger        *slog.Logger
	StartTime     time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
