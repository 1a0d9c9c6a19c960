package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipdesk/clipdesk-agent/internal/capture"
	"github.com/clipdesk/clipdesk-agent/internal/config"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Post("/capture/screen/start", startScreenHandler(cfg))
		r.Post("/capture/webcam/start", startWebcamHandler(cfg))
		r.Post("/capture/stop", stopCaptureHandler(cfg))
		r.Get("/capture/status", captureStatusHandler(cfg))

		r.Get("/devices/cameras", listCamerasHandler(cfg))

		r.Post("/media/probe", probeHandler(cfg))
		r.Post("/media/thumbnail", thumbnailHandler(cfg))

		r.Post("/export", exportHandler(cfg))

		r.Post("/transcribe", transcribeHandler(cfg))
		r.Get("/transcribe/{clipID}", transcribeProgressHandler(cfg))
		r.Post("/transcripts/{id}/export", transcriptExportHandler(cfg))

		r.Get("/recordings", listRecordingsHandler(cfg))
		r.Delete("/recordings/{id}", deleteRecordingHandler(cfg))
		r.Get("/recordings/{id}/stream", streamRecordingHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: uptime,
		})
	}
}

func startScreenHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartScreenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		opts := capture.ScreenOptions{
			OutputPath:    req.OutputPath,
			Resolution:    defaultString(req.Resolution, "source"),
			FPS:           defaultInt(req.FPS, 30),
			CaptureCursor: req.CaptureCursor,
			CaptureClicks: req.CaptureClicks,
			AudioDevice:   req.AudioDevice,
		}
		if opts.OutputPath == "" {
			opts.OutputPath = recordingPath(cfg.RecordingsDir, "screen")
		}

		if err := cfg.Capture.StartScreen(r.Context(), opts); err != nil {
			writeCaptureError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, StartCaptureResponse{OutputPath: opts.OutputPath, Status: "recording"})
	}
}

func startWebcamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartWebcamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.CameraIndex < 0 {
			WriteError(w, http.StatusBadRequest, "camera index must not be negative", "BAD_REQUEST")
			return
		}

		opts := capture.WebcamOptions{
			OutputPath:  req.OutputPath,
			CameraIndex: req.CameraIndex,
			Resolution:  defaultString(req.Resolution, "source"),
			FPS:         defaultInt(req.FPS, 30),
			AudioDevice: req.AudioDevice,
		}
		if opts.OutputPath == "" {
			opts.OutputPath = recordingPath(cfg.RecordingsDir, "webcam")
		}

		if err := cfg.Capture.StartWebcam(r.Context(), opts); err != nil {
			writeCaptureError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, StartCaptureResponse{OutputPath: opts.OutputPath, Status: "recording"})
	}
}

func stopCaptureHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outputPath, err := cfg.Capture.Stop(r.Context())
		if err != nil {
			writeCaptureError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, StopCaptureResponse{OutputPath: outputPath, Status: "stopped"})
	}
}

func captureStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Capture.Status())
	}
}

func listCamerasHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cameras, err := cfg.Media.ListCameras(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := CamerasResponse{Cameras: make([]CameraResponse, len(cameras))}
		for i, c := range cameras {
			resp.Cameras[i] = CameraResponse{Index: c.Index, Name: c.Name}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listRecordingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := cfg.Repository.ListRecordings(r.Context(), 100)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list recordings", "INTERNAL_ERROR")
			return
		}

		resp := RecordingsResponse{Recordings: make([]RecordingResponse, len(recs))}
		for i, rec := range recs {
			resp.Recordings[i] = RecordingToResponse(rec)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func deleteRecordingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "recording id required", "BAD_REQUEST")
			return
		}

		rec, err := cfg.Repository.GetRecording(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to look up recording", "INTERNAL_ERROR")
			return
		}
		if rec == nil {
			WriteError(w, http.StatusNotFound, "recording not found", "NOT_FOUND")
			return
		}

		if err := cfg.Repository.DeleteRecording(r.Context(), id); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to delete recording", "INTERNAL_ERROR")
			return
		}

		// Catalog entry first, then the file; a missing file is not an error.
		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			cfg.Logger.Warn("failed to remove recording file", "path", rec.Path, "error", err)
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func streamRecordingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "recording id required", "BAD_REQUEST")
			return
		}
		cfg.Streamer.ServeRecording(w, r, id)
	}
}

func writeCaptureError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, capture.ErrAlreadyRecording):
		WriteError(w, http.StatusConflict, err.Error(), "ALREADY_RECORDING")
	case errors.Is(err, capture.ErrNotRecording):
		WriteError(w, http.StatusConflict, err.Error(), "NOT_RECORDING")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "CAPTURE_FAILED")
	}
}

func recordingPath(dir, prefix string) string {
	name := fmt.Sprintf("%s_%s.mp4", prefix, time.Now().Format("20060102_150405"))
	return filepath.Join(dir, name)
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
