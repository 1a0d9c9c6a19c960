package api

import (
	"time"

	"github.com/clipdesk/clipdesk-agent/internal/library"
	"github.com/clipdesk/clipdesk-agent/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StartScreenRequest struct {
	OutputPath    string `json:"output_path,omitempty"`
	Resolution    string `json:"resolution,omitempty"`
	FPS           int    `json:"fps,omitempty"`
	CaptureCursor bool   `json:"capture_cursor"`
	CaptureClicks bool   `json:"capture_clicks"`
	AudioDevice   string `json:"audio_device,omitempty"`
}

type StartWebcamRequest struct {
	OutputPath  string `json:"output_path,omitempty"`
	CameraIndex int    `json:"camera_index"`
	Resolution  string `json:"resolution,omitempty"`
	FPS         int    `json:"fps,omitempty"`
	AudioDevice string `json:"audio_device,omitempty"`
}

type StartCaptureResponse struct {
	OutputPath string `json:"output_path"`
	Status     string `json:"status"`
}

type StopCaptureResponse struct {
	OutputPath string `json:"output_path"`
	Status     string `json:"status"`
}

type CameraResponse struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

type CamerasResponse struct {
	Cameras []CameraResponse `json:"cameras"`
}

type ProbeRequest struct {
	Path string `json:"path"`
}

type ThumbnailRequest struct {
	Path      string  `json:"path"`
	Timestamp float64 `json:"timestamp"`
}

type ThumbnailResponse struct {
	ImageBase64 string `json:"image_base64"`
}

type ExportRequest struct {
	Clips             []timeline.Clip `json:"clips"`
	OutputPath        string          `json:"output_path"`
	Resolution        string          `json:"resolution"`
	FPS               int             `json:"fps"`
	CompositionLength float64         `json:"composition_length"`
}

type ExportResponse struct {
	OutputPath string `json:"output_path"`
	Status     string `json:"status"`
}

type TranscribeRequest struct {
	ClipID   string `json:"clip_id"`
	Path     string `json:"path,omitempty"`
	Language string `json:"language,omitempty"`
}

type TranscribeResponse struct {
	ClipID string `json:"clip_id"`
	Status string `json:"status"`
}

type TranscriptExportRequest struct {
	Format string `json:"format"`
}

type RecordingResponse struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Path      string  `json:"path"`
	DurationS float64 `json:"duration_s"`
	SizeBytes int64   `json:"size_bytes"`
	CreatedAt string  `json:"created_at"`
}

type RecordingsResponse struct {
	Recordings []RecordingResponse `json:"recordings"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func RecordingToResponse(rec *library.Recording) RecordingResponse {
	return RecordingResponse{
		ID:        rec.ID,
		Kind:      rec.Kind,
		Path:      rec.Path,
		DurationS: rec.DurationS,
		SizeBytes: rec.SizeBytes,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}
