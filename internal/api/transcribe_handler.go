package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clipdesk/clipdesk-agent/internal/transcribe"
)

func transcribeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Transcriber == nil {
			WriteError(w, http.StatusBadRequest, "transcription is not configured (missing API key)", "NOT_CONFIGURED")
			return
		}

		var req TranscribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.ClipID == "" {
			WriteError(w, http.StatusBadRequest, "clip_id is required", "BAD_REQUEST")
			return
		}

		videoPath := req.Path
		if videoPath == "" {
			rec, err := cfg.Repository.GetRecording(r.Context(), req.ClipID)
			if err != nil {
				WriteError(w, http.StatusInternalServerError, "failed to look up recording", "INTERNAL_ERROR")
				return
			}
			if rec == nil {
				WriteError(w, http.StatusNotFound, "recording not found", "NOT_FOUND")
				return
			}
			videoPath = rec.Path
		}

		tcfg := transcribe.DefaultConfig()
		tcfg.Language = req.Language

		// The request returns immediately; progress is polled via
		// GET /transcribe/{clipID}.
		go func() {
			if _, err := cfg.Transcriber.Run(context.Background(), req.ClipID, videoPath, tcfg); err != nil {
				cfg.Logger.Error("transcription job failed", "clip_id", req.ClipID, "error", err)
			}
		}()

		WriteJSON(w, http.StatusAccepted, TranscribeResponse{ClipID: req.ClipID, Status: "started"})
	}
}

func transcribeProgressHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clipID := chi.URLParam(r, "clipID")
		if clipID == "" {
			WriteError(w, http.StatusBadRequest, "clip id required", "BAD_REQUEST")
			return
		}

		if cfg.Progress != nil {
			if p, ok := cfg.Progress.Latest(clipID); ok {
				WriteJSON(w, http.StatusOK, p)
				return
			}
		}

		// No live job; a stored transcript means a past run completed.
		tr, err := cfg.Repository.GetTranscriptByClip(r.Context(), clipID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to look up transcript", "INTERNAL_ERROR")
			return
		}
		if tr == nil {
			WriteError(w, http.StatusNotFound, "no transcription for clip", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, transcribe.Progress{
			ClipID:  clipID,
			Stage:   transcribe.StageComplete,
			Percent: 100,
		})
	}
}

func transcriptExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "transcript id required", "BAD_REQUEST")
			return
		}

		var req TranscriptExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		record, err := cfg.Repository.GetTranscript(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to look up transcript", "INTERNAL_ERROR")
			return
		}
		if record == nil {
			WriteError(w, http.StatusNotFound, "transcript not found", "NOT_FOUND")
			return
		}

		var transcript transcribe.Transcript
		if err := json.Unmarshal([]byte(record.Payload), &transcript); err != nil {
			cfg.Logger.Error("stored transcript payload is unreadable", "transcript_id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "stored transcript is unreadable", "INTERNAL_ERROR")
			return
		}

		var body []byte
		var contentType string
		switch req.Format {
		case "txt":
			body = []byte(transcribe.FormatTXT(&transcript))
			contentType = "text/plain; charset=utf-8"
		case "srt":
			body = []byte(transcribe.FormatSRT(&transcript))
			contentType = "application/x-subrip"
		case "vtt":
			body = []byte(transcribe.FormatVTT(&transcript))
			contentType = "text/vtt"
		case "json":
			body, err = transcribe.FormatJSON(&transcript)
			if err != nil {
				WriteError(w, http.StatusInternalServerError, "failed to encode transcript", "INTERNAL_ERROR")
				return
			}
			contentType = "application/json"
		default:
			WriteError(w, http.StatusBadRequest, "format must be one of txt, srt, vtt, json", "BAD_REQUEST")
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}
