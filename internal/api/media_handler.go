package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/clipdesk/clipdesk-agent/internal/library"
)

func probeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProbeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		meta, err := cfg.Media.Probe(r.Context(), req.Path)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "PROBE_FAILED")
			return
		}
		WriteJSON(w, http.StatusOK, meta)
	}
}

func thumbnailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ThumbnailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}
		if req.Timestamp < 0 {
			WriteError(w, http.StatusBadRequest, "timestamp must not be negative", "BAD_REQUEST")
			return
		}

		thumbPath := filepath.Join(cfg.TempDir, "thumb_"+library.NewID()+".jpg")
		defer os.Remove(thumbPath)

		if err := cfg.Media.Thumbnail(r.Context(), req.Path, req.Timestamp, thumbPath); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "THUMBNAIL_FAILED")
			return
		}

		data, err := os.ReadFile(thumbPath)
		if err != nil {
			cfg.Logger.Error("failed to read thumbnail", "path", thumbPath, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to read thumbnail", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, ThumbnailResponse{
			ImageBase64: base64.StdEncoding.EncodeToString(data),
		})
	}
}
