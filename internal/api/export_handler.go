package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/clipdesk/clipdesk-agent/internal/export"
	"github.com/clipdesk/clipdesk-agent/internal/timeline"
)

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.OutputPath == "" {
			WriteError(w, http.StatusBadRequest, "output_path is required", "BAD_REQUEST")
			return
		}

		settings := export.Settings{
			OutputPath:        req.OutputPath,
			Resolution:        defaultString(req.Resolution, "source"),
			FPS:               defaultInt(req.FPS, 30),
			CompositionLength: req.CompositionLength,
		}

		err := cfg.Exporter.Export(r.Context(), req.Clips, settings)
		if err != nil {
			// Plan construction fails on client mistakes; anything past
			// that is an engine failure.
			if errors.Is(err, timeline.ErrEmptyTimeline) || errors.Is(err, timeline.ErrClipOrder) {
				WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_TIMELINE")
				return
			}
			if isValidationError(err) {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "EXPORT_FAILED")
			return
		}

		WriteJSON(w, http.StatusOK, ExportResponse{OutputPath: req.OutputPath, Status: "complete"})
	}
}

// isValidationError matches plan validation failures that carry no sentinel,
// like an unknown resolution name or a malformed clip.
func isValidationError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"invalid resolution", "invalid clip", "fps must be", "output path"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
