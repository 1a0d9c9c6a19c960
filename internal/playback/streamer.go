package playback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/clipdesk/clipdesk-agent/internal/library"
)

// RecordingSource resolves recording IDs to catalog entries.
type RecordingSource interface {
	GetRecording(ctx context.Context, id string) (*library.Recording, error)
}

// Streamer serves recording files by ID.
type Streamer struct {
	source RecordingSource
	logger *slog.Logger
}

func NewStreamer(source RecordingSource, logger *slog.Logger) *Streamer {
	return &Streamer{source: source, logger: logger}
}

// ServeRecording looks up the recording and streams its file, honouring a
// Range header. Lookup and file errors are written directly to the response.
func (s *Streamer) ServeRecording(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.source.GetRecording(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to look up recording", "recording_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "recording not found", http.StatusNotFound)
		return
	}

	file, err := os.Open(rec.Path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "recording file missing", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to open recording file", "path", rec.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	size := stat.Size()

	contentType := mime.TypeByExtension(filepath.Ext(rec.Path))
	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	rng, err := parseRangeHeader(r.Header.Get("Range"), size)
	if err == ErrUnsatisfiable {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}
	// An unparseable Range header falls back to the full file.
	if rng == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", rng.length()))
	w.Header().Set("Content-Range", rng.contentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(rng.start, io.SeekStart); err != nil {
		s.logger.Error("failed to seek recording file", "path", rec.Path, "error", err)
		return
	}
	io.CopyN(w, file, rng.length())
}
