// Package library is the local catalog of finished recordings and saved
// transcripts. The UI browses this catalog; the capture, export, and
// transcription paths write into it.
package library

import (
	"time"

	"github.com/google/uuid"
)

const (
	RecordingKindScreen = "screen"
	RecordingKindWebcam = "webcam"
	RecordingKindExport = "export"
)

type Recording struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Path      string    `json:"path"`
	DurationS float64   `json:"duration_s"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptRecord is the persisted form of a transcript. The full
// transcript (segments, words) is kept as a JSON payload; the columns carry
// only what list views need.
type TranscriptRecord struct {
	ID        string    `json:"id"`
	ClipID    string    `json:"clip_id"`
	Language  string    `json:"language"`
	DurationS float64   `json:"duration_s"`
	FullText  string    `json:"full_text"`
	Payload   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func NewID() string {
	return uuid.NewString()
}
