package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/clipdesk/clipdesk-agent/internal/library"
	"github.com/clipdesk/clipdesk-agent/internal/metrics"
)

// AudioExtractor pulls a mono audio track out of a video file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// Transcriber turns an audio file into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, cfg Config) (*Transcript, error)
}

// TranscriptStore persists finished transcripts.
type TranscriptStore interface {
	CreateTranscript(ctx context.Context, tr *library.TranscriptRecord) error
}

// Pipeline runs the extract-upload-persist sequence for one clip.
type Pipeline struct {
	extractor AudioExtractor
	client    Transcriber
	repo      TranscriptStore
	notifier  Notifier
	metrics   *metrics.Metrics
	tempDir   string
	logger    *slog.Logger
}

func NewPipeline(extractor AudioExtractor, client Transcriber, repo TranscriptStore, notifier Notifier, m *metrics.Metrics, tempDir string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		client:    client,
		repo:      repo,
		notifier:  notifier,
		metrics:   m,
		tempDir:   tempDir,
		logger:    logger,
	}
}

// Run transcribes the clip at videoPath. The extracted audio file is
// temporary and removed on all paths; the finished transcript is persisted
// before the complete event fires.
func (p *Pipeline) Run(ctx context.Context, clipID, videoPath string, cfg Config) (*Transcript, error) {
	p.notify(clipID, StageExtracting, 10, "Extracting audio")

	audioPath := filepath.Join(p.tempDir, "audio_"+uuid.NewString()+".mp3")
	defer func() {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("failed to remove temp audio", "path", audioPath, "error", err)
		}
	}()

	if err := p.extractor.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return nil, p.fail(clipID, fmt.Errorf("audio extraction failed: %w", err))
	}

	p.notify(clipID, StageTranscribing, 40, "Uploading audio for transcription")

	transcript, err := p.client.Transcribe(ctx, audioPath, cfg)
	if err != nil {
		return nil, p.fail(clipID, err)
	}
	transcript.ClipID = clipID

	p.notify(clipID, StageProcessing, 80, "Saving transcript")

	payload, err := json.Marshal(transcript)
	if err != nil {
		return nil, p.fail(clipID, fmt.Errorf("failed to encode transcript: %w", err))
	}
	record := &library.TranscriptRecord{
		ID:        transcript.ID,
		ClipID:    clipID,
		Language:  transcript.Language,
		DurationS: transcript.Duration,
		FullText:  transcript.FullText,
		Payload:   string(payload),
		CreatedAt: transcript.CreatedAt,
	}
	if err := p.repo.CreateTranscript(ctx, record); err != nil {
		return nil, p.fail(clipID, fmt.Errorf("failed to persist transcript: %w", err))
	}

	if p.metrics != nil {
		p.metrics.TranscriptionCompleted()
	}
	p.notify(clipID, StageComplete, 100, "Transcription complete")
	p.logger.Info("transcription complete",
		"clip_id", clipID,
		"segments", len(transcript.Segments),
		"duration_s", transcript.Duration,
	)
	return transcript, nil
}

func (p *Pipeline) fail(clipID string, err error) error {
	if p.metrics != nil {
		p.metrics.TranscriptionFailed()
	}
	p.logger.Error("transcription failed", "clip_id", clipID, "error", err)
	return err
}

func (p *Pipeline) notify(clipID, stage string, percent float64, message string) {
	if p.notifier == nil {
		return
	}
	p.notifier.Notify(Progress{
		ClipID:  clipID,
		Stage:   stage,
		Percent: percent,
		Message: message,
	})
}
