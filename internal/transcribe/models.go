// Package transcribe integrates the cloud speech-to-text API: audio
// extraction, the multipart upload client, progress events towards the UI,
// and subtitle/text export of finished transcripts.
package transcribe

import "time"

// Segment is one timed span of transcribed speech.
type Segment struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Confidence *float64 `json:"confidence"`
}

// Word carries optional word-level timing.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the full transcription of one clip.
type Transcript struct {
	ID        string    `json:"id"`
	ClipID    string    `json:"clipId"`
	Language  string    `json:"language"`
	Segments  []Segment `json:"segments"`
	Words     []Word    `json:"words"`
	FullText  string    `json:"fullText"`
	Duration  float64   `json:"duration"`
	CreatedAt time.Time `json:"createdAt"`
}

// Config selects model and response options for one transcription request.
type Config struct {
	Language       string  `json:"language,omitempty"`
	Model          string  `json:"model"`
	ResponseFormat string  `json:"responseFormat"`
	Temperature    float64 `json:"temperature"`
}

// DefaultConfig returns the settings used unless the caller overrides them.
func DefaultConfig() Config {
	return Config{
		Model:          "whisper-1",
		ResponseFormat: "verbose_json",
		Temperature:    0,
	}
}

// Progress is a fire-and-forget lifecycle event for the UI.
type Progress struct {
	ClipID  string  `json:"clipId"`
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

const (
	StageExtracting   = "extracting"
	StageTranscribing = "transcribing"
	StageProcessing   = "processing"
	StageComplete     = "complete"
)
