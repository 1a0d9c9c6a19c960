package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// whisperResponse mirrors the verbose_json transcription response.
type whisperResponse struct {
	Task     string           `json:"task"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Words    []whisperWord    `json:"words"`
}

type whisperSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Client talks to the speech-to-text API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// Transcribe uploads the audio file and returns the mapped transcript.
// The transcript's ClipID is left empty; the pipeline assigns it.
func (c *Client) Transcribe(ctx context.Context, audioPath string, cfg Config) (*Transcript, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	filePart, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := filePart.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}

	fields := map[string]string{
		"model":           cfg.Model,
		"response_format": cfg.ResponseFormat,
		"temperature":     strconv.FormatFloat(cfg.Temperature, 'f', -1, 64),
	}
	if cfg.Language != "" {
		fields["language"] = cfg.Language
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalise multipart body: %w", err)
	}

	url := c.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Info("uploading audio for transcription",
		"url", url,
		"model", cfg.Model,
		"audio_bytes", len(audio),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("transcription API error %d: %s", resp.StatusCode, string(respBody))
	}

	var wr whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("failed to parse transcription response: %w", err)
	}

	return mapResponse(&wr), nil
}

// mapResponse converts the API's verbose_json shape into a Transcript.
// The API reports no per-segment confidence, so Confidence stays nil.
func mapResponse(wr *whisperResponse) *Transcript {
	segments := make([]Segment, len(wr.Segments))
	for i, s := range wr.Segments {
		segments[i] = Segment{
			ID:    uuid.NewString(),
			Text:  strings.TrimSpace(s.Text),
			Start: s.Start,
			End:   s.End,
		}
	}

	words := make([]Word, len(wr.Words))
	for i, w := range wr.Words {
		words[i] = Word{Word: w.Word, Start: w.Start, End: w.End}
	}

	return &Transcript{
		ID:        uuid.NewString(),
		Language:  wr.Language,
		Segments:  segments,
		Words:     words,
		FullText:  wr.Text,
		Duration:  wr.Duration,
		CreatedAt: time.Now().UTC(),
	}
}
