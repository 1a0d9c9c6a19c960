package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipdesk/clipdesk-agent/internal/capture"
	"github.com/clipdesk/clipdesk-agent/internal/export"
	"github.com/clipdesk/clipdesk-agent/internal/library"
	"github.com/clipdesk/clipdesk-agent/internal/media"
	"github.com/clipdesk/clipdesk-agent/internal/timeline"
	"github.com/clipdesk/clipdesk-agent/internal/transcribe"
)

type fakeCapture struct {
	startErr   error
	stopErr    error
	stopPath   string
	status     capture.Status
	lastScreen *capture.ScreenOptions
	lastWebcam *capture.WebcamOptions
}

func (f *fakeCapture) StartScreen(ctx context.Context, opts capture.ScreenOptions) error {
	f.lastScreen = &opts
	return f.startErr
}

func (f *fakeCapture) StartWebcam(ctx context.Context, opts capture.WebcamOptions) error {
	f.lastWebcam = &opts
	return f.startErr
}

func (f *fakeCapture) Stop(ctx context.Context) (string, error) {
	return f.stopPath, f.stopErr
}

func (f *fakeCapture) Status() capture.Status {
	return f.status
}

type fakeMedia struct {
	meta      *media.Metadata
	probeErr  error
	thumbErr  error
	thumbData []byte
	cameras   []media.Camera
}

func (f *fakeMedia) Probe(ctx context.Context, path string) (*media.Metadata, error) {
	return f.meta, f.probeErr
}

func (f *fakeMedia) Thumbnail(ctx context.Context, path string, timestamp float64, outputPath string) error {
	if f.thumbErr != nil {
		return f.thumbErr
	}
	return os.WriteFile(outputPath, f.thumbData, 0644)
}

func (f *fakeMedia) ListCameras(ctx context.Context) ([]media.Camera, error) {
	return f.cameras, nil
}

type fakeExporter struct {
	err   error
	clips []timeline.Clip
}

func (f *fakeExporter) Export(ctx context.Context, clips []timeline.Clip, settings export.Settings) error {
	f.clips = clips
	return f.err
}

type fakeTranscriptionService struct {
	done chan string
	err  error
}

func (f *fakeTranscriptionService) Run(ctx context.Context, clipID, videoPath string, cfg transcribe.Config) (*transcribe.Transcript, error) {
	if f.done != nil {
		f.done <- videoPath
	}
	return nil, f.err
}

// stubRepo backs the handlers without a real database.
type stubRepo struct {
	recordings  map[string]*library.Recording
	transcripts map[string]*library.TranscriptRecord
	configVals  map[string]string
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		recordings:  make(map[string]*library.Recording),
		transcripts: make(map[string]*library.TranscriptRecord),
		configVals:  map[string]string{"auth_token": "test-token"},
	}
}

func (s *stubRepo) CreateRecording(ctx context.Context, rec *library.Recording) error {
	s.recordings[rec.ID] = rec
	return nil
}

func (s *stubRepo) GetRecording(ctx context.Context, id string) (*library.Recording, error) {
	return s.recordings[id], nil
}

func (s *stubRepo) ListRecordings(ctx context.Context, limit int) ([]*library.Recording, error) {
	var recs []*library.Recording
	for _, rec := range s.recordings {
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *stubRepo) DeleteRecording(ctx context.Context, id string) error {
	delete(s.recordings, id)
	return nil
}

func (s *stubRepo) CreateTranscript(ctx context.Context, tr *library.TranscriptRecord) error {
	s.transcripts[tr.ID] = tr
	return nil
}

func (s *stubRepo) GetTranscript(ctx context.Context, id string) (*library.TranscriptRecord, error) {
	return s.transcripts[id], nil
}

func (s *stubRepo) GetTranscriptByClip(ctx context.Context, clipID string) (*library.TranscriptRecord, error) {
	for _, tr := range s.transcripts {
		if tr.ClipID == clipID {
			return tr, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListTranscripts(ctx context.Context, limit int) ([]*library.TranscriptRecord, error) {
	var trs []*library.TranscriptRecord
	for _, tr := range s.transcripts {
		trs = append(trs, tr)
	}
	return trs, nil
}

func (s *stubRepo) GetConfig(ctx context.Context, key string) (string, error) {
	return s.configVals[key], nil
}

func (s *stubRepo) SetConfig(ctx context.Context, key, value string) error {
	s.configVals[key] = value
	return nil
}

func testConfig(t *testing.T) ServerConfig {
	t.Helper()
	return ServerConfig{
		Port:          8690,
		RecordingsDir: t.TempDir(),
		TempDir:       t.TempDir(),
		Capture:       &fakeCapture{},
		Exporter:      &fakeExporter{},
		Media:         &fakeMedia{},
		Repository:    newStubRepo(),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		StartTime:     time.Now(),
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data)))
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestHealthHandler(t *testing.T) {
	cfg := testConfig(t)

	rr := httptest.NewRecorder()
	healthHandler(cfg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestStartScreenHandler_GeneratesOutputPath(t *testing.T) {
	cfg := testConfig(t)
	fc := cfg.Capture.(*fakeCapture)

	rr := postJSON(t, startScreenHandler(cfg), "/capture/screen/start", StartScreenRequest{FPS: 30})

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, body = %s", rr.Code, rr.Body.String())
	}
	if fc.lastScreen == nil {
		t.Fatal("StartScreen was not called")
	}
	if fc.lastScreen.OutputPath == "" {
		t.Error("output path was not generated")
	}
	if fc.lastScreen.Resolution != "source" {
		t.Errorf("resolution = %q, want source default", fc.lastScreen.Resolution)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "recording" {
		t.Errorf("status = %v, want recording", body["status"])
	}
}

func TestStartScreenHandler_Conflict(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.(*fakeCapture).startErr = capture.ErrAlreadyRecording

	rr := postJSON(t, startScreenHandler(cfg), "/capture/screen/start", StartScreenRequest{})

	if rr.Code != http.StatusConflict {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusConflict)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "ALREADY_RECORDING" {
		t.Errorf("code = %v, want ALREADY_RECORDING", body["code"])
	}
}

func TestStartWebcamHandler_NegativeIndex(t *testing.T) {
	cfg := testConfig(t)

	rr := postJSON(t, startWebcamHandler(cfg), "/capture/webcam/start", StartWebcamRequest{CameraIndex: -1})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestStartWebcamHandler_StartupFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.(*fakeCapture).startErr = errors.New("failed to start webcam recording: camera permission denied")

	rr := postJSON(t, startWebcamHandler(cfg), "/capture/webcam/start", StartWebcamRequest{CameraIndex: 0})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "CAPTURE_FAILED" {
		t.Errorf("code = %v, want CAPTURE_FAILED", body["code"])
	}
}

func TestStopCaptureHandler(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.(*fakeCapture).stopPath = "/recordings/rec.mp4"

	rr := httptest.NewRecorder()
	stopCaptureHandler(cfg).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/capture/stop", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["output_path"] != "/recordings/rec.mp4" {
		t.Errorf("output_path = %v", body["output_path"])
	}
}

func TestStopCaptureHandler_Idle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.(*fakeCapture).stopErr = capture.ErrNotRecording

	rr := httptest.NewRecorder()
	stopCaptureHandler(cfg).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/capture/stop", nil))

	if rr.Code != http.StatusConflict {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusConflict)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "NOT_RECORDING" {
		t.Errorf("code = %v, want NOT_RECORDING", body["code"])
	}
}

func TestCaptureStatusHandler(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.(*fakeCapture).status = capture.Status{
		Active:     true,
		ElapsedS:   12.5,
		OutputPath: "/recordings/live.mp4",
		Kind:       &capture.Kind{Type: capture.KindScreen},
	}

	rr := httptest.NewRecorder()
	captureStatusHandler(cfg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/capture/status", nil))

	body := decodeJSONBody(t, rr)
	if body["active"] != true {
		t.Errorf("active = %v, want true", body["active"])
	}
	if body["output_path"] != "/recordings/live.mp4" {
		t.Errorf("output_path = %v", body["output_path"])
	}
}

func TestListCamerasHandler(t *testing.T) {
	cfg := testConfig(t)
	cfg.Media.(*fakeMedia).cameras = []media.Camera{{Index: 0, Name: "Built-in Camera"}}

	rr := httptest.NewRecorder()
	listCamerasHandler(cfg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/devices/cameras", nil))

	var resp CamerasResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Cameras) != 1 || resp.Cameras[0].Name != "Built-in Camera" {
		t.Errorf("cameras = %+v", resp.Cameras)
	}
}

func TestProbeHandler(t *testing.T) {
	cfg := testConfig(t)
	cfg.Media.(*fakeMedia).meta = &media.Metadata{Duration: 10.5, Width: 1920, Height: 1080, FPS: 30}

	rr := postJSON(t, probeHandler(cfg), "/media/probe", ProbeRequest{Path: "/videos/a.mp4"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["duration"] != 10.5 {
		t.Errorf("duration = %v", body["duration"])
	}
}

func TestProbeHandler_MissingPath(t *testing.T) {
	cfg := testConfig(t)

	rr := postJSON(t, probeHandler(cfg), "/media/probe", ProbeRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", rr.Code)
	}
}

func TestThumbnailHandler(t *testing.T) {
	cfg := testConfig(t)
	cfg.Media.(*fakeMedia).thumbData = []byte("jpeg-bytes")

	rr := postJSON(t, thumbnailHandler(cfg), "/media/thumbnail", ThumbnailRequest{Path: "/videos/a.mp4", Timestamp: 1.5})

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp ThumbnailResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	decoded, err := base64.StdEncoding.DecodeString(resp.ImageBase64)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != "jpeg-bytes" {
		t.Errorf("decoded thumbnail = %q", decoded)
	}
}

func TestExportHandler(t *testing.T) {
	cfg := testConfig(t)

	rr := postJSON(t, exportHandler(cfg), "/export", ExportRequest{
		Clips:             []timeline.Clip{{SourcePath: "/v/a.mp4", Duration: 5, TrimEnd: 5}},
		OutputPath:        "/out/final.mp4",
		Resolution:        "720p",
		FPS:               30,
		CompositionLength: 5,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, body = %s", rr.Code, rr.Body.String())
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "complete" {
		t.Errorf("status = %v, want complete", body["status"])
	}
}

func TestExportHandler_EmptyTimeline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Exporter.(*fakeExporter).err = timeline.ErrEmptyTimeline

	rr := postJSON(t, exportHandler(cfg), "/export", ExportRequest{OutputPath: "/out/final.mp4"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "INVALID_TIMELINE" {
		t.Errorf("code = %v, want INVALID_TIMELINE", body["code"])
	}
}

func TestExportHandler_UnknownResolution(t *testing.T) {
	cfg := testConfig(t)
	cfg.Exporter.(*fakeExporter).err = errors.New(`invalid resolution "4k"`)

	rr := postJSON(t, exportHandler(cfg), "/export", ExportRequest{OutputPath: "/out/final.mp4"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", rr.Code)
	}
}

func TestExportHandler_EngineFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Exporter.(*fakeExporter).err = errors.New("video export failed: exit status 1")

	rr := postJSON(t, exportHandler(cfg), "/export", ExportRequest{OutputPath: "/out/final.mp4"})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status code = %d, want 500", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "EXPORT_FAILED" {
		t.Errorf("code = %v, want EXPORT_FAILED", body["code"])
	}
}

func TestDeleteRecordingHandler(t *testing.T) {
	cfg := testConfig(t)
	repo := cfg.Repository.(*stubRepo)

	path := filepath.Join(t.TempDir(), "old.mp4")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	repo.recordings["r1"] = &library.Recording{ID: "r1", Path: path}

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/recordings/r1", nil), "id", "r1")
	rr := httptest.NewRecorder()
	deleteRecordingHandler(cfg).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status code = %d, want 204", rr.Code)
	}
	if _, ok := repo.recordings["r1"]; ok {
		t.Error("recording still in catalog")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("recording file not removed")
	}
}

func TestDeleteRecordingHandler_NotFound(t *testing.T) {
	cfg := testConfig(t)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/recordings/nope", nil), "id", "nope")
	rr := httptest.NewRecorder()
	deleteRecordingHandler(cfg).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status code = %d, want 404", rr.Code)
	}
}

func TestTranscribeHandler_NotConfigured(t *testing.T) {
	cfg := testConfig(t)

	rr := postJSON(t, transcribeHandler(cfg), "/transcribe", TranscribeRequest{ClipID: "c1"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "NOT_CONFIGURED" {
		t.Errorf("code = %v, want NOT_CONFIGURED", body["code"])
	}
}

func TestTranscribeHandler_ResolvesPathFromLibrary(t *testing.T) {
	cfg := testConfig(t)
	done := make(chan string, 1)
	cfg.Transcriber = &fakeTranscriptionService{done: done}
	repo := cfg.Repository.(*stubRepo)
	repo.recordings["c1"] = &library.Recording{ID: "c1", Path: "/recordings/c1.mp4"}

	rr := postJSON(t, transcribeHandler(cfg), "/transcribe", TranscribeRequest{ClipID: "c1"})

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status code = %d, want 202", rr.Code)
	}

	select {
	case path := <-done:
		if path != "/recordings/c1.mp4" {
			t.Errorf("video path = %q", path)
		}
	case <-time.After(time.Second):
		t.Fatal("transcription job never ran")
	}
}

func TestTranscribeHandler_UnknownClip(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcriber = &fakeTranscriptionService{}

	rr := postJSON(t, transcribeHandler(cfg), "/transcribe", TranscribeRequest{ClipID: "missing"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status code = %d, want 404", rr.Code)
	}
}
