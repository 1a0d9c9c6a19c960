package transcribe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("fake-mp3-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const verboseJSONResponse = `{
	"task": "transcribe",
	"language": "english",
	"duration": 12.34,
	"text": "Hello there. General greeting.",
	"segments": [
		{"id": 0, "start": 0.0, "end": 5.0, "text": " Hello there."},
		{"id": 1, "start": 5.0, "end": 12.34, "text": " General greeting."}
	],
	"words": [
		{"word": "Hello", "start": 0.0, "end": 0.4}
	]
}`

func TestClientTranscribe(t *testing.T) {
	var gotAuth, gotModel, gotFormat, gotTemp, gotFilename string
	var gotLanguageSet bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		gotTemp = r.FormValue("temperature")
		_, gotLanguageSet = r.MultipartForm.Value["language"]

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, verboseJSONResponse)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", testLogger())
	tr, err := c.Transcribe(context.Background(), writeAudioFile(t), DefaultConfig())
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotModel != "whisper-1" || gotFormat != "verbose_json" || gotTemp != "0" {
		t.Errorf("form fields = %q %q %q", gotModel, gotFormat, gotTemp)
	}
	if gotLanguageSet {
		t.Error("language field sent despite empty config language")
	}
	if gotFilename != "clip.mp3" {
		t.Errorf("uploaded filename = %q", gotFilename)
	}

	if tr.Language != "english" || tr.Duration != 12.34 {
		t.Errorf("transcript = %+v", tr)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(tr.Segments))
	}
	if tr.Segments[0].Text != "Hello there." {
		t.Errorf("segment text = %q, want trimmed", tr.Segments[0].Text)
	}
	if tr.Segments[0].ID == "" || tr.Segments[0].ID == tr.Segments[1].ID {
		t.Error("segment IDs must be unique and non-empty")
	}
	if len(tr.Words) != 1 || tr.Words[0].Word != "Hello" {
		t.Errorf("words = %+v", tr.Words)
	}
	if tr.ClipID != "" {
		t.Errorf("ClipID = %q, want empty before pipeline assignment", tr.ClipID)
	}
}

func TestClientTranscribe_LanguageForwarded(t *testing.T) {
	var gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		gotLanguage = r.FormValue("language")
		io.WriteString(w, `{"text": "", "segments": []}`)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Language = "de"
	c := NewClient(srv.URL, "sk-test", testLogger())
	if _, err := c.Transcribe(context.Background(), writeAudioFile(t), cfg); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if gotLanguage != "de" {
		t.Errorf("language = %q, want de", gotLanguage)
	}
}

func TestClientTranscribe_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error": {"message": "invalid api key"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key", testLogger())
	_, err := c.Transcribe(context.Background(), writeAudioFile(t), DefaultConfig())
	if err == nil {
		t.Fatal("Transcribe() expected error for 401")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error = %v, want status and body", err)
	}
}

func TestClientTranscribe_MissingFile(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "sk-test", testLogger())
	if _, err := c.Transcribe(context.Background(), "/nonexistent/a.mp3", DefaultConfig()); err == nil {
		t.Fatal("Transcribe() expected error for missing audio file")
	}
}
