package transcribe

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/clipdesk/clipdesk-agent/internal/library"
)

type fakeExtractor struct {
	err       error
	audioPath string
}

func (f *fakeExtractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	f.audioPath = audioPath
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(audioPath, []byte("audio"), 0644)
}

type fakeTranscriber struct {
	err error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string, cfg Config) (*Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Transcript{
		ID:        "t1",
		Language:  "en",
		FullText:  "hello",
		Duration:  3.5,
		Segments:  []Segment{{ID: "s1", Text: "hello", Start: 0, End: 3.5}},
		CreatedAt: time.Now().UTC(),
	}, nil
}

type fakeStore struct {
	err   error
	saved *library.TranscriptRecord
}

func (f *fakeStore) CreateTranscript(ctx context.Context, tr *library.TranscriptRecord) error {
	f.saved = tr
	return f.err
}

type recordingNotifier struct {
	events []Progress
}

func (n *recordingNotifier) Notify(p Progress) {
	n.events = append(n.events, p)
}

func newTestPipeline(t *testing.T, ex *fakeExtractor, tr *fakeTranscriber, st *fakeStore, n Notifier) *Pipeline {
	t.Helper()
	return NewPipeline(ex, tr, st, n, nil, t.TempDir(), testLogger())
}

func TestPipelineRun(t *testing.T) {
	ex := &fakeExtractor{}
	st := &fakeStore{}
	n := &recordingNotifier{}
	p := newTestPipeline(t, ex, &fakeTranscriber{}, st, n)

	got, err := p.Run(context.Background(), "clip-1", "/videos/clip-1.mp4", DefaultConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.ClipID != "clip-1" {
		t.Errorf("ClipID = %q, want clip-1", got.ClipID)
	}

	if st.saved == nil {
		t.Fatal("transcript was not persisted")
	}
	if st.saved.ClipID != "clip-1" || st.saved.FullText != "hello" {
		t.Errorf("saved record = %+v", st.saved)
	}
	if st.saved.Payload == "" {
		t.Error("saved record has no payload")
	}

	stages := make([]string, len(n.events))
	for i, e := range n.events {
		stages[i] = e.Stage
	}
	want := []string{StageExtracting, StageTranscribing, StageProcessing, StageComplete}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage[%d] = %q, want %q", i, stages[i], want[i])
		}
	}

	if _, err := os.Stat(ex.audioPath); !os.IsNotExist(err) {
		t.Errorf("temp audio %q not removed", ex.audioPath)
	}
}

func TestPipelineRun_ExtractionFailure(t *testing.T) {
	st := &fakeStore{}
	p := newTestPipeline(t, &fakeExtractor{err: errors.New("no audio stream")}, &fakeTranscriber{}, st, nil)

	_, err := p.Run(context.Background(), "clip-1", "/videos/clip-1.mp4", DefaultConfig())
	if err == nil {
		t.Fatal("Run() expected extraction error")
	}
	if st.saved != nil {
		t.Error("transcript persisted despite extraction failure")
	}
}

func TestPipelineRun_TranscriberFailure(t *testing.T) {
	ex := &fakeExtractor{}
	st := &fakeStore{}
	p := newTestPipeline(t, ex, &fakeTranscriber{err: errors.New("transcription API error 500: boom")}, st, nil)

	_, err := p.Run(context.Background(), "clip-1", "/videos/clip-1.mp4", DefaultConfig())
	if err == nil {
		t.Fatal("Run() expected transcriber error")
	}
	if st.saved != nil {
		t.Error("transcript persisted despite transcriber failure")
	}
	if _, err := os.Stat(ex.audioPath); !os.IsNotExist(err) {
		t.Error("temp audio not removed on failure")
	}
}

func TestPipelineRun_StoreFailure(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{}, &fakeTranscriber{}, &fakeStore{err: errors.New("db locked")}, nil)

	if _, err := p.Run(context.Background(), "clip-1", "/v.mp4", DefaultConfig()); err == nil {
		t.Fatal("Run() expected persistence error")
	}
}

func TestHubRetainsLatest(t *testing.T) {
	inner := &recordingNotifier{}
	hub := NewHub(inner)

	hub.Notify(Progress{ClipID: "c1", Stage: StageExtracting, Percent: 10})
	hub.Notify(Progress{ClipID: "c1", Stage: StageComplete, Percent: 100})
	hub.Notify(Progress{ClipID: "c2", Stage: StageTranscribing, Percent: 40})

	p, ok := hub.Latest("c1")
	if !ok || p.Stage != StageComplete {
		t.Errorf("Latest(c1) = %+v, %v", p, ok)
	}
	if _, ok := hub.Latest("missing"); ok {
		t.Error("Latest(missing) = true")
	}
	if len(inner.events) != 3 {
		t.Errorf("forwarded events = %d, want 3", len(inner.events))
	}
}
