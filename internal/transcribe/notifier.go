package transcribe

import (
	"log/slog"
	"sync"
)

// Notifier receives progress events. Delivery is best effort; a notifier
// must never block the pipeline.
type Notifier interface {
	Notify(p Progress)
}

// LogNotifier writes progress events to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(p Progress) {
	n.logger.Info("transcription progress",
		"clip_id", p.ClipID,
		"stage", p.Stage,
		"percent", p.Percent,
		"message", p.Message,
	)
}

// Hub retains the latest progress event per clip so the HTTP API can be
// polled for status.
type Hub struct {
	mu     sync.RWMutex
	latest map[string]Progress
	next   Notifier
}

// NewHub wraps next (which may be nil) and records every event it sees.
func NewHub(next Notifier) *Hub {
	return &Hub{latest: make(map[string]Progress), next: next}
}

func (h *Hub) Notify(p Progress) {
	h.mu.Lock()
	h.latest[p.ClipID] = p
	h.mu.Unlock()
	if h.next != nil {
		h.next.Notify(p)
	}
}

// Latest returns the most recent event for clipID, if any.
func (h *Hub) Latest(clipID string) (Progress, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.latest[clipID]
	return p, ok
}
