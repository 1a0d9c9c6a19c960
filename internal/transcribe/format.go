package transcribe

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatTXT returns the plain transcript text.
func FormatTXT(t *Transcript) string {
	return t.FullText
}

// FormatSRT renders numbered SubRip cues with comma millisecond separators.
func FormatSRT(t *Transcript) string {
	var b strings.Builder
	for i, s := range t.Segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", formatSRTTime(s.Start), formatSRTTime(s.End))
		b.WriteString(s.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// FormatVTT renders WebVTT with dot millisecond separators.
func FormatVTT(t *Transcript) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, s := range t.Segments {
		fmt.Fprintf(&b, "%s --> %s\n", formatVTTTime(s.Start), formatVTTTime(s.End))
		b.WriteString(s.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// FormatJSON returns the transcript as indented JSON.
func FormatJSON(t *Transcript) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

func formatSRTTime(seconds float64) string {
	h, m, s, ms := splitClock(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func formatVTTTime(seconds float64) string {
	h, m, s, ms := splitClock(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitClock(seconds float64) (h, m, s, ms int) {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	ms = int((seconds-float64(total))*1000 + 0.5)
	if ms >= 1000 {
		total++
		ms = 0
	}
	h = total / 3600
	m = (total % 3600) / 60
	s = total % 60
	return h, m, s, ms
}
