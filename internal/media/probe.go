package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Metadata describes a media file as reported by ffprobe.
type Metadata struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
	Codec    string  `json:"codec"`
	Bitrate  int64   `json:"bitrate"`
	FileSize int64   `json:"file_size"`
}

// probeOutput mirrors the subset of `ffprobe -print_format json` we consume.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
	Size     string `json:"size"`
}

// Probe extracts media metadata via ffprobe.
func (e *Executor) Probe(ctx context.Context, filePath string) (*Metadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	stdout, stderr, err := e.run(ctx, e.ffprobePath, args)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %s", firstNonEmpty(stderr, err.Error()))
	}

	return parseProbeOutput(stdout)
}

func parseProbeOutput(data []byte) (*Metadata, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var video *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			video = &out.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, fmt.Errorf("no video stream found")
	}

	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration %q", out.Format.Duration)
	}

	fps, err := parseFrameRate(video.RFrameRate)
	if err != nil {
		return nil, err
	}

	codec := video.CodecName
	if codec == "" {
		codec = "unknown"
	}

	// bit_rate and size are optional in ffprobe output
	bitrate, _ := strconv.ParseInt(out.Format.BitRate, 10, 64)
	size, _ := strconv.ParseInt(out.Format.Size, 10, 64)

	return &Metadata{
		Duration: duration,
		Width:    video.Width,
		Height:   video.Height,
		FPS:      fps,
		Codec:    codec,
		Bitrate:  bitrate,
		FileSize: size,
	}, nil
}

// parseFrameRate handles fractional rates like "30000/1001".
func parseFrameRate(s string) (float64, error) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid frame rate numerator in %q", s)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid frame rate denominator in %q", s)
		}
		if d == 0 {
			return 0, fmt.Errorf("frame rate denominator is zero in %q", s)
		}
		return n / d, nil
	}

	fps, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	return fps, nil
}
