package media

import (
	"context"
	"strconv"
	"strings"
)

// Camera is a capture device reported by avfoundation.
type Camera struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

const (
	videoDevicesHeader = "AVFoundation video devices"
	audioDevicesHeader = "AVFoundation audio devices"
	screenDeviceMarker = "Capture screen"
)

// ListCameras enumerates cameras via ffmpeg's avfoundation device listing.
// ffmpeg exits non-zero in this mode (it cannot open the empty input); the
// device list is printed to stderr regardless, so the exit status is ignored.
func (e *Executor) ListCameras(ctx context.Context) ([]Camera, error) {
	args := []string{
		"-f", "avfoundation",
		"-list_devices", "true",
		"-i", "",
	}

	_, stderr, _ := e.run(ctx, e.ffmpegPath, args)

	return parseDeviceList(stderr), nil
}

// parseDeviceList scans avfoundation diagnostic output for camera entries.
// Lines between the video-devices header and the audio-devices header carry
// one device each, formatted "[AVFoundation indev @ 0x...] [<index>] <name>".
// Screen-capture pseudo-devices are skipped.
func parseDeviceList(stderr string) []Camera {
	cameras := []Camera{}
	inVideoSection := false

	for _, line := range strings.Split(stderr, "\n") {
		if strings.Contains(line, videoDevicesHeader) {
			inVideoSection = true
			continue
		}
		if strings.Contains(line, audioDevicesHeader) {
			break
		}
		if !inVideoSection || strings.Contains(line, screenDeviceMarker) {
			continue
		}

		// The device index lives in the second bracket pair; find the
		// last "] [" so the log prefix's own brackets don't match.
		trimmed := strings.TrimSpace(line)
		pos := strings.LastIndex(trimmed, "] [")
		if pos == -1 {
			continue
		}
		rest := trimmed[pos+3:]
		closing := strings.Index(rest, "]")
		if closing == -1 {
			continue
		}

		index, err := strconv.Atoi(rest[:closing])
		if err != nil {
			continue
		}
		name := strings.TrimSpace(rest[closing+1:])
		if name == "" {
			continue
		}

		cameras = append(cameras, Camera{Index: index, Name: name})
	}

	return cameras
}
