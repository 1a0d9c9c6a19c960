// Package timeline turns an ordered list of clips into a single ffmpeg
// filter-graph program. The construction is pure: given the same clips and
// settings it always produces the same graph, and it never touches shared
// state or spawns anything itself.
package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Clip is one timeline entry. StartTime places the clip on the timeline,
// TrimStart/TrimEnd select the region of the source file, and Duration is
// how long the clip plays. Callers supply clips in timeline order.
type Clip struct {
	SourcePath string  `json:"source_path"`
	StartTime  float64 `json:"start_time"`
	Duration   float64 `json:"duration"`
	TrimStart  float64 `json:"trim_start"`
	TrimEnd    float64 `json:"trim_end"`
}

// Plan is the compiled composition for one export: input files in order,
// the filter-graph program, and segment accounting for callers that report
// progress or test the construction.
type Plan struct {
	Inputs       []string
	FilterGraph  string
	SegmentCount int
	GapCount     int
}

var (
	ErrEmptyTimeline = errors.New("timeline has no clips")
	ErrClipOrder     = errors.New("clips must be ordered by start time and must not overlap")
)

// resolutionScale maps a named resolution profile to an ffmpeg scale spec.
func resolutionScale(name string) (string, error) {
	switch name {
	case "720p":
		return "1280:720", nil
	case "1080p":
		return "1920:1080", nil
	case "source":
		return "-1:-1", nil
	default:
		return "", fmt.Errorf("invalid resolution %q", name)
	}
}

// BuildPlan compiles clips into a gap-correct concatenation plan.
//
// A cursor walks the timeline: any interval not covered by a clip becomes a
// black generator segment, each clip becomes a trim+scale segment, and a
// trailing gap is emitted if the last clip ends before compositionLength.
// Segment labels come from a single emission counter, so they are unique and
// the concat directive lists them in emission order.
func BuildPlan(clips []Clip, resolution string, fps int, compositionLength float64) (*Plan, error) {
	if len(clips) == 0 {
		return nil, ErrEmptyTimeline
	}

	scale, err := resolutionScale(resolution)
	if err != nil {
		return nil, err
	}

	for i, clip := range clips {
		if clip.Duration <= 0 {
			return nil, fmt.Errorf("clip %d: duration must be positive, got %v", i, clip.Duration)
		}
		if clip.TrimEnd <= clip.TrimStart {
			return nil, fmt.Errorf("clip %d: trim_end %v must be greater than trim_start %v", i, clip.TrimEnd, clip.TrimStart)
		}
		if clip.StartTime < 0 {
			return nil, fmt.Errorf("clip %d: start_time must not be negative, got %v", i, clip.StartTime)
		}
	}

	var filters []string
	var labels []string
	gaps := 0
	cursor := 0.0

	emitGap := func(duration float64) {
		label := fmt.Sprintf("[seg%d]", len(labels))
		filters = append(filters, fmt.Sprintf(
			"color=c=black:s=1920x1080:d=%s:r=%d,scale=%s%s",
			formatSeconds(duration), fps, scale, label,
		))
		labels = append(labels, label)
		gaps++
	}

	for i, clip := range clips {
		if clip.StartTime < cursor {
			return nil, fmt.Errorf("clip %d at %v overlaps previous content ending at %v: %w",
				i, clip.StartTime, cursor, ErrClipOrder)
		}
		if clip.StartTime > cursor {
			emitGap(clip.StartTime - cursor)
		}

		label := fmt.Sprintf("[seg%d]", len(labels))
		filters = append(filters, fmt.Sprintf(
			"[%d:v]trim=start=%s:duration=%s,setpts=PTS-STARTPTS,scale=%s%s",
			i, formatSeconds(clip.TrimStart), formatSeconds(clip.Duration), scale, label,
		))
		labels = append(labels, label)

		cursor = clip.StartTime + clip.Duration
	}

	if cursor < compositionLength {
		emitGap(compositionLength - cursor)
	}

	filters = append(filters, fmt.Sprintf(
		"%sconcat=n=%d:v=1:a=0[outv]",
		strings.Join(labels, ""), len(labels),
	))

	inputs := make([]string, len(clips))
	for i, clip := range clips {
		inputs[i] = clip.SourcePath
	}

	return &Plan{
		Inputs:       inputs,
		FilterGraph:  strings.Join(filters, ";"),
		SegmentCount: len(labels),
		GapCount:     gaps,
	}, nil
}

// Args builds the complete ffmpeg argument list for a plan. Codec and
// quality settings are fixed policy applied to the single concatenated
// output, not per clip.
func Args(plan *Plan, outputPath string, fps int) []string {
	args := []string{"-y"}
	for _, input := range plan.Inputs {
		args = append(args, "-i", input)
	}
	args = append(args,
		"-filter_complex", plan.FilterGraph,
		"-map", "[outv]",
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		outputPath,
	)
	return args
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
