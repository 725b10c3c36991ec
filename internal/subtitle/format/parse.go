package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/video-stream/subtrans/internal/subtitle"
	"github.com/video-stream/subtrans/internal/subtitle/timecode"
)

// ErrUnsupported is returned for files that are neither SRT nor WebVTT
var ErrUnsupported = errors.New("unsupported subtitle format")

// ErrNoCues is returned when a file contains no usable cue
var ErrNoCues = errors.New("no subtitle cues found")

// Parse dispatches on the file extension. skipped counts malformed blocks.
func Parse(name, content string) (cues []subtitle.RawCue, skipped int, err error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".srt":
		cues, skipped = ParseSRT(content)
	case ".vtt":
		cues, skipped = ParseVTT(content)
	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}
	if len(cues) == 0 {
		return nil, skipped, ErrNoCues
	}
	return cues, skipped, nil
}

// SourceType names the format of a file for transcript headers
func SourceType(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// ParseSRT parses index / timing / text blocks separated by blank lines
func ParseSRT(content string) ([]subtitle.RawCue, int) {
	var cues []subtitle.RawCue
	skipped := 0
	for _, block := range blocks(content) {
		lines := strings.Split(block, "\n")
		// the index line is optional in the wild
		if !strings.Contains(lines[0], "-->") {
			lines = lines[1:]
		}
		if len(lines) < 2 {
			skipped++
			continue
		}
		cue, ok := parseCue(lines[0], lines[1:])
		if !ok {
			skipped++
			continue
		}
		cues = append(cues, cue)
	}
	return cues, skipped
}

// ParseVTT parses WebVTT content into raw cues
func ParseVTT(content string) ([]subtitle.RawCue, int) {
	var cues []subtitle.RawCue
	skipped := 0
	for _, block := range blocks(content) {
		lines := strings.Split(block, "\n")
		first := lines[0]
		// Skip WEBVTT header and metadata blocks
		if strings.HasPrefix(first, "WEBVTT") || strings.HasPrefix(first, "NOTE") ||
			strings.HasPrefix(first, "STYLE") || strings.HasPrefix(first, "REGION") {
			continue
		}
		// Skip cue identifiers
		if !strings.Contains(first, "-->") {
			lines = lines[1:]
		}
		if len(lines) < 2 {
			skipped++
			continue
		}
		cue, ok := parseCue(lines[0], lines[1:])
		if !ok {
			skipped++
			continue
		}
		cues = append(cues, cue)
	}
	return cues, skipped
}

func blocks(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	var out []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, l := range strings.Split(content, "\n") {
		if l = strings.TrimSpace(l); l == "" {
			flush()
			continue
		}
		cur = append(cur, l)
	}
	flush()
	return out
}

func parseCue(timing string, text []string) (subtitle.RawCue, bool) {
	start, end, ok := parseTiming(timing)
	if !ok {
		return subtitle.RawCue{}, false
	}
	body := strings.Join(text, "\n")
	if body == "" {
		return subtitle.RawCue{}, false
	}
	return subtitle.RawCue{Text: body, Start: start, Duration: end - start}, true
}

// parseTiming reads "start --> end [settings]"
func parseTiming(line string) (float64, float64, bool) {
	left, right, found := strings.Cut(line, "-->")
	if !found {
		return 0, 0, false
	}
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, false
	}
	start, err := timecode.FromDisplay(left)
	if err != nil {
		return 0, 0, false
	}
	end, err := timecode.FromDisplay(fields[0])
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}
