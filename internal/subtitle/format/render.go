package format

import (
	"fmt"
	"strings"

	"github.com/video-stream/subtrans/internal/subtitle"
	"github.com/video-stream/subtrans/internal/subtitle/timecode"
)

// RenderSRT renders cues as numbered SRT blocks. Cues are renumbered from 1.
func RenderSRT(cues []subtitle.Cue) string {
	if len(cues) == 0 {
		return ""
	}
	blocks := make([]string, len(cues))
	for i, cue := range cues {
		blocks[i] = fmt.Sprintf("%d\n%s\n%s", i+1, timecode.RangeID(cue.Start, cue.End), cue.Text)
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// RenderVTT converts cues to WebVTT format
func RenderVTT(cues []subtitle.Cue) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, cue := range cues {
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", vttTime(cue.Start), vttTime(cue.End)))
		sb.WriteString(cue.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

func vttTime(seconds float64) string {
	return strings.Replace(timecode.ToDisplay(seconds), ",", ".", 1)
}

// RenderTranscriptMarkdown renders source cues with one "##" header per cue
func RenderTranscriptMarkdown(meta subtitle.Metadata, cues []subtitle.RawCue) string {
	md := []string{
		fmt.Sprintf("# Transcript: %s\n", meta.Title),
		fmt.Sprintf("**Source Language:** %s", meta.SourceLang),
		fmt.Sprintf("**Source Type:** %s subtitles\n", meta.SourceType),
	}
	for _, c := range cues {
		md = append(md, fmt.Sprintf("## %s\n%s\n", timecode.RangeID(c.Start, c.End()), c.Text))
	}
	return strings.Join(md, "\n")
}

// RenderTranslationMarkdown renders a translated track, one "##" header per segment
func RenderTranslationMarkdown(meta subtitle.Metadata, track []subtitle.Segment) string {
	md := []string{
		fmt.Sprintf("# Translation: %s\n", meta.Title),
		fmt.Sprintf("**Original Language:** %s (%s)", meta.SourceLang, meta.SourceType),
		fmt.Sprintf("**Translated Language:** %s\n", meta.TargetLang),
	}
	if len(track) == 0 {
		md = append(md, "[No translated segments found]")
		return strings.Join(md, "\n")
	}
	for _, s := range track {
		md = append(md, fmt.Sprintf("## %s\n%s\n", timecode.RangeID(s.Start, s.End), s.TranslatedText))
	}
	return strings.Join(md, "\n")
}
