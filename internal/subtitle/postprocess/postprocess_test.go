package postprocess

import (
	"math"
	"strings"
	"testing"

	"github.com/video-stream/subtrans/internal/subtitle"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

type wantCue struct {
	text       string
	start, end float64
}

func checkCues(t *testing.T, got []subtitle.Cue, want []wantCue) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d cues %+v, want %d", len(got), got, len(want))
	}
	for i, w := range want {
		c := got[i]
		if c.Text != w.text || !near(c.Start, w.start) || !near(c.End, w.end) {
			t.Errorf("cue %d = {%q %v %v}, want {%q %v %v}", i, c.Text, c.Start, c.End, w.text, w.start, w.end)
		}
	}
}

func TestProcess(t *testing.T) {
	opts := Options{MaxCharsPerLine: 30, MaxLines: 2}
	tests := []struct {
		name string
		seg  subtitle.Segment
		want []wantCue
	}{
		{
			name: "proportional sentences",
			seg:  subtitle.Segment{TranslatedText: "Hi there. Bye now.", Start: 0, End: 2},
			want: []wantCue{{"Hi there.", 0, 1.0}, {"Bye now.", 1.0, 2.0}},
		},
		{
			name: "dialogue turns share time equally",
			seg:  subtitle.Segment{TranslatedText: "- Are you ok? - Yes. I am.", Start: 0, End: 4},
			want: []wantCue{{"Are you ok?", 0, 2}, {"- Yes.", 2, 3}, {"I am.", 3, 4}},
		},
		{
			name: "hyphenated word is not dialogue",
			seg:  subtitle.Segment{TranslatedText: "A well-known fact", Start: 1, End: 2},
			want: []wantCue{{"A well-known fact", 1, 2}},
		},
		{
			name: "decimal point does not split",
			seg:  subtitle.Segment{TranslatedText: "It costs 3.5 dollars.", Start: 0, End: 1},
			want: []wantCue{{"It costs 3.5 dollars.", 0, 1}},
		},
		{
			name: "cjk terminals",
			seg:  subtitle.Segment{TranslatedText: "你好。再见！", Start: 0, End: 3},
			want: []wantCue{{"你好。", 0, 1.5}, {"再见！", 1.5, 3}},
		},
		{
			name: "zero duration passes through",
			seg:  subtitle.Segment{TranslatedText: "One. Two.", Start: 5, End: 5},
			want: []wantCue{{"One. Two.", 5, 5}},
		},
		{
			name: "empty translation falls back to source",
			seg:  subtitle.Segment{SourceText: "Original", Start: 0, End: 1},
			want: []wantCue{{"Original", 0, 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCues(t, Process([]subtitle.Segment{tt.seg}, opts), tt.want)
		})
	}
}

func TestProcessIndexesAndPinsEnd(t *testing.T) {
	segs := []subtitle.Segment{
		{TranslatedText: "A. B. C.", Start: 0, End: 1},
		{TranslatedText: "Long sentence here. x.", Start: 1, End: 2.3},
	}
	cues := Process(segs, DefaultOptions())
	for i, c := range cues {
		if c.Index != i+1 {
			t.Errorf("cue %d index = %d", i, c.Index)
		}
		if c.End < c.Start {
			t.Errorf("cue %d ends before it starts: %+v", i, c)
		}
	}
	if cues[2].End != 1 || cues[len(cues)-1].End != 2.3 {
		t.Errorf("segment ends not pinned: %+v", cues)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts Options
		want string
	}{
		{"short", "Hello", Options{MaxCharsPerLine: 10, MaxLines: 2}, "Hello"},
		{
			"break after punctuation",
			"This is a fairly long sentence, with a comma in the middle.",
			Options{MaxCharsPerLine: 35, MaxLines: 2},
			"This is a fairly long sentence,\nwith a comma in the middle.",
		},
		{"break at space", "aaaa bbbb cccc", Options{MaxCharsPerLine: 10, MaxLines: 2}, "aaaa bbbb\ncccc"},
		{"hard cut", "一二三四五六", Options{MaxCharsPerLine: 4, MaxLines: 2}, "一二三四\n五六"},
		{"overflow keeps content", "一二三四五六七八九十", Options{MaxCharsPerLine: 4, MaxLines: 2}, "一二三四\n五六七八\n九十"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Wrap(tt.text, tt.opts); got != tt.want {
				t.Errorf("Wrap(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestWrapNeverDropsText(t *testing.T) {
	text := "We went down to the river, and then we walked. After that we sat for a long while, talking about nothing at all."
	got := Wrap(text, Options{MaxCharsPerLine: 20, MaxLines: 2})
	strip := func(s string) string {
		return strings.Join(strings.Fields(s), "")
	}
	if strip(got) != strip(text) {
		t.Errorf("content changed:\n%q\n%q", got, text)
	}
}
