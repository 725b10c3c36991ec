package postprocess

import (
	"strings"
	"unicode"

	"github.com/video-stream/subtrans/internal/subtitle"
)

const (
	DefaultMaxCharsPerLine = 35
	DefaultMaxLines        = 2

	// splitPunct ends a display fragment
	splitPunct = "。？！."
	// wrapPunct marks preferred line breaks
	wrapPunct = "。？！，.?!,"
)

// Options controls line wrapping of display cues
type Options struct {
	MaxCharsPerLine int `yaml:"max_chars_per_line"`
	MaxLines        int `yaml:"max_lines"`
}

func DefaultOptions() Options {
	return Options{MaxCharsPerLine: DefaultMaxCharsPerLine, MaxLines: DefaultMaxLines}
}

// piece is a display fragment with its share of the parent timing
type piece struct {
	text   string
	weight int
}

// Process splits translated segments into display cues with re-derived timing.
// Dialogue turns share their segment's time equally; sentences inside a turn are
// timed by length. The last cue of a segment always ends at the segment end.
func Process(segments []subtitle.Segment, opts Options) []subtitle.Cue {
	if opts.MaxCharsPerLine <= 0 {
		opts.MaxCharsPerLine = DefaultMaxCharsPerLine
	}
	if opts.MaxLines <= 0 {
		opts.MaxLines = DefaultMaxLines
	}

	var cues []subtitle.Cue
	for _, seg := range segments {
		cues = append(cues, processOne(seg, opts)...)
	}
	for i := range cues {
		cues[i].Index = i + 1
	}
	return cues
}

func processOne(seg subtitle.Segment, opts Options) []subtitle.Cue {
	text := strings.TrimSpace(seg.TranslatedText)
	if text == "" {
		text = strings.TrimSpace(seg.SourceText)
	}
	duration := seg.End - seg.Start
	if text == "" || duration <= 0 {
		return []subtitle.Cue{{Start: seg.Start, End: seg.End, Text: Wrap(text, opts)}}
	}

	turns := splitDialogue(text)
	if len(turns) < 2 {
		return splitSentences(text, seg.Start, seg.End, opts)
	}

	var out []subtitle.Cue
	step := duration / float64(len(turns))
	for i, turn := range turns {
		start := seg.Start + float64(i)*step
		out = append(out, splitSentences(turn, start, start+step, opts)...)
	}
	out[len(out)-1].End = seg.End
	return out
}

// splitDialogue splits on dash turn markers. A dash only starts a turn at the
// beginning of the text or after whitespace, so hyphenated words stay intact.
func splitDialogue(text string) []string {
	runes := []rune(text)
	var parts []string
	last := 0
	for i, r := range runes {
		if r != '-' || (i > 0 && !unicode.IsSpace(runes[i-1])) {
			continue
		}
		parts = append(parts, string(runes[last:i]))
		last = i + 1
	}
	parts = append(parts, string(runes[last:]))

	var turns []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			turns = append(turns, p)
		}
	}
	if len(turns) < 2 {
		return turns
	}
	for i := 1; i < len(turns); i++ {
		turns[i] = "- " + turns[i]
	}
	return turns
}

func splitSentences(text string, start, end float64, opts Options) []subtitle.Cue {
	pieces := sentencePieces(text)
	total := 0
	for _, p := range pieces {
		total += p.weight
	}
	if len(pieces) < 2 || total == 0 {
		return []subtitle.Cue{{Start: start, End: end, Text: Wrap(strings.TrimSpace(text), opts)}}
	}

	out := make([]subtitle.Cue, 0, len(pieces))
	cur := start
	for _, p := range pieces {
		next := cur + float64(p.weight)/float64(total)*(end-start)
		out = append(out, subtitle.Cue{Start: cur, End: next, Text: Wrap(p.text, opts)})
		cur = next
	}
	out[len(out)-1].End = end
	return out
}

// sentencePieces cuts after every strong terminal, keeping it with the preceding
// text. Weights are raw rune lengths, leading whitespace included.
func sentencePieces(text string) []piece {
	runes := []rune(text)
	var pieces []piece
	last := 0
	for i, r := range runes {
		if !strings.ContainsRune(splitPunct, r) || isDecimalDot(runes, i) {
			continue
		}
		pieces = appendPiece(pieces, runes[last:i+1])
		last = i + 1
	}
	return appendPiece(pieces, runes[last:])
}

func appendPiece(pieces []piece, raw []rune) []piece {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return pieces
	}
	return append(pieces, piece{text: text, weight: len(raw)})
}

func isDecimalDot(runes []rune, i int) bool {
	return runes[i] == '.' && i > 0 && i+1 < len(runes) &&
		unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1])
}
