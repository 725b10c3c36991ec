package merge

import (
	"strings"
	"unicode/utf8"

	"github.com/video-stream/subtrans/internal/subtitle"
)

const (
	DefaultConsecutiveMaxLen = 130
	DefaultConsecutiveMaxGap = 1.5
)

// MergeConsecutive joins whole cues without re-splitting them. A cue starts a new
// segment when the silence before it reaches maxGap seconds or when appending it would
// pass maxLen runes; a cue ending a sentence closes its segment.
func MergeConsecutive(cues []subtitle.RawCue, maxLen int, maxGap float64, sentenceEnd string) []subtitle.MergedSegment {
	if maxLen <= 0 {
		maxLen = DefaultConsecutiveMaxLen
	}
	if maxGap <= 0 {
		maxGap = DefaultConsecutiveMaxGap
	}
	if sentenceEnd == "" {
		sentenceEnd = DefaultSentenceEnd
	}

	var out []subtitle.MergedSegment
	var texts []string
	var start, end float64

	flush := func() {
		if len(texts) == 0 {
			return
		}
		text := strings.Join(texts, " ")
		if end < start {
			end = start
		}
		out = append(out, subtitle.MergedSegment{Text: text, Start: start, End: end, Duration: end - start})
		texts = texts[:0]
	}

	for _, cue := range cues {
		text := CleanText(cue.Text)
		if text == "" {
			continue
		}
		cueEnd := cue.End()
		if cue.Duration < 0 {
			cueEnd = cue.Start
		}

		if len(texts) > 0 {
			bufLen := utf8.RuneCountInString(strings.Join(texts, " "))
			if cue.Start-end >= maxGap || bufLen+utf8.RuneCountInString(text)+1 > maxLen {
				flush()
			}
		}

		if len(texts) == 0 {
			start = cue.Start
		}
		texts = append(texts, text)
		end = cueEnd

		last, _ := utf8.DecodeLastRuneInString(text)
		if strings.ContainsRune(sentenceEnd, last) {
			flush()
		}
	}
	flush()

	return out
}
