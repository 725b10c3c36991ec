package merge

import (
	"github.com/sirupsen/logrus"

	"github.com/video-stream/subtrans/internal/subtitle"
)

// charMap holds the flattened cue text and one timestamp per rune, plus a trailing
// end time so that times[len(text)] is the end of the last cue.
type charMap struct {
	text  []rune
	times []float64
}

func (c *charMap) span(start, end int) float64 {
	return c.times[end] - c.times[start]
}

// buildCharMap joins cleaned cue texts with single spaces and interpolates a time for
// every rune across its cue. The separator after a cue maps to that cue's end.
func buildCharMap(cues []subtitle.RawCue, log *logrus.Entry) *charMap {
	cm := &charMap{}
	last := 0.0

	for i, cue := range cues {
		text := []rune(CleanText(cue.Text))
		if len(text) == 0 {
			continue
		}

		dur := cue.Duration
		if dur < 0 {
			log.WithFields(logrus.Fields{"cue": i, "duration": dur}).Warn("negative cue duration clamped to zero")
			dur = 0
		}
		start := cue.Start
		if start < last {
			log.WithFields(logrus.Fields{"cue": i, "start": start, "previous_end": last}).Warn("cue starts before previous cue ends, timing clamped")
			start = last
		}

		if len(cm.text) > 0 {
			cm.text = append(cm.text, ' ')
		}
		step := dur / float64(len(text))
		for j := range text {
			cm.times = append(cm.times, start+float64(j)*step)
		}
		cm.text = append(cm.text, text...)
		last = start + dur
		cm.times = append(cm.times, last)
	}

	return cm
}
