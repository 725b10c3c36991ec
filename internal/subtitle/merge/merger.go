package merge

import (
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/subtitle"
)

const (
	DefaultMaxChars    = 120
	DefaultMaxDuration = 10.0
	DefaultSentenceEnd = "。？！.?!"
	DefaultSubClause   = "，,、；;：:"
)

// DefaultAbbreviations are words whose trailing dot does not end a sentence
var DefaultAbbreviations = []string{
	"Mr", "Mrs", "Ms", "Dr", "St", "Jr", "Sr", "Prof", "Mt", "No", "vs", "etc", "e.g", "i.e",
}

// conjunctions are preferred split points, the split falls before the word
var conjunctions = []string{"and", "but", "or", "so"}

// Options bounds the merged segments and tunes punctuation handling per language
type Options struct {
	MaxChars      int
	MaxDuration   float64
	SentenceEnd   string
	SubClause     string
	Abbreviations []string
	Logger        *logrus.Entry
}

func DefaultOptions() Options {
	return Options{
		MaxChars:      DefaultMaxChars,
		MaxDuration:   DefaultMaxDuration,
		SentenceEnd:   DefaultSentenceEnd,
		SubClause:     DefaultSubClause,
		Abbreviations: DefaultAbbreviations,
	}
}

// Merger turns fragmented cues into sentence-aware, bounded segments
type Merger struct {
	opts Options
	tok  *tokenizer
	log  *logrus.Entry
}

func New(opts Options) *Merger {
	def := DefaultOptions()
	if opts.MaxChars <= 0 {
		opts.MaxChars = def.MaxChars
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = def.MaxDuration
	}
	if opts.SentenceEnd == "" {
		opts.SentenceEnd = def.SentenceEnd
	}
	if opts.SubClause == "" {
		opts.SubClause = def.SubClause
	}
	if opts.Abbreviations == nil {
		opts.Abbreviations = def.Abbreviations
	}
	return &Merger{
		opts: opts,
		tok:  newTokenizer(opts.SentenceEnd, opts.Abbreviations),
		log:  logging.OrDiscard(opts.Logger),
	}
}

// Merge flattens cues into a char-map, splits it into sentences and rebuilds segments
// no longer than MaxChars runes or MaxDuration seconds. A buffer that has no usable
// split point is emitted oversized.
func (m *Merger) Merge(cues []subtitle.RawCue) []subtitle.MergedSegment {
	cm := buildCharMap(cues, m.log)
	if len(cm.text) == 0 {
		return nil
	}

	var out []subtitle.MergedSegment
	bufStart, bufEnd := -1, -1

	for _, f := range m.tok.split(cm.text) {
		if bufStart < 0 {
			bufStart = f.start
		}
		bufEnd = f.end

		for m.exceeds(cm, bufStart, bufEnd) {
			cut, ok := m.splitPoint(cm, bufStart, bufEnd)
			if !ok {
				break
			}
			out = m.emit(out, cm, bufStart, cut)
			bufStart = skipSpace(cm.text, cut)
		}

		if f.terminal {
			out = m.emit(out, cm, bufStart, bufEnd)
			bufStart = -1
		}
	}
	if bufStart >= 0 {
		out = m.emit(out, cm, bufStart, bufEnd)
	}

	m.log.WithFields(logrus.Fields{"cues": len(cues), "segments": len(out)}).Debug("merged cues")
	return out
}

func (m *Merger) exceeds(cm *charMap, start, end int) bool {
	return end-start > m.opts.MaxChars || cm.span(start, end) > m.opts.MaxDuration
}

// splitPoint scans backward from the furthest allowed offset for, in order: a
// sub-clause mark or conjunction, a space, and (for over-long text) a hard cut.
// The returned cut is exclusive for the head.
func (m *Merger) splitPoint(cm *charMap, start, end int) (int, bool) {
	if end-start < 2 {
		return 0, false
	}

	limit := end - 1
	tooLong := end-start > m.opts.MaxChars
	if tooLong && start+m.opts.MaxChars < limit {
		limit = start + m.opts.MaxChars
	}
	for limit > start+1 && cm.span(start, limit) > m.opts.MaxDuration {
		limit--
	}

	for p := limit; p > start; p-- {
		if strings.ContainsRune(m.opts.SubClause, cm.text[p-1]) || m.conjunctionAt(cm.text, p) {
			return p, true
		}
	}
	for p := limit; p > start; p-- {
		if unicode.IsSpace(cm.text[p]) {
			return p, true
		}
	}
	if tooLong {
		return limit, true
	}
	// A single run longer than MaxDuration: cut right after it so the tail stays bounded.
	for p := limit + 1; p < end; p++ {
		if strings.ContainsRune(m.opts.SubClause, cm.text[p-1]) || unicode.IsSpace(cm.text[p]) || m.conjunctionAt(cm.text, p) {
			return p, true
		}
	}
	return 0, false
}

// conjunctionAt reports whether a conjunction word starts at p after a space
func (m *Merger) conjunctionAt(text []rune, p int) bool {
	if p == 0 || !unicode.IsSpace(text[p-1]) {
		return false
	}
	for _, c := range conjunctions {
		e := p + len(c)
		if e > len(text) {
			continue
		}
		if strings.EqualFold(string(text[p:e]), c) && (e == len(text) || unicode.IsSpace(text[e])) {
			return true
		}
	}
	return false
}

func (m *Merger) emit(out []subtitle.MergedSegment, cm *charMap, start, end int) []subtitle.MergedSegment {
	for end > start && unicode.IsSpace(cm.text[end-1]) {
		end--
	}
	if end <= start {
		return out
	}

	seg := subtitle.MergedSegment{
		Text:  string(cm.text[start:end]),
		Start: cm.times[start],
		End:   cm.times[end],
	}
	seg.Duration = seg.End - seg.Start
	if seg.Duration < 0 {
		m.log.WithFields(logrus.Fields{"text": seg.Text, "duration": seg.Duration}).Warn("negative segment duration clamped to zero")
		seg.Duration = 0
		seg.End = seg.Start
	}
	return append(out, seg)
}
