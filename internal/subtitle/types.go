package subtitle

// RawCue is a single timed text unit as delivered by a transcript or subtitle file
type RawCue struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`    // seconds
	Duration float64 `json:"duration"` // seconds
}

// End returns the cue end time in seconds
func (c RawCue) End() float64 {
	return c.Start + c.Duration
}

// MergedSegment is a sentence-aware, length-bounded unit used as translation input
type MergedSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// Segment is a translated unit of the final track
type Segment struct {
	ID             string  `json:"id"`
	SourceText     string  `json:"source_text"`
	TranslatedText string  `json:"translated_text"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
}

// Cue is a display-ready subtitle entry
type Cue struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Metadata describes where a transcript came from
type Metadata struct {
	Title      string `json:"title"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang,omitempty"`
	SourceType string `json:"source_type"` // "srt", "vtt", "manual", "generated"
}
