package translate

import (
	"strings"
	"unicode"
)

// FailedMarker prefixes source text whose LLM call failed at the transport level
const FailedMarker = "[TRANSLATION_FAILED]"

const noTranslationPrefix = "[NO_TRANSLATION_"

// ErrorClass is recomputed for every segment on every retry round
type ErrorClass int

const (
	ErrorNone ErrorClass = iota
	ErrorSoft
	ErrorHard
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorSoft:
		return "soft"
	case ErrorHard:
		return "hard"
	}
	return "none"
}

// Classifier detects untranslated (soft) and stuck or refused (hard) output.
// Repetition thresholds are tunable because legitimately repetitive lyrics or chants
// can trip them.
type Classifier struct {
	// MinCheckLen skips the repetition checks for texts shorter than this many runes
	MinCheckLen int
	// RuneRepeat flags a single rune repeated this many times in a row
	RuneRepeat int
	// PatternMinLen and PatternRepeat flag a substring of at least PatternMinLen runes
	// repeated PatternRepeat times back to back
	PatternMinLen int
	PatternRepeat int
}

func DefaultClassifier() Classifier {
	return Classifier{
		MinCheckLen:   10,
		RuneRepeat:    5,
		PatternMinLen: 2,
		PatternRepeat: 4,
	}
}

// Classify inspects the current translation of a segment
func (c Classifier) Classify(text string) ErrorClass {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, FailedMarker) || strings.HasPrefix(trimmed, noTranslationPrefix) {
		return ErrorSoft
	}
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		return ErrorHard
	}

	runes := []rune(trimmed)
	if len(runes) < c.MinCheckLen {
		return ErrorNone
	}
	if c.RuneRepeat > 1 && hasRuneRun(runes, c.RuneRepeat) {
		return ErrorHard
	}
	if c.PatternRepeat > 1 && hasRepeatedPattern(runes, c.PatternMinLen, c.PatternRepeat) {
		return ErrorHard
	}
	return ErrorNone
}

func hasRuneRun(runes []rune, n int) bool {
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] && !unicode.IsSpace(runes[i]) {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// hasRepeatedPattern reports a substring of length >= minLen occurring times times
// consecutively. Go's regexp has no backreferences, so it is a direct scan.
func hasRepeatedPattern(runes []rune, minLen, times int) bool {
	if minLen < 1 {
		minLen = 1
	}
	n := len(runes)
	for size := minLen; size*times <= n; size++ {
		for start := 0; start+size*times <= n; start++ {
			if repeatsAt(runes, start, size, times) {
				return true
			}
		}
	}
	return false
}

func repeatsAt(runes []rune, start, size, times int) bool {
	for k := 1; k < times; k++ {
		off := start + k*size
		for j := 0; j < size; j++ {
			if runes[off+j] != runes[start+j] {
				return false
			}
		}
	}
	return true
}
