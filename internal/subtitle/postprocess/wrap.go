package postprocess

import (
	"strings"
	"unicode"
)

// Wrap breaks text into at most opts.MaxLines lines of opts.MaxCharsPerLine runes,
// preferring breaks after punctuation, then at spaces. Lines beyond the limit are
// folded into the last line and hard-wrapped, so no text is lost; pathological input
// can still exceed MaxLines.
func Wrap(text string, opts Options) string {
	width := opts.MaxCharsPerLine
	if width <= 0 {
		width = DefaultMaxCharsPerLine
	}
	maxLines := opts.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	rest := []rune(strings.TrimSpace(text))
	if len(rest) <= width {
		return string(rest)
	}

	var lines []string
	for len(rest) > width {
		cut := breakPoint(rest, width)
		if line := strings.TrimSpace(string(rest[:cut])); line != "" {
			lines = append(lines, line)
		}
		rest = []rune(strings.TrimSpace(string(rest[cut:])))
	}
	if len(rest) > 0 {
		lines = append(lines, string(rest))
	}

	if len(lines) > maxLines {
		tail := []rune(strings.Join(lines[maxLines-1:], " "))
		lines = lines[:maxLines-1]
		for len(tail) > 0 {
			n := min(width, len(tail))
			if line := strings.TrimSpace(string(tail[:n])); line != "" {
				lines = append(lines, line)
			}
			tail = tail[n:]
		}
	}
	return strings.Join(lines, "\n")
}

// breakPoint returns the rune count of the next line, always in [1, width]
func breakPoint(runes []rune, width int) int {
	for i := width - 1; i >= 0; i-- {
		if strings.ContainsRune(wrapPunct, runes[i]) {
			return i + 1
		}
	}
	for i := width; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return width
}
