package translate

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

const (
	DefaultTokensPerBatch = 8000
	DefaultMaxItems       = 100
	// CharsPerToken is a conservative estimate for JSON with mixed English/CJK text
	CharsPerToken = 2.5

	taskSeparator = " , "
)

// CharBudget converts a token budget into a character budget
func CharBudget(tokens int, charsPerToken float64) int {
	if charsPerToken <= 0 {
		charsPerToken = CharsPerToken
	}
	return int(float64(tokens) * charsPerToken)
}

// EstimateCost approximates the prompt characters a task adds: its JSON form plus
// the separator between array items.
func EstimateCost(t Task) int {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(t); err != nil {
		return utf8.RuneCountInString(t.ID+t.TextEN) + len(taskSeparator)
	}
	return utf8.RuneCount(bytes.TrimRight(buf.Bytes(), "\n")) + len(taskSeparator)
}

// Batcher packs tasks greedily under a character budget and an item cap.
// BaseCost is the prompt overhead counted against every batch.
type Batcher struct {
	CharBudget int
	MaxItems   int
	BaseCost   int
}

// Make partitions tasks preserving order. A task too large for any batch is placed
// alone rather than rejected.
func (b Batcher) Make(tasks []Task) []Batch {
	maxItems := b.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	var batches []Batch
	var current Batch
	used := b.BaseCost

	for _, t := range tasks {
		cost := EstimateCost(t)
		if len(current) > 0 && (used+cost > b.CharBudget || len(current)+1 > maxItems) {
			batches = append(batches, current)
			current = nil
			used = b.BaseCost
		}
		current = append(current, t)
		used += cost
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// MakeBatches partitions tasks under charBudget and maxItems with no prompt overhead
func MakeBatches(tasks []Task, charBudget, maxItems int) []Batch {
	return Batcher{CharBudget: charBudget, MaxItems: maxItems}.Make(tasks)
}
