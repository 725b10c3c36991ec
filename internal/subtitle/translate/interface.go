package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/video-stream/subtrans/internal/subtitle"
	"github.com/video-stream/subtrans/internal/subtitle/timecode"
)

// ErrNoClient is returned when a job names an engine that is not configured
var ErrNoClient = errors.New("translation engine not configured")

// Task is one translation unit sent to the LLM. ID is the join key for results and
// must survive the round trip unchanged. Under TimestampIDs it must be a canonical
// range id, a fixed point of timecode.NormalizeRangeID.
type Task struct {
	ID     string `json:"id"`
	TextEN string `json:"text_en"`
}

// Batch is an ordered group of tasks answered by a single LLM request
type Batch []Task

// IDScheme selects how task ids are presented to the LLM
type IDScheme int

const (
	// TimestampIDs sends canonical "HH:MM:SS,mmm --> HH:MM:SS,mmm" ids
	TimestampIDs IDScheme = iota
	// SimplifiedIDs sends positional "seg_N" ids within each batch
	SimplifiedIDs
)

func (s IDScheme) String() string {
	if s == SimplifiedIDs {
		return "simplified"
	}
	return "timestamp"
}

// Message is a single role/content pair of a chat request
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the text returned by an LLM plus the raw provider payload for auditing
type Completion struct {
	Text   string
	RawLog string
}

// Client is the common interface for all LLM engines. Implementations retry transport
// errors internally; a returned error means the call ultimately failed.
type Client interface {
	Call(ctx context.Context, messages []Message, taskID string) (*Completion, error)
	// Name returns the engine name
	Name() string
}

// NewSegments turns merged segments into untranslated track segments with unique
// canonical range ids. Colliding ranges get their id end nudged by a millisecond.
func NewSegments(merged []subtitle.MergedSegment) []subtitle.Segment {
	out := make([]subtitle.Segment, 0, len(merged))
	seen := make(map[string]bool, len(merged))
	for _, m := range merged {
		end := m.End
		id := timecode.RangeID(m.Start, end)
		for seen[id] {
			end += 0.001
			id = timecode.RangeID(m.Start, end)
		}
		seen[id] = true
		out = append(out, subtitle.Segment{
			ID:         id,
			SourceText: m.Text,
			Start:      m.Start,
			End:        m.End,
		})
	}
	return out
}

// TasksFor builds the tasks for segments, in order
func TasksFor(segments []subtitle.Segment) []Task {
	tasks := make([]Task, len(segments))
	for i, s := range segments {
		tasks[i] = Task{ID: s.ID, TextEN: s.SourceText}
	}
	return tasks
}

func failedPlaceholder(reason, source string) string {
	return fmt.Sprintf("[%s] %s", reason, source)
}
