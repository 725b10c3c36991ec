package translate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// rawLogLine has a null response_text when the call itself failed
type rawLogLine struct {
	TaskID       string  `json:"task_id"`
	ResponseText *string `json:"response_text"`
	RawResponse  string  `json:"raw_response,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// RawLogger appends every LLM call as one JSON line. Safe for concurrent use.
type RawLogger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewRawLogger writes lines to w
func NewRawLogger(w io.Writer) *RawLogger {
	return &RawLogger{w: w}
}

// OpenRawLog creates (or truncates) a JSONL file at path
func OpenRawLog(path string) (*RawLogger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open raw log: %w", err)
	}
	return &RawLogger{w: f, closer: f}, nil
}

// Log writes one entry for a call that returned c or failed with callErr.
// A nil logger is a no-op.
func (l *RawLogger) Log(taskID string, c *Completion, callErr error) error {
	if l == nil {
		return nil
	}
	entry := rawLogLine{TaskID: taskID}
	if c != nil {
		entry.ResponseText = &c.Text
		entry.RawResponse = c.RawLog
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(line)
	return err
}

func (l *RawLogger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
