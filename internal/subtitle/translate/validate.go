package translate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/video-stream/subtrans/internal/subtitle/timecode"
)

// ValidationError enumerates every way an LLM response can be rejected
type ValidationError int

const (
	ValidationOK ValidationError = iota
	ErrJSONDecode
	ErrBadStructure
	ErrSegCountMismatch
	ErrIDMismatch
	ErrTextFieldMissing
)

// Placeholder returns the machine-readable marker prefixed to untranslated source text
func (e ValidationError) Placeholder() string {
	switch e {
	case ErrJSONDecode:
		return "NO_TRANSLATION_JSON_DECODE_ERROR"
	case ErrBadStructure:
		return "NO_TRANSLATION_BAD_JSON_STRUCTURE"
	case ErrSegCountMismatch:
		return "NO_TRANSLATION_SEG_COUNT_MISMATCH"
	case ErrIDMismatch:
		return "NO_TRANSLATION_ID_MISMATCH"
	case ErrTextFieldMissing:
		return "NO_TRANSLATION_TEXT_FIELD_MISSING"
	}
	return ""
}

func (e ValidationError) String() string {
	if e == ValidationOK {
		return "ok"
	}
	return strings.ToLower(strings.TrimPrefix(e.Placeholder(), "NO_TRANSLATION_"))
}

// Validation is the outcome of checking one response against its batch.
// Translations always holds exactly the batch ids; rejected items carry placeholders.
type Validation struct {
	// Translations is keyed by Task.ID as given. Response ids are normalized before
	// comparison, so task ids must already be canonical range ids (see NewSegments).
	Translations map[string]string
	// Err is set when a whole-batch gate failed
	Err ValidationError
	// ItemErrors lists per-item rejections by task id
	ItemErrors map[string]ValidationError
}

// OK reports whether every item was accepted
func (v Validation) OK() bool {
	return v.Err == ValidationOK && len(v.ItemErrors) == 0
}

type responseItem map[string]json.RawMessage

// Validate parses raw LLM output and maps it onto batch. Gates for decoding, structure
// and item count reject the whole batch; id and text checks reject single items.
func Validate(raw string, batch Batch, scheme IDScheme, outputKey string) Validation {
	v := Validation{
		Translations: make(map[string]string, len(batch)),
		ItemErrors:   make(map[string]ValidationError),
	}

	failAll := func(e ValidationError) Validation {
		v.Err = e
		for _, t := range batch {
			v.Translations[t.ID] = failedPlaceholder(e.Placeholder(), t.TextEN)
		}
		return v
	}

	doc := []byte(repairJSON(raw))
	if !json.Valid(doc) {
		return failAll(ErrJSONDecode)
	}

	var envelope map[string]json.RawMessage
	if json.Unmarshal(doc, &envelope) != nil {
		return failAll(ErrBadStructure)
	}
	var items []responseItem
	field, ok := envelope["translated_segments"]
	if !ok || string(field) == "null" || json.Unmarshal(field, &items) != nil {
		return failAll(ErrBadStructure)
	}
	if len(items) != len(batch) {
		return failAll(ErrSegCountMismatch)
	}

	for i, item := range items {
		task := batch[i]
		if !idMatches(item["id"], task, i, scheme) {
			v.ItemErrors[task.ID] = ErrIDMismatch
			v.Translations[task.ID] = failedPlaceholder(ErrIDMismatch.Placeholder(), task.TextEN)
			continue
		}
		var text string
		if json.Unmarshal(item[outputKey], &text) != nil || strings.TrimSpace(text) == "" {
			v.ItemErrors[task.ID] = ErrTextFieldMissing
			v.Translations[task.ID] = failedPlaceholder(ErrTextFieldMissing.Placeholder(), task.TextEN)
			continue
		}
		v.Translations[task.ID] = text
	}
	return v
}

// PromptID is the id a task is presented under at position i of its batch
func PromptID(t Task, i int, scheme IDScheme) string {
	if scheme == SimplifiedIDs {
		return fmt.Sprintf("seg_%d", i)
	}
	return t.ID
}

func idMatches(raw json.RawMessage, task Task, i int, scheme IDScheme) bool {
	var id string
	if json.Unmarshal(raw, &id) != nil {
		return false
	}
	if scheme == SimplifiedIDs {
		return id == PromptID(task, i, scheme)
	}
	got := timecode.NormalizeRangeID(id)
	if timecode.IsNormError(got) {
		return false
	}
	return got == timecode.NormalizeRangeID(task.ID)
}

// repairJSON strips Markdown code fences and drops a single stray closing brace after
// the object that starts at the first '{'.
func repairJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.HasPrefix(strings.TrimSpace(s[:nl]), "{") {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return s
	}
	if strings.Count(s, "}") <= strings.Count(s, "{") {
		return s
	}
	if end := matchingBrace(s); end >= 0 && end < len(s)-1 {
		return s[:end+1]
	}
	return s
}

// matchingBrace returns the index of the brace closing s[0], skipping string literals
func matchingBrace(s string) int {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
