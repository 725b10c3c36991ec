package translate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// PromptOptions configures the request sent for every batch
type PromptOptions struct {
	SourceLang   string
	TargetLang   string
	Preset       string // "anime", "movie", "documentary", "custom"
	CustomPrompt string // appended for the "custom" preset
	Scheme       IDScheme
}

type promptSegment struct {
	ID     string `json:"id"`
	TextEN string `json:"text_en"`
}

type promptPayload struct {
	SourceLanguage string          `json:"source_language"`
	TargetLanguage string          `json:"target_language"`
	Instructions   string          `json:"instructions"`
	Segments       []promptSegment `json:"segments"`
}

// BuildMessages renders the chat messages for one batch. The user message carries a
// JSON request whose response must be {"translated_segments": [{"id", <output key>}]}.
func BuildMessages(batch Batch, opts PromptOptions) []Message {
	system := GetSystemPrompt(opts.Preset, opts.SourceLang, opts.TargetLang)
	if opts.Preset == "custom" && opts.CustomPrompt != "" {
		system += "\n\nUser instructions: " + opts.CustomPrompt
	}

	segments := make([]promptSegment, len(batch))
	for i, t := range batch {
		segments[i] = promptSegment{ID: PromptID(t, i, opts.Scheme), TextEN: t.TextEN}
	}

	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: userPrompt(segments, opts)},
	}
}

// BaseCost is the prompt size of an empty batch, charged against every batch budget
func BaseCost(opts PromptOptions) int {
	total := 0
	for _, m := range BuildMessages(nil, opts) {
		total += utf8.RuneCountInString(m.Content)
	}
	return total
}

func userPrompt(segments []promptSegment, opts PromptOptions) string {
	outKey := OutputKey(opts.TargetLang)

	idRule := "The 'id' field is a precise timestamp string (format: HH:MM:SS,mmm --> HH:MM:SS,mmm, e.g. '00:01:23,456 --> 00:01:25,789'). " +
		"You MUST return it EXACTLY as provided. Do not reformat any part of it, including colons, commas, spaces or the '-->' separator."
	if opts.Scheme == SimplifiedIDs {
		idRule = "The 'id' field is a simplified segment identifier (format: seg_N, e.g. 'seg_0', 'seg_1'). " +
			"You MUST return it EXACTLY as provided. It maps segments back after translation."
	}

	instructions := fmt.Sprintf(
		"Objective: Translate the 'text_en' field of each segment from %s to %s. "+
			"Output Format: A JSON object with a single key 'translated_segments' whose value is an array of objects. "+
			"Each object keeps the original 'id' and puts the translation in a field named '%s'. %s "+
			"The number of objects in 'translated_segments' MUST EXACTLY MATCH the number of input segments. "+
			"Never split or merge segments; keep a strict one-to-one correspondence.",
		opts.SourceLang, opts.TargetLang, outKey, idRule,
	)

	if segments == nil {
		segments = []promptSegment{}
	}
	payload := promptPayload{
		SourceLanguage: opts.SourceLang,
		TargetLanguage: opts.TargetLang,
		Instructions:   instructions,
		Segments:       segments,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	enc.Encode(payload)

	return fmt.Sprintf(
		"Process the following JSON request. Its 'instructions' field describes the task: translate text segments from %s to %s. "+
			"Return a single valid JSON object that follows the output structure in 'instructions'. "+
			"The 'id' of every segment in your response MUST be an identical copy of the input 'id'.\n\n"+
			"JSON Request:\n```json\n%s```",
		opts.SourceLang, opts.TargetLang, buf.String(),
	)
}
