package translate

import (
	"strings"
	"testing"
)

var twoTasks = Batch{
	{ID: "00:00:00,000 --> 00:00:01,000", TextEN: "Hello"},
	{ID: "00:00:01,000 --> 00:00:02,500", TextEN: "World"},
}

func assertComplete(t *testing.T, v Validation, batch Batch) {
	t.Helper()
	if len(v.Translations) != len(batch) {
		t.Fatalf("got %d translations, want %d", len(v.Translations), len(batch))
	}
	for _, task := range batch {
		if _, ok := v.Translations[task.ID]; !ok {
			t.Errorf("missing id %q", task.ID)
		}
	}
}

func TestValidateSuccess(t *testing.T) {
	raw := "```json\n" + `{"translated_segments": [
		{"id": "00:00:00,000 --> 00:00:01,000", "text_zh_cn": "你好"},
		{"id": "0:00:01,000-->00:00:02,500", "text_zh_cn": "世界"}
	]}` + "\n```"
	v := Validate(raw, twoTasks, TimestampIDs, "text_zh_cn")
	assertComplete(t, v, twoTasks)
	if !v.OK() {
		t.Fatalf("Validate() err = %v, item errors = %v", v.Err, v.ItemErrors)
	}
	if v.Translations[twoTasks[0].ID] != "你好" || v.Translations[twoTasks[1].ID] != "世界" {
		t.Errorf("translations = %v", v.Translations)
	}
}

func TestValidateBatchGates(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ValidationError
	}{
		{"empty", "", ErrJSONDecode},
		{"garbage", "I'm sorry, I cannot help with that.", ErrJSONDecode},
		{"missing array", `{"segments": []}`, ErrBadStructure},
		{"array is not a list", `{"translated_segments": "nope"}`, ErrBadStructure},
		{"null array", `{"translated_segments": null}`, ErrBadStructure},
		{"top level array", `[{"id": "seg_0"}]`, ErrBadStructure},
		{"count mismatch", `{"translated_segments": [{"id":"seg_0","text_x":"A"}]}`, ErrSegCountMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tt.raw, twoTasks, SimplifiedIDs, "text_x")
			assertComplete(t, v, twoTasks)
			if v.Err != tt.want {
				t.Fatalf("Err = %v, want %v", v.Err, tt.want)
			}
			for _, task := range twoTasks {
				want := "[" + tt.want.Placeholder() + "] " + task.TextEN
				if got := v.Translations[task.ID]; got != want {
					t.Errorf("translation[%s] = %q, want %q", task.ID, got, want)
				}
			}
		})
	}
}

func TestValidatePerItemChecks(t *testing.T) {
	raw := `{"translated_segments": [
		{"id": "seg_1", "text_x": "A"},
		{"id": "seg_1", "text_x": ""}
	]}`
	v := Validate(raw, twoTasks, SimplifiedIDs, "text_x")
	assertComplete(t, v, twoTasks)
	if v.Err != ValidationOK {
		t.Fatalf("batch gate failed: %v", v.Err)
	}
	if got := v.Translations[twoTasks[0].ID]; got != "[NO_TRANSLATION_ID_MISMATCH] Hello" {
		t.Errorf("item 0 = %q", got)
	}
	if got := v.Translations[twoTasks[1].ID]; got != "[NO_TRANSLATION_TEXT_FIELD_MISSING] World" {
		t.Errorf("item 1 = %q", got)
	}
	if v.ItemErrors[twoTasks[0].ID] != ErrIDMismatch || v.ItemErrors[twoTasks[1].ID] != ErrTextFieldMissing {
		t.Errorf("ItemErrors = %v", v.ItemErrors)
	}
}

func TestValidateTimestampIDMismatch(t *testing.T) {
	raw := `{"translated_segments": [
		{"id": "00:00:00,000 --> 00:00:01,000", "text_x": "A"},
		{"id": "not a timestamp", "text_x": "B"}
	]}`
	v := Validate(raw, twoTasks, TimestampIDs, "text_x")
	if v.Translations[twoTasks[0].ID] != "A" {
		t.Errorf("item 0 = %q", v.Translations[twoTasks[0].ID])
	}
	if !strings.HasPrefix(v.Translations[twoTasks[1].ID], "[NO_TRANSLATION_ID_MISMATCH]") {
		t.Errorf("item 1 = %q", v.Translations[twoTasks[1].ID])
	}
}

func TestValidateRepairsTrailingBrace(t *testing.T) {
	raw := `{"translated_segments": [{"id": "seg_0", "text_x": "a } b"}, {"id": "seg_1", "text_x": "B"}]}}`
	v := Validate(raw, twoTasks, SimplifiedIDs, "text_x")
	if !v.OK() {
		t.Fatalf("Validate() err = %v %v", v.Err, v.ItemErrors)
	}
	if v.Translations[twoTasks[0].ID] != "a } b" {
		t.Errorf("item 0 = %q", v.Translations[twoTasks[0].ID])
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```{\"a\":1}```", `{"a":1}`},
		{`{"a":{"b":1}}}`, `{"a":{"b":1}}`},
		{`{"a":1}`, `{"a":1}`},
		{"  plain  ", "plain"},
	}
	for _, tt := range tests {
		if got := repairJSON(tt.in); got != tt.want {
			t.Errorf("repairJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
