package translate

import (
	"fmt"
	"strings"
)

// GetSystemPrompt returns the system prompt for a translation preset
func GetSystemPrompt(preset, sourceLang, targetLang string) string {
	base := fmt.Sprintf(
		"You are a professional subtitle translator. Translate subtitle segments from %s to %s. "+
			"Segments are consecutive sentences of one video; use neighbouring segments as context. "+
			"Keep translations concise and natural for subtitle display. "+
			"You always answer with a single valid JSON object and nothing else.",
		langName(sourceLang), langName(targetLang),
	)

	switch preset {
	case "anime":
		return base + "\n\n" +
			"Additional guidelines for anime translation:\n" +
			"- Use casual, natural speech patterns appropriate for anime dialogue\n" +
			"- Preserve Japanese honorifics (-san, -kun, -chan, -senpai, -sensei)\n" +
			"- Keep character name consistency\n" +
			"- Match the emotional tone (excited, serious, comedic)"

	case "movie":
		return base + "\n\n" +
			"Additional guidelines for movie/drama translation:\n" +
			"- Use natural conversational style appropriate for the genre\n" +
			"- Preserve cultural nuances and idioms with equivalent expressions\n" +
			"- Maintain formal/informal register matching the original dialogue"

	case "documentary":
		return base + "\n\n" +
			"Additional guidelines for documentary translation:\n" +
			"- Use formal, precise language\n" +
			"- Preserve all technical terminology with accurate translations\n" +
			"- Keep numbers, dates, and measurements accurate"

	default:
		return base
	}
}

// OutputKey is the response field carrying translated text, e.g. "zh-CN" -> "text_zh_cn"
func OutputKey(targetLang string) string {
	key := strings.ToLower(strings.TrimSpace(targetLang))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if key == "" {
		key = "translated"
	}
	return "text_" + key
}

func langName(code string) string {
	names := map[string]string{
		"ko":    "Korean",
		"en":    "English",
		"ja":    "Japanese",
		"zh":    "Chinese",
		"zh-cn": "Simplified Chinese",
		"zh-tw": "Traditional Chinese",
		"es":    "Spanish",
		"fr":    "French",
		"de":    "German",
		"pt":    "Portuguese",
		"it":    "Italian",
		"ru":    "Russian",
		"ar":    "Arabic",
		"hi":    "Hindi",
		"th":    "Thai",
		"vi":    "Vietnamese",
		"id":    "Indonesian",
		"auto":  "auto-detected language",
	}
	if name, ok := names[strings.ToLower(code)]; ok {
		return name
	}
	return code
}
