package extract

import (
	"strings"

	"quill/internal/config"
)

// Classify matches the opening of text against the configured content types
// in declared order and returns the first type with a keyword hit. With no
// hit the default type wins; with no default the first declared type is the
// deterministic fallback.
func Classify(text string, types []config.ContentType) (config.ContentType, bool) {
	if len(types) == 0 {
		return config.ContentType{}, false
	}

	intro := classificationExcerpt(text)
	var fallback *config.ContentType
	for i := range types {
		ct := &types[i]
		if ct.IsDefault && fallback == nil {
			fallback = ct
		}
		for _, keyword := range ct.DetectionKeywords {
			if keyword != "" && strings.Contains(intro, strings.ToLower(keyword)) {
				return *ct, true
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return types[0], true
}

// classificationExcerpt lowercases the first 100 words of the first 500
// characters. Keyword matching only ever sees the opening of a note; a
// passing mention deep in the body should not reclassify it.
func classificationExcerpt(text string) string {
	head := text
	if runes := []rune(text); len(runes) > 500 {
		head = string(runes[:500])
	}
	words := strings.Fields(head)
	if len(words) > 100 {
		words = words[:100]
	}
	return strings.ToLower(strings.Join(words, " "))
}
