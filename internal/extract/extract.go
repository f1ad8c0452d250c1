// Package extract implements the deterministic text heuristics that run
// before any model call: spoken-tag capture, spoken and filename date/time
// detection, and content-type classification against the configured ordered
// type list.
package extract

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
)

// UnknownTime is the sentinel written when no time could be determined.
const UnknownTime = "unknown"

// Metadata is the result of deterministic extraction over a raw transcript
// or text note.
type Metadata struct {
	Date       string
	Time       string
	CleanText  string
	SpokenTags []string
}

// Options controls tag extraction.
type Options struct {
	TagTriggers     []string
	TagSearchWindow int
}

// Extractor applies the extraction heuristics. The zero value is not usable;
// construct with New.
type Extractor struct {
	tagPattern *regexp.Regexp
	window     int

	// now is overridable in tests for the date-of-last-resort fallback.
	now func() time.Time
}

const (
	defaultTagSearchWindow = 400
	minTagSearchWindow     = 10
)

// New builds an Extractor from the supplied options, applying the same
// floors the config layer enforces so direct construction stays safe.
func New(opts Options) *Extractor {
	triggers := opts.TagTriggers
	if len(triggers) == 0 {
		triggers = []string{"Tag", "Tags"}
	}
	escaped := make([]string, 0, len(triggers))
	for _, trigger := range triggers {
		escaped = append(escaped, regexp.QuoteMeta(trigger))
	}
	window := opts.TagSearchWindow
	if window <= 0 {
		window = defaultTagSearchWindow
	}
	if window < minTagSearchWindow {
		window = minTagSearchWindow
	}
	pattern := regexp.MustCompile(`(?i)(?:\b(?:` + strings.Join(escaped, "|") + `)\b[:\s.,]+|#)(.*)$`)
	return &Extractor{
		tagPattern: pattern,
		window:     window,
		now:        time.Now,
	}
}

var (
	dateKeywordTextRe = regexp.MustCompile(`(?i)(?:Datum|Date)[:\s]+(\d{1,2}\.?\s+[a-zA-ZäöüÄÖÜ]{3,9}\s+\d{2,4})`)
	dateKeywordNumRe  = regexp.MustCompile(`(?i)(?:Datum|Date)[:\s]+(\d{1,4}[-.]\d{1,2}[-.]\d{2,4})`)
	dateDirectTextRe  = regexp.MustCompile(`^\s*(\d{1,2}\.?\s+[a-zA-ZäöüÄÖÜ]{3,9}\s+\d{2,4})`)
	dateDirectNumRe   = regexp.MustCompile(`^\s*(\d{1,2}\s*[.-]\s*\d{1,2}\s*[.-]\s*\d{2,4})`)

	timeBody          = `(\d{1,2})\s*(?:[:.]|Uhr)\s*(\d{2})(?:\s*(?:Uhr|h|am|pm))?`
	timeKeywordRe     = regexp.MustCompile(`(?i)(?:Zeit|Time|Uhrzeit)[:\s]*` + timeBody)
	timeDirectRe      = regexp.MustCompile(`(?i)^\s*` + timeBody)
	leadingJunkRe     = regexp.MustCompile(`^[\s.,;:\-]+`)
	trailingPunctRe   = regexp.MustCompile(`[.!?]+$`)
	tagSplitRe        = regexp.MustCompile(`[\s,]+`)
	tagCleanRe        = regexp.MustCompile(`[^\p{L}\p{N}_\-]`)
	filenameShortTsRe = regexp.MustCompile(`(\d{2})(\d{2})(\d{2})_(\d{2})(\d{2})\d{2}`)
	filenameLongTsRe  = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})\d{2}`)
)

// Metadata extracts tags, date, and time from text, returning the cleaned
// body with those fragments removed. path supplies the filename-timestamp
// and file-mtime fallbacks; the file does not have to exist.
func (e *Extractor) Metadata(text, path string) Metadata {
	tags, clean := e.extractSpokenTags(text)
	meta := Metadata{CleanText: clean, SpokenTags: tags}

	meta.Date, meta.CleanText = extractSpokenDate(meta.CleanText)
	meta.Time, meta.CleanText = extractSpokenTime(meta.CleanText)

	meta.CleanText = leadingJunkRe.ReplaceAllString(meta.CleanText, "")
	meta.CleanText = upperFirst(meta.CleanText)

	if meta.Date == "" || meta.Time == "" {
		fnDate, fnTime := timestampFromFilename(path)
		if meta.Date == "" {
			meta.Date = fnDate
		}
		if meta.Time == "" {
			meta.Time = fnTime
		}
	}
	if meta.Date == "" {
		if info, err := os.Stat(path); err == nil {
			meta.Date = info.ModTime().Format("2006-01-02")
		} else {
			meta.Date = e.now().Format("2006-01-02")
		}
	}
	if meta.Time == "" {
		meta.Time = UnknownTime
	}
	return meta
}

func (e *Extractor) extractSpokenTags(text string) ([]string, string) {
	if text == "" {
		return nil, ""
	}

	window := text
	if runes := []rune(text); len(runes) > e.window {
		window = string(runes[len(runes)-e.window:])
	}

	loc := e.tagPattern.FindStringSubmatchIndex(window)
	if loc == nil {
		return nil, text
	}

	raw := strings.TrimSpace(window[loc[2]:loc[3]])
	raw = trailingPunctRe.ReplaceAllString(raw, "")

	var tags []string
	if raw != "" {
		for _, word := range tagSplitRe.Split(raw, -1) {
			if cleaned := tagCleanRe.ReplaceAllString(word, ""); cleaned != "" {
				tags = append(tags, cleaned)
			}
		}
	}

	cut := len(text) - len(window) + loc[0]
	clean := strings.TrimRight(text[:cut], " ,.")
	return tags, clean
}

func extractSpokenDate(text string) (string, string) {
	head := text
	if runes := []rune(text); len(runes) > 60 {
		head = string(runes[:60])
	}

	var found, remove string
	if m := dateKeywordTextRe.FindStringSubmatch(text); m != nil {
		found, remove = m[1], m[0]
	} else if m := dateKeywordNumRe.FindStringSubmatch(text); m != nil {
		found, remove = m[1], m[0]
	} else if m := dateDirectTextRe.FindStringSubmatch(head); m != nil {
		found, remove = m[1], m[0]
	} else if m := dateDirectNumRe.FindStringSubmatch(head); m != nil {
		found, remove = m[1], m[0]
	}
	if found == "" {
		return "", text
	}

	parsed, ok := parseDayMonthYear(found)
	if !ok {
		return "", text
	}
	clean := strings.TrimSpace(strings.Replace(text, remove, "", 1))
	clean = leadingJunkRe.ReplaceAllString(clean, "")
	return parsed.Format("2006-01-02"), clean
}

func extractSpokenTime(text string) (string, string) {
	head := text
	if runes := []rune(text); len(runes) > 30 {
		head = string(runes[:30])
	}

	m := timeKeywordRe.FindStringSubmatch(text)
	if m == nil {
		m = timeDirectRe.FindStringSubmatch(head)
	}
	if m == nil {
		return "", text
	}

	hour, minute := m[1], m[2]
	if len(hour) < 2 {
		hour = "0" + hour
	}
	clean := strings.TrimSpace(strings.Replace(text, m[0], "", 1))
	return hour + ":" + minute, clean
}

func timestampFromFilename(path string) (string, string) {
	name := filepath.Base(path)
	if m := filenameShortTsRe.FindStringSubmatch(name); m != nil {
		return "20" + m[1] + "-" + m[2] + "-" + m[3], m[4] + ":" + m[5]
	}
	if m := filenameLongTsRe.FindStringSubmatch(name); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3], m[4] + ":" + m[5]
	}
	return "", ""
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Tags merges spoken tags into a sorted, deduplicated list.
func Tags(spoken []string) []string {
	seen := make(map[string]struct{}, len(spoken))
	out := make([]string, 0, len(spoken))
	for _, tag := range spoken {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
