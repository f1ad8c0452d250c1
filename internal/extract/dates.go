package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthPrefixes maps English and German month-name prefixes to month
// numbers. Lookup is by longest matching prefix so "März", "Mar", and
// "March" all resolve.
var monthPrefixes = map[string]time.Month{
	"jan": time.January, "feb": time.February,
	"mar": time.March, "mär": time.March, "maer": time.March,
	"apr": time.April,
	"may": time.May, "mai": time.May,
	"jun": time.June, "jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October, "okt": time.October,
	"nov": time.November,
	"dec": time.December, "dez": time.December,
}

var (
	textualDateRe = regexp.MustCompile(`^(\d{1,2})\.?\s+([a-zA-ZäöüÄÖÜ]{3,9})\s+(\d{2,4})$`)
	numericSplit  = regexp.MustCompile(`\s*[.-]\s*`)
)

// parseDayMonthYear parses the date fragments the spoken-date regexes
// capture: "14. März 2025", "3 January 24", "14.03.2025", "2025-03-14".
// Numeric forms are day-month-year unless the leading field is a four-digit
// year.
func parseDayMonthYear(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if m := textualDateRe.FindStringSubmatch(raw); m != nil {
		day, _ := strconv.Atoi(m[1])
		year := normalizeYear(m[3])
		month, ok := monthFromName(m[2])
		if !ok || !validDate(year, month, day) {
			return time.Time{}, false
		}
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
	}

	parts := numericSplit.Split(raw, -1)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, part := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = value
	}

	var year, day int
	var month time.Month
	if len(strings.TrimSpace(parts[0])) == 4 {
		year, month, day = nums[0], time.Month(nums[1]), nums[2]
	} else {
		day, month = nums[0], time.Month(nums[1])
		year = normalizeYear(strings.TrimSpace(parts[2]))
	}
	if !validDate(year, month, day) {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

func monthFromName(name string) (time.Month, bool) {
	lowered := strings.ToLower(name)
	for prefix := len(lowered); prefix >= 3; prefix-- {
		if month, ok := monthPrefixes[lowered[:prefix]]; ok {
			return month, true
		}
	}
	return 0, false
}

func normalizeYear(raw string) int {
	year, _ := strconv.Atoi(raw)
	if len(raw) <= 2 {
		return 2000 + year
	}
	return year
}

func validDate(year int, month time.Month, day int) bool {
	if year < 1900 || year > 2200 {
		return false
	}
	if month < time.January || month > time.December {
		return false
	}
	return day >= 1 && day <= 31
}
