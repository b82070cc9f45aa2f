package site

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date shapes found in link neighborhoods and detail pages: 2024-3-1,
// 2024/03/01, 2024.3.1 and the 2024年3月1日 form.
var dateRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})[./-](\d{1,2})[./-](\d{1,2})`),
	regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`),
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalizeForMatch strips all whitespace and case-folds, so keyword
// matching survives the ragged formatting of list markup.
func normalizeForMatch(s string) string {
	return strings.ToLower(whitespaceRe.ReplaceAllString(s, ""))
}

// matchesKeyword reports whether text contains keyword after normalizing
// both sides. An empty keyword never matches.
func matchesKeyword(text, keyword string) bool {
	normalizedKeyword := normalizeForMatch(keyword)
	if normalizedKeyword == "" {
		return false
	}
	return strings.Contains(normalizeForMatch(text), normalizedKeyword)
}

// parseDateMatch builds a date from regex capture groups, rejecting
// impossible calendar values.
func parseDateMatch(groups []string) (time.Time, bool) {
	if len(groups) < 4 {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(groups[1])
	month, _ := strconv.Atoi(groups[2])
	day, _ := strconv.Atoi(groups[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); reject those.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

// extractDates finds every date-shaped substring in text.
func extractDates(text string) []time.Time {
	var dates []time.Time
	for _, re := range dateRegexes {
		for _, groups := range re.FindAllStringSubmatch(text, -1) {
			if t, ok := parseDateMatch(groups); ok {
				dates = append(dates, t)
			}
		}
	}
	return dates
}

// bestDate picks the maximum date found in text, or nil when there is none.
// Link neighborhoods often carry several dates (list ordinals, sidebar
// entries); the latest is the best available proxy for the publish date.
func bestDate(text string) *time.Time {
	dates := extractDates(text)
	if len(dates) == 0 {
		return nil
	}
	best := dates[0]
	for _, d := range dates[1:] {
		if d.After(best) {
			best = d
		}
	}
	return &best
}

// parseLooseDate parses a single already-isolated date string.
func parseLooseDate(text string) *time.Time {
	return bestDate(text)
}
