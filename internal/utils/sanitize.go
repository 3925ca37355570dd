package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^\s*(\d+)`)

// CleanTag trims whitespace and the NUL padding some taggers leave behind.
func CleanTag(text string) string {
	return strings.TrimSpace(strings.Trim(text, "\x00"))
}

// ParseLeadingInt reads the integer a tag value starts with:
// "128" -> 128, "95.5" -> 95, "3/12" -> 3. ok is false when there is none.
func ParseLeadingInt(text string) (int, bool) {
	m := leadingNumber.FindStringSubmatch(CleanTag(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatTrackNumber renders "n" or "n/total"; 0 means unknown.
func FormatTrackNumber(n, total int) string {
	switch {
	case n <= 0:
		return ""
	case total <= 0:
		return strconv.Itoa(n)
	default:
		return strconv.Itoa(n) + "/" + strconv.Itoa(total)
	}
}

// SanitizeYear returns the first four characters of a date tag if they are a year.
func SanitizeYear(dateStr string) string {
	dateStr = CleanTag(dateStr)
	if len(dateStr) >= 4 {
		year := dateStr[:4]
		if _, err := strconv.Atoi(year); err == nil {
			return year
		}
	}
	return ""
}
