package competitions

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ordinalSuffix = regexp.MustCompile(`(\d)(?:st|nd|rd|th)\b`)

// ParseDate reads a listing date such as "Saturday 12th October" or
// "Saturday 12 October" in year. The listing omits the year. Returns
// the zero time if the text is not a date.
func ParseDate(text string, year int) time.Time {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return time.Time{}
	}
	text = ordinalSuffix.ReplaceAllString(text, "$1")

	for _, layout := range []string{"Monday 2 January 2006", "Mon 2 Jan 2006", "2 January 2006"} {
		t, err := time.Parse(layout, text+" "+strconv.Itoa(year))
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
