package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/botgc-results/internal/competitions"
)

// Options control the generated calendar.
type Options struct {
	// Name sets X-WR-CALNAME when not empty.
	Name string
	// BaseURL is prefixed to competition links. Defaults to the club portal.
	BaseURL string
	// Now stamps DTSTAMP. Defaults to time.Now.
	Now func() time.Time
}

const defaultBaseURL = "https://www.botgc.co.uk/"

// GenerateICS generates an iCalendar (.ics) file with one all-day event
// per competition. Competitions without a parseable Date fall back to day.
func GenerateICS(comps []competitions.Competition, day time.Time, opts Options) string {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	stamp := formatICSTime(opts.Now())

	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//BOTGC//botgc-results//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	if opts.Name != "" {
		ics.WriteString(fmt.Sprintf("X-WR-CALNAME:%s\r\n", escapeICS(opts.Name)))
	}

	for _, c := range comps {
		date := day
		if c.Date != "" {
			if t, err := time.Parse("2006-01-02", c.Date); err == nil {
				date = t
			}
		}
		start := competitions.Day(date)
		link := opts.BaseURL + strings.TrimPrefix(c.Link, "/")

		ics.WriteString("BEGIN:VEVENT\r\n")
		ics.WriteString(fmt.Sprintf("UID:competition-%s@botgc.co.uk\r\n", c.ID))
		ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", stamp))
		ics.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", formatICSDate(start)))
		ics.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", formatICSDate(start.AddDate(0, 0, 1))))
		ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(c.Name)))
		ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(description(c, link))))
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", link))
		ics.WriteString("STATUS:CONFIRMED\r\n")
		ics.WriteString("TRANSP:TRANSPARENT\r\n")
		ics.WriteString("END:VEVENT\r\n")
	}

	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

func description(c competitions.Competition, link string) string {
	var b strings.Builder
	b.WriteString(c.Name)
	if len(c.Components) > 0 {
		b.WriteString("\n\nRounds:")
		for _, round := range c.Components {
			b.WriteString("\n- " + round.Name)
		}
	}
	b.WriteString("\n\nResults: " + link)
	return b.String()
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func formatICSDate(t time.Time) string {
	return t.Format("20060102")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
