package leaderboard

import (
	"regexp"
	"strconv"
	"strings"
)

// NotReturned is the marker the portal shows for a card that was not returned.
const NotReturned = "NR"

// ParseScore applies the portal's cell rules: blank and "NR" have no
// score, an integer (optionally signed) is taken as is, and any other
// text counts as 0 ("E", "Level" and friends).
func ParseScore(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" || s == NotReturned {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		v = 0
	}
	return &v
}

var plainInteger = regexp.MustCompile(`^\d+$`)

// parsePosition reads "1", "2nd", "13th". Anything else is not a data row.
func parsePosition(s string) (int, bool) {
	s = strings.TrimRight(strings.TrimSpace(s), "stndrh")
	if !plainInteger.MatchString(s) {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseCountback reads the tooltip on a score link, for example
// "Countback: 18.5, 12, 6, 2". Values after the last colon are taken in
// back 9, 6, 3, 1 order.
func parseCountback(title string) *Countback {
	if i := strings.LastIndex(title, ":"); i >= 0 {
		title = title[i+1:]
	}
	fields := strings.FieldsFunc(title, func(r rune) bool {
		return r == ',' || r == '/'
	})

	values := make([]*float64, 0, 4)
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			continue
		}
		values = append(values, &v)
		if len(values) == 4 {
			break
		}
	}
	if len(values) == 0 {
		return nil
	}

	cb := &Countback{}
	targets := []**float64{&cb.Back9, &cb.Back6, &cb.Back3, &cb.Back1}
	for i, v := range values {
		*targets[i] = v
	}
	return cb
}

var embeddedHandicap = regexp.MustCompile(`\(\s*([+-]?\d+(?:\.\d+)?)\s*\)`)

// handicapFromName pulls "(12)" out of a raw "Name (12)" cell.
func handicapFromName(raw string) *float64 {
	m := embeddedHandicap.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}
