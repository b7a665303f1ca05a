package startsheet

import (
	"regexp"
	"strings"
)

var (
	// "(12)", "(+2)", "(-1)", "(12.4)"
	handicapAnnotation = regexp.MustCompile(`\(\s*[+-]?\d+(?:\.\d+)?\s*\)`)
	// gross/net score tokens glued to names on the on-course board, e.g. "72+1"
	scoreToken = regexp.MustCompile(`\d{2,4}[+-]\d{1,2}`)
	honorific  = regexp.MustCompile(`(?i)^(?:mr|mrs|ms|miss|dr|rev)\.?\s+`)
)

// NormalizeName produces the key players are matched on between the
// start sheet and the results tables. Both sides must go through this
// function, and nothing else, before comparing names.
func NormalizeName(s string) string {
	s = handicapAnnotation.ReplaceAllString(s, " ")
	s = scoreToken.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	s = honorific.ReplaceAllString(s, "")
	return s
}
