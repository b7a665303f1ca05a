package leaderboard

import (
	"fmt"
	"strings"
)

// Layout identifies one of the results table shapes the portal renders.
type Layout int

const (
	// FinalResult is the plain final-standings table.
	FinalResult Layout = iota
	// LiveLeaderboard has a Thru column and optionally a Status column.
	LiveLeaderboard
	// OnCourseScoring is the in-progress round with a Latest column.
	OnCourseScoring
	// MultiRoundSummary has R1 and R2 columns.
	MultiRoundSummary
)

func (l Layout) String() string {
	switch l {
	case FinalResult:
		return "final"
	case LiveLeaderboard:
		return "live"
	case OnCourseScoring:
		return "oncourse"
	case MultiRoundSummary:
		return "multiround"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// Variant is a Layout plus the optional-column flags that change how a
// row is read.
type Variant struct {
	Layout    Layout
	HasStatus bool
}

func (v Variant) String() string {
	if v.Layout == LiveLeaderboard && v.HasStatus {
		return "live+status"
	}
	return v.Layout.String()
}

// MarshalText renders the variant name in JSON output.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText reads a name written by MarshalText.
func (v *Variant) UnmarshalText(text []byte) error {
	switch string(text) {
	case "final":
		*v = Variant{Layout: FinalResult}
	case "live":
		*v = Variant{Layout: LiveLeaderboard}
	case "live+status":
		*v = Variant{Layout: LiveLeaderboard, HasStatus: true}
	case "oncourse":
		*v = Variant{Layout: OnCourseScoring}
	case "multiround":
		*v = Variant{Layout: MultiRoundSummary}
	default:
		return fmt.Errorf("unknown layout %q", text)
	}
	return nil
}

// Header captions that decide the layout.
const (
	captionR1     = "R1"
	captionR2     = "R2"
	captionLatest = "Latest"
	captionThru   = "Thru"
	captionStatus = "Status"
	captionTotal  = "Total"
)

const minFinalCaptions = 3

// Classify picks the layout from the header captions. The checks run
// from most to least specific; a header too thin to be a standings table
// is rejected rather than guessed at.
func Classify(captions []string) (Variant, error) {
	has := make(map[string]bool, len(captions))
	named := 0
	for _, c := range captions {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		has[c] = true
		named++
	}

	switch {
	case has[captionR1] && has[captionR2]:
		return Variant{Layout: MultiRoundSummary}, nil
	case has[captionLatest]:
		return Variant{Layout: OnCourseScoring}, nil
	case has[captionThru]:
		return Variant{Layout: LiveLeaderboard, HasStatus: has[captionStatus]}, nil
	case named >= minFinalCaptions:
		return Variant{Layout: FinalResult}, nil
	default:
		return Variant{}, &LayoutError{
			Reason: fmt.Sprintf("unrecognised results table header %q", captions),
		}
	}
}
