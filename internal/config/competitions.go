package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ScoreType is how a competition ranks players.
type ScoreType string

const (
	Stroke ScoreType = "stroke"
	Points ScoreType = "points"
)

// HandicapField names the start-sheet handicap used for banding.
type HandicapField string

const (
	HandicapIndex   HandicapField = "hi"
	CourseHandicap  HandicapField = "ci"
	PlayingHandicap HandicapField = "ph"
)

// ParseHandicapField accepts the short and long field names in any case.
func ParseHandicapField(s string) (HandicapField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hi", "handicapindex":
		return HandicapIndex, nil
	case "ci", "ch", "coursehandicap":
		return CourseHandicap, nil
	case "ph", "playinghandicap":
		return PlayingHandicap, nil
	default:
		return "", &ValueError{Field: "useHandicap", Value: s}
	}
}

const (
	DefaultUseHandicap = PlayingHandicap
	DefaultGrossOrNet  = "gross"
	DefaultBaseline    = 71
)

// Competition is the winner-selection rule set for competitions whose
// name matches Regex.
type Competition struct {
	Regex           string    `json:"regex" yaml:"regex"`
	MinHandicap     float64   `json:"minHandicap" yaml:"minHandicap"`
	MaxHandicap     float64   `json:"maxHandicap" yaml:"maxHandicap"`
	NumberOfResults int       `json:"numberOfResults" yaml:"numberOfResults"`
	ScoreType       ScoreType `json:"scoreType" yaml:"scoreType"`
	UseHandicap     string    `json:"useHandicap,omitempty" yaml:"useHandicap,omitempty"`
	GrossOrNet      string    `json:"grossOrNet,omitempty" yaml:"grossOrNet,omitempty"`
	Baseline        *int      `json:"baseline,omitempty" yaml:"baseline,omitempty"`

	re *regexp.Regexp
}

// HandicapField returns the handicap to band on, defaulting to ph.
func (c Competition) HandicapField() (HandicapField, error) {
	if c.UseHandicap == "" {
		return DefaultUseHandicap, nil
	}
	return ParseHandicapField(c.UseHandicap)
}

// BaselineOrDefault returns the configured baseline or 71.
func (c Competition) BaselineOrDefault() int {
	if c.Baseline == nil {
		return DefaultBaseline
	}
	return *c.Baseline
}

// GrossOrNetOrDefault returns the configured ordering or gross.
func (c Competition) GrossOrNetOrDefault() string {
	if c.GrossOrNet == "" {
		return DefaultGrossOrNet
	}
	return strings.ToLower(c.GrossOrNet)
}

// Competitions is an ordered list of competition rules. GrossOrNet is
// the details-report ordering for rules that do not set their own.
type Competitions struct {
	GrossOrNet string        `json:"grossOrNet,omitempty" yaml:"grossOrNet,omitempty"`
	List       []Competition `json:"competitions" yaml:"competitions"`
}

// GrossOrNetOrDefault returns the document-level ordering or gross.
func (cs *Competitions) GrossOrNetOrDefault() string {
	if cs.GrossOrNet == "" {
		return DefaultGrossOrNet
	}
	return strings.ToLower(cs.GrossOrNet)
}

func validGrossOrNet(s string) error {
	switch strings.ToLower(s) {
	case "", "gross", "net":
		return nil
	default:
		return &ValueError{Field: "grossOrNet", Value: s}
	}
}

// NewCompetitions compiles the patterns of list. Patterns are anchored
// at the start of the name.
func NewCompetitions(list []Competition) (*Competitions, error) {
	out := &Competitions{List: make([]Competition, len(list))}
	for i, c := range list {
		if err := c.compile(); err != nil {
			return nil, fmt.Errorf("competition %d: %w", i, err)
		}
		out.List[i] = c
	}
	return out, nil
}

func (c *Competition) compile() error {
	if c.Regex == "" {
		return &ValueError{Field: "regex", Value: c.Regex}
	}
	if err := validGrossOrNet(c.GrossOrNet); err != nil {
		return err
	}
	re, err := regexp.Compile("^(?:" + c.Regex + ")")
	if err != nil {
		return fmt.Errorf("compiling regex %q: %w", c.Regex, err)
	}
	c.re = re
	return nil
}

// Match returns the first competition whose pattern matches name.
func (cs *Competitions) Match(name string) (Competition, error) {
	for _, c := range cs.List {
		if c.re == nil {
			if err := c.compile(); err != nil {
				return Competition{}, err
			}
		}
		if c.re.MatchString(name) {
			return c, nil
		}
	}
	return Competition{}, &MatchError{Name: name}
}

// Baseline returns the baseline for name, or the default when nothing
// matches.
func (cs *Competitions) Baseline(name string) int {
	c, err := cs.Match(name)
	if err != nil {
		return DefaultBaseline
	}
	return c.BaselineOrDefault()
}
