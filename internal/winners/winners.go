// Package winners ranks leaderboard entries into prize winners under a
// competition's rules.
package winners

import (
	"sort"

	"github.com/pfrederiksen/botgc-results/internal/config"
	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
)

// Entry is a winning leaderboard entry. Position is the prize rank
// 1..N; OriginalPosition is the rank shown on the leaderboard.
type Entry struct {
	leaderboard.Entry
	OriginalPosition int `json:"originalposition"`
}

// Select applies the rules matching competition to entries:
//
//  1. entries without a score, without the configured handicap, outside
//     the handicap band, or with Thru of 0 are dropped;
//  2. the rest are ordered by score, ascending for stroke play and
//     descending for points, keeping leaderboard order on ties;
//  3. for points, Total becomes the gap to the best score among the
//     first NumberOfResults;
//  4. the first NumberOfResults are re-ranked from 1.
//
// entries is not modified. An unmatched name is a *config.MatchError;
// an unknown score type or handicap field is a *config.ValueError.
func Select(competition string, entries []leaderboard.Entry, cfgs *config.Competitions) ([]Entry, error) {
	cfg, err := cfgs.Match(competition)
	if err != nil {
		return nil, err
	}
	return Apply(cfg, entries)
}

// Apply is Select with the rules already chosen.
func Apply(cfg config.Competition, entries []leaderboard.Entry) ([]Entry, error) {
	field, err := cfg.HandicapField()
	if err != nil {
		return nil, err
	}

	eligible := make([]leaderboard.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Score == nil {
			continue
		}
		hcp := Handicap(e, field)
		if hcp == nil || *hcp < cfg.MinHandicap || *hcp > cfg.MaxHandicap {
			continue
		}
		if e.Thru != nil && *e.Thru == 0 {
			continue
		}
		eligible = append(eligible, e.Clone())
	}

	switch cfg.ScoreType {
	case config.Stroke:
		sort.SliceStable(eligible, func(i, j int) bool {
			return *eligible[i].Score < *eligible[j].Score
		})
	case config.Points:
		sort.SliceStable(eligible, func(i, j int) bool {
			return *eligible[i].Score > *eligible[j].Score
		})
		applyPointsGap(eligible, cfg.NumberOfResults)
	default:
		return nil, &config.ValueError{Field: "scoreType", Value: string(cfg.ScoreType)}
	}

	n := cfg.NumberOfResults
	if n < 0 {
		n = 0
	}
	if n > len(eligible) {
		n = len(eligible)
	}

	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = Entry{Entry: eligible[i], OriginalPosition: eligible[i].Position}
		out[i].Position = i + 1
	}
	return out, nil
}

// applyPointsGap sets Total to score minus the best score among the
// first n sorted entries.
func applyPointsGap(sorted []leaderboard.Entry, n int) {
	best := 0
	found := false
	for i := 0; i < n && i < len(sorted); i++ {
		if s := *sorted[i].Score; !found || s > best {
			best = s
			found = true
		}
	}
	if !found {
		return
	}
	for i := range sorted {
		gap := *sorted[i].Score - best
		sorted[i].Total = &gap
	}
}

// Handicap returns the handicap field of e named by f.
func Handicap(e leaderboard.Entry, f config.HandicapField) *float64 {
	switch f {
	case config.HandicapIndex:
		return e.HandicapIndex
	case config.CourseHandicap:
		return e.CourseHandicap
	case config.PlayingHandicap:
		return e.PlayingHandicap
	default:
		return nil
	}
}
