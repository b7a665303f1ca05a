package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
)

// SortOrder represents the available leaderboard sorting options
type SortOrder string

const (
	SortByPosition SortOrder = "position"
	SortByName     SortOrder = "name"
	SortByHandicap SortOrder = "handicap"
)

func parseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "", SortByPosition:
		return SortByPosition, nil
	case SortByName, SortByHandicap:
		return o, nil
	default:
		return "", fmt.Errorf("invalid sort: %s (must be 'position', 'name' or 'handicap')", s)
	}
}

// sortEntries reorders entries in place. Ties keep leaderboard order.
func sortEntries(entries []leaderboard.Entry, order SortOrder) {
	switch order {
	case SortByName:
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
		})
	case SortByHandicap:
		sort.SliceStable(entries, func(i, j int) bool {
			return compareByHandicap(entries[i], entries[j])
		})
	default:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Position < entries[j].Position
		})
	}
}

// compareByHandicap orders by playing handicap, lowest first. Entries
// without one go last.
func compareByHandicap(i, j leaderboard.Entry) bool {
	hi, hj := i.PlayingHandicap, j.PlayingHandicap
	switch {
	case hi != nil && hj != nil:
		return *hi < *hj
	case hi != nil:
		return true
	default:
		return false
	}
}
