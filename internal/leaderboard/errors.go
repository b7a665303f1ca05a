package leaderboard

import "fmt"

// LayoutError means the page no longer matches an assumption the
// extractor relies on: an unknown header, or a required column whose
// cell cannot be read. It is fatal because continuing would produce
// silently wrong rankings.
type LayoutError struct {
	Column   string
	Position int
	Value    string
	Reason   string
}

func (e *LayoutError) Error() string {
	if e.Column == "" {
		return "layout assumption violated: " + e.Reason
	}
	return fmt.Sprintf("layout assumption violated: column %q of row %d: %s (value %q)",
		e.Column, e.Position, e.Reason, e.Value)
}
