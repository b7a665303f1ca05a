package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pfrederiksen/botgc-results/internal/competitions"
	"github.com/pfrederiksen/botgc-results/internal/ksw"
	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
	"github.com/pfrederiksen/botgc-results/internal/startsheet"
	"github.com/pfrederiksen/botgc-results/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatXLSX OutputFormat = "xlsx"
	FormatICS  OutputFormat = "ics"
)

// parseFormat validates format against the formats a command supports.
func parseFormat(format string, allowed ...OutputFormat) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(format)))
	names := make([]string, len(allowed))
	for i, a := range allowed {
		if f == a {
			return f, nil
		}
		names[i] = "'" + string(a) + "'"
	}
	return "", fmt.Errorf("invalid format: %s (must be %s)", format, strings.Join(names, " or "))
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeWinnersText outputs a snapshot's winners as a table
func writeWinnersText(w io.Writer, snap *storage.Snapshot, verbose bool) error {
	fmt.Fprintf(w, "%s\n\n", title(snap.Competition))

	if len(snap.Winners) == 0 {
		fmt.Fprintln(w, "No qualifying results found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tNAME\tSCORE\tHI\tCH\tPH\tLEADERBOARD")
	for _, e := range snap.Winners {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			e.Position, e.Name, intText(e.Score),
			floatText(e.HandicapIndex), floatText(e.CourseHandicap), floatText(e.PlayingHandicap),
			e.OriginalPosition)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(w, "\nLayout: %s, %d leaderboard entries\n", snap.Layout, len(snap.Leaderboard))
	}
	fmt.Fprintf(w, "\nTotal: %d winners\n", len(snap.Winners))
	return nil
}

// writeLeaderboardText outputs the extracted leaderboard. Only columns
// the layout fills are shown.
func writeLeaderboardText(w io.Writer, res *leaderboard.Result, verbose bool) error {
	fmt.Fprintf(w, "%s (%s)\n\n", title(res.Competition), res.Variant)

	if len(res.Entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return nil
	}

	cols := leaderboardColumns(res.Entries, verbose)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, e := range res.Entries {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = c.value(e)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d entries\n", len(res.Entries))
	return nil
}

type column struct {
	name  string
	value func(leaderboard.Entry) string
}

func leaderboardColumns(entries []leaderboard.Entry, verbose bool) []column {
	all := []column{
		{"POS", func(e leaderboard.Entry) string { return strconv.Itoa(e.Position) }},
		{"NAME", func(e leaderboard.Entry) string { return e.Name }},
		{"HI", func(e leaderboard.Entry) string { return floatText(e.HandicapIndex) }},
		{"CH", func(e leaderboard.Entry) string { return floatText(e.CourseHandicap) }},
		{"PH", func(e leaderboard.Entry) string { return floatText(e.PlayingHandicap) }},
		{"R1", func(e leaderboard.Entry) string { return intText(e.R1) }},
		{"R2", func(e leaderboard.Entry) string { return intText(e.R2) }},
		{"LATEST", func(e leaderboard.Entry) string { return intText(e.Latest) }},
		{"THRU", func(e leaderboard.Entry) string { return intText(e.Thru) }},
		{"TOTAL", func(e leaderboard.Entry) string { return intText(e.Total) }},
		{"FINAL", func(e leaderboard.Entry) string { return intText(e.Final) }},
		{"SCORE", func(e leaderboard.Entry) string { return intText(e.Score) }},
		{"STATUS", func(e leaderboard.Entry) string {
			if e.Status == nil {
				return ""
			}
			return *e.Status
		}},
	}
	if verbose {
		all = append(all, column{"COUNTBACK", func(e leaderboard.Entry) string {
			if e.Countback == nil {
				return ""
			}
			cb := e.Countback
			return strings.Join([]string{floatText(cb.Back9), floatText(cb.Back6), floatText(cb.Back3), floatText(cb.Back1)}, "/")
		}})
	}

	var cols []column
	for _, c := range all {
		if c.name == "POS" || c.name == "NAME" || c.name == "SCORE" {
			cols = append(cols, c)
			continue
		}
		for _, e := range entries {
			if v := c.value(e); v != "" {
				cols = append(cols, c)
				break
			}
		}
	}
	return cols
}

// writeStartSheetText outputs start-sheet handicaps
func writeStartSheetText(w io.Writer, records []startsheet.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No players found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tHI\tCH\tPH")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name,
			formatFloat(r.HandicapIndex), formatFloat(r.CourseHandicap), formatFloat(r.PlayingHandicap))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d players\n", len(records))
	return nil
}

// writeCompetitionsText outputs the competitions on a day
func writeCompetitionsText(w io.Writer, comps []competitions.Competition, day string, verbose bool) error {
	if len(comps) == 0 {
		fmt.Fprintf(w, "No competitions found on %s.\n", day)
		return nil
	}

	for _, c := range comps {
		fmt.Fprintf(w, "%s: %s\n", c.ID, c.Name)
		for _, round := range c.Components {
			fmt.Fprintf(w, "     Round %s: %s\n", round.ID, round.Name)
		}
		if verbose && c.Link != "" {
			fmt.Fprintf(w, "     Link: %s\n", c.Link)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d competitions on %s\n", len(comps), day)
	return nil
}

// writeKSWText outputs the KSW table with the file's own columns
func writeKSWText(w io.Writer, records []ksw.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No KSW results found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(records[0].Columns(), "\t")))
	for _, r := range records {
		cells := make([]string, 0, len(r.Values()))
		for _, v := range r.Values() {
			if v == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, fmt.Sprint(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func title(name string) string {
	if name == "" {
		return "(unnamed competition)"
	}
	return name
}

func intText(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func floatText(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
