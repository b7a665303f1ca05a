package leaderboard

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/startsheet"
)

const (
	// DefaultBaseline is the par a final-result gross total is reported against.
	DefaultBaseline = 71

	// Thru values the portal implies but does not print.
	holesSingleRound = 18
	holesTwoRounds   = 36

	minRowCells = 3
)

// BaselineFunc returns the baseline for a competition name.
type BaselineFunc func(competition string) int

// Extractor turns a results page into entries.
type Extractor struct {
	baseline BaselineFunc
	log      *logger.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithBaseline sets how the baseline is chosen once the competition
// name has been read from the page.
func WithBaseline(f BaselineFunc) Option {
	return func(x *Extractor) {
		if f != nil {
			x.baseline = f
		}
	}
}

// WithLogger sets the logger used for row-level diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(x *Extractor) {
		x.log = l
	}
}

// NewExtractor creates an Extractor with the default baseline.
func NewExtractor(opts ...Option) *Extractor {
	x := &Extractor{
		baseline: func(string) int { return DefaultBaseline },
		log:      logger.Default().With(logger.Fields{"component": "leaderboard"}),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract reads the competition name and the first results table from
// page and returns one Entry per data row that carries a score.
// Handicaps are joined from the start-sheet lookup by normalized name.
//
// A page with no table yields an empty Result and no error. A header the
// extractor does not recognise, or an unreadable Thru cell, is a
// *LayoutError.
func (x *Extractor) Extract(page io.Reader, handicaps startsheet.Lookup) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	result := &Result{
		Competition: x.competitionName(doc),
		Entries:     make([]Entry, 0),
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		x.log.Warn("No results table on page", logger.Fields{"competition": result.Competition})
		return result, nil
	}

	headRow := table.Find("thead tr").First()
	if headRow.Length() == 0 {
		headRow = table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
			return tr.ChildrenFiltered("th").Length() > 0
		}).First()
	}
	if headRow.Length() == 0 {
		// Tables without any <th> carry their captions in the first row.
		headRow = table.Find("tr").First()
	}
	head := newHeader(newRow(headRow))

	variant, err := Classify(head.captions)
	if err != nil {
		return nil, err
	}
	result.Variant = variant

	w := &walker{
		variant:   variant,
		head:      head,
		baseline:  x.baseline(result.Competition),
		handicaps: handicaps,
		log:       x.log,
	}

	var walkErr error
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if headRow.Length() > 0 && tr.Get(0) == headRow.Get(0) {
			return true
		}
		entry, ok, err := w.entry(newRow(tr))
		if err != nil {
			walkErr = err
			return false
		}
		if ok {
			result.Entries = append(result.Entries, entry)
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}

	x.log.Debug("Extracted leaderboard", logger.Fields{
		"competition": result.Competition,
		"layout":      variant.String(),
		"entries":     len(result.Entries),
	})
	return result, nil
}

// ExtractBytes is Extract over an in-memory page.
func (x *Extractor) ExtractBytes(page []byte, handicaps startsheet.Lookup) (*Result, error) {
	return x.Extract(bytes.NewReader(page), handicaps)
}

func (x *Extractor) competitionName(doc *goquery.Document) string {
	global := doc.Find("div.global").First()
	if global.Length() == 0 {
		x.log.Warn("Competition name container missing", nil)
		return ""
	}
	h3 := global.Find("h3").First()
	if h3.Length() == 0 {
		x.log.Warn("Competition name heading missing", nil)
		return ""
	}
	return normalizeSpace(h3.Text())
}

// walker holds the per-table state for reading rows.
type walker struct {
	variant   Variant
	head      header
	baseline  int
	handicaps startsheet.Lookup
	log       *logger.Logger
}

// entry reads one row. ok is false for rows that are not data rows or
// that carry no score.
func (w *walker) entry(r row) (Entry, bool, error) {
	if len(r) < minRowCells {
		return Entry{}, false, nil
	}
	pos, ok := parsePosition(r[0].text)
	if !ok {
		return Entry{}, false, nil
	}

	nameIndex := 1
	if w.variant.Layout == OnCourseScoring || w.variant.Layout == MultiRoundSummary {
		nameIndex = 2
	}
	nameCell, ok := r.at(nameIndex)
	if !ok {
		return Entry{}, false, nil
	}

	e := Entry{
		Position: pos,
		Name:     startsheet.NormalizeName(nameCell.linkText()),
	}
	if rec, found := w.handicaps.Find(e.Name); found {
		e.HandicapIndex = floatPtr(rec.HandicapIndex)
		e.CourseHandicap = floatPtr(rec.CourseHandicap)
		e.PlayingHandicap = floatPtr(rec.PlayingHandicap)
	} else {
		w.log.Debug("No start-sheet match", logger.Fields{"name": e.Name})
	}

	var err error
	switch w.variant.Layout {
	case FinalResult:
		w.finalResult(r, &e)
	case LiveLeaderboard:
		err = w.live(r, &e)
	case OnCourseScoring:
		err = w.onCourse(r, &e)
	case MultiRoundSummary:
		w.multiRound(r, nameCell, &e)
	}
	if err != nil {
		return Entry{}, false, err
	}

	if e.Score == nil {
		w.log.Debug("Dropping row without score", logger.Fields{"position": pos, "name": e.Name})
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (w *walker) finalResult(r row, e *Entry) {
	scoreCell, ok := r.at(2)
	if !ok {
		return
	}
	e.Final = ParseScore(scoreCell.linkText())
	if e.Final != nil {
		e.Total = intPtr(*e.Final - w.baseline)
		e.Score = cloneInt(e.Total)
	}
	e.Thru = intPtr(holesSingleRound)
	e.Countback = parseCountback(scoreCell.linkTitle())
}

func (w *walker) live(r row, e *Entry) error {
	thruIndex := 3
	if w.variant.HasStatus {
		statusCell, _ := w.head.lookup(r, captionStatus, 2)
		status := statusCell.text
		e.Status = &status
		e.Score = ParseScore(status)
		e.Total = cloneInt(e.Score)

		if scoreCell, ok := r.at(3); ok {
			e.Final = ParseScore(scoreCell.linkText())
			e.Countback = parseCountback(scoreCell.linkTitle())
		}
		thruIndex = 4
	} else if scoreCell, ok := r.at(2); ok {
		e.Score = ParseScore(scoreCell.linkText())
		e.Total = cloneInt(e.Score)
		e.Final = cloneInt(e.Score)
		e.Countback = parseCountback(scoreCell.linkTitle())
	}
	if e.Score == nil {
		return nil
	}

	thru, err := w.thru(r, thruIndex, e.Position)
	if err != nil {
		return err
	}
	e.Thru = thru
	return nil
}

func (w *walker) onCourse(r row, e *Entry) error {
	if c, ok := w.head.lookup(r, captionLatest, 3); ok {
		e.Latest = ParseScore(c.innerText())
	}
	if c, ok := r.at(5); ok {
		e.Final = ParseScore(c.text)
	}
	if c, ok := w.head.lookup(r, captionTotal, 6); ok {
		e.Total = ParseScore(c.text)
	}
	e.Score = cloneInt(e.Total)
	if e.Score == nil {
		return nil
	}

	thru, err := w.thru(r, 4, e.Position)
	if err != nil {
		return err
	}
	e.Thru = thru
	return nil
}

func (w *walker) multiRound(r row, nameCell cell, e *Entry) {
	if c, ok := w.head.lookup(r, captionR1, 3); ok {
		e.R1 = ParseScore(c.text)
	}
	if c, ok := w.head.lookup(r, captionR2, 4); ok {
		e.R2 = ParseScore(c.text)
	}

	totalCell, ok := w.head.lookup(r, captionTotal, len(r)-1)
	if !ok {
		totalCell, ok = r.last()
	}
	if ok {
		e.Total = ParseScore(totalCell.linkText())
		e.Final = cloneInt(e.Total)
		e.Score = cloneInt(e.Total)
	}
	e.Thru = intPtr(holesTwoRounds)

	if e.PlayingHandicap == nil {
		e.PlayingHandicap = handicapFromName(nameCell.text)
	}
}

// thru reads the holes-completed column of a scored row. Unlike score
// cells it is strict: a value the header promises but the row cannot
// provide means the layout has shifted.
func (w *walker) thru(r row, index, position int) (*int, error) {
	c, ok := w.head.lookup(r, captionThru, index)
	if !ok {
		return nil, &LayoutError{Column: captionThru, Position: position, Reason: "cell missing"}
	}
	v, err := strconv.Atoi(c.text)
	if err != nil {
		return nil, &LayoutError{Column: captionThru, Position: position, Value: c.text, Reason: "not an integer"}
	}
	return &v, nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
