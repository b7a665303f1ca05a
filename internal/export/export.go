// Package export writes leaderboards and winners as xlsx workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
	"github.com/pfrederiksen/botgc-results/internal/startsheet"
	"github.com/pfrederiksen/botgc-results/internal/storage"
	"github.com/pfrederiksen/botgc-results/internal/winners"
	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	WinnersSheet     = "Winners"
	LeaderboardSheet = "Leaderboard"
	StartSheetSheet  = "Start Sheet"
)

var (
	winnerColumns = []string{"Pos", "Name", "Score", "Leaderboard Pos", "HI", "CH", "PH"}
	boardColumns  = []string{"Pos", "Name", "HI", "CH", "PH", "Score", "Latest", "Total", "Thru", "Final", "R1", "R2", "Status"}
	sheetColumns  = []string{"#", "Name", "HI", "CH", "PH"}
)

// WriteWinners writes a workbook with a single Winners sheet.
func WriteWinners(w io.Writer, competition string, ws []winners.Entry) error {
	return write(w, competition, ws, nil)
}

// WriteLeaderboard writes a workbook with a single Leaderboard sheet.
func WriteLeaderboard(w io.Writer, res *leaderboard.Result) error {
	if res == nil {
		res = &leaderboard.Result{}
	}
	board := res.Entries
	if board == nil {
		board = []leaderboard.Entry{}
	}
	return write(w, res.Competition, nil, board)
}

// WriteSnapshot writes both sheets of a stored snapshot.
func WriteSnapshot(w io.Writer, snap *storage.Snapshot) error {
	board := snap.Leaderboard
	if board == nil {
		board = []leaderboard.Entry{}
	}
	ws := snap.Winners
	if ws == nil {
		ws = []winners.Entry{}
	}
	return write(w, snap.Competition, ws, board)
}

// WriteStartSheet writes a workbook listing the start-sheet handicaps
// under title.
func WriteStartSheet(w io.Writer, title string, records []startsheet.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), StartSheetSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	rows := make([][]interface{}, 0, len(records))
	for i, r := range records {
		rows = append(rows, []interface{}{i + 1, r.Name, r.HandicapIndex, r.CourseHandicap, r.PlayingHandicap})
	}
	if err := writeSheet(f, StartSheetSheet, title, sheetColumns, rows, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// write emits a Winners sheet when ws is non-nil and a Leaderboard sheet
// when board is non-nil.
func write(w io.Writer, competition string, ws []winners.Entry, board []leaderboard.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	first := f.GetSheetName(f.GetActiveSheetIndex())
	var sheets []string
	if ws != nil || board == nil {
		sheets = append(sheets, WinnersSheet)
	}
	if board != nil {
		sheets = append(sheets, LeaderboardSheet)
	}
	for i, name := range sheets {
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return fmt.Errorf("naming sheet: %w", err)
			}
			continue
		}
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("adding sheet %s: %w", name, err)
		}
	}

	for _, name := range sheets {
		var rows [][]interface{}
		var columns []string
		switch name {
		case WinnersSheet:
			columns, rows = winnerColumns, winnerRows(ws)
		case LeaderboardSheet:
			columns, rows = boardColumns, boardRows(board)
		}
		if err := writeSheet(f, name, competition, columns, rows, bold); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// writeSheet puts the competition name in A1, the header in row 2 and
// the data from row 3.
func writeSheet(f *excelize.File, sheet, competition string, columns []string, rows [][]interface{}, style int) error {
	if err := f.SetCellValue(sheet, "A1", competition); err != nil {
		return fmt.Errorf("writing title: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A2", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 2, style); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 28); err != nil {
		return err
	}
	if len(columns) > 2 {
		return f.SetColWidth(sheet, "C", last, 10)
	}
	return nil
}

func winnerRows(ws []winners.Entry) [][]interface{} {
	rows := make([][]interface{}, 0, len(ws))
	for _, w := range ws {
		rows = append(rows, []interface{}{
			w.Position, w.Name, intCell(w.Score), w.OriginalPosition,
			floatCell(w.HandicapIndex), floatCell(w.CourseHandicap), floatCell(w.PlayingHandicap),
		})
	}
	return rows
}

func boardRows(entries []leaderboard.Entry) [][]interface{} {
	rows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		status := interface{}(nil)
		if e.Status != nil {
			status = *e.Status
		}
		rows = append(rows, []interface{}{
			e.Position, e.Name,
			floatCell(e.HandicapIndex), floatCell(e.CourseHandicap), floatCell(e.PlayingHandicap),
			intCell(e.Score), intCell(e.Latest), intCell(e.Total), intCell(e.Thru),
			intCell(e.Final), intCell(e.R1), intCell(e.R2), status,
		})
	}
	return rows
}

func intCell(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func floatCell(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
