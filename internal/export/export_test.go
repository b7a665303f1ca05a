package export

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
	"github.com/pfrederiksen/botgc-results/internal/startsheet"
	"github.com/pfrederiksen/botgc-results/internal/storage"
	"github.com/pfrederiksen/botgc-results/internal/winners"
	"github.com/xuri/excelize/v2"
)

func ip(v int) *int         { return &v }
func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }

func readBook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func rows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	got, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", sheet, err)
	}
	return got
}

var board = []leaderboard.Entry{
	{Position: 1, Name: "Alice Able", HandicapIndex: fp(8.1), CourseHandicap: fp(9), PlayingHandicap: fp(9), Score: ip(68), Thru: ip(18), Status: sp("F")},
	{Position: 2, Name: "Bob Baker", Score: ip(70)},
}

func TestWriteWinners(t *testing.T) {
	ws := []winners.Entry{
		{Entry: board[0], OriginalPosition: 1},
		{Entry: leaderboard.Entry{Position: 2, Name: "Cat Cole", Score: ip(72), PlayingHandicap: fp(13)}, OriginalPosition: 3},
	}

	var buf bytes.Buffer
	if err := WriteWinners(&buf, "Monthly Medal October", ws); err != nil {
		t.Fatalf("WriteWinners() error = %v", err)
	}

	f := readBook(t, buf.Bytes())
	if diff := cmp.Diff([]string{WinnersSheet}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}

	want := [][]string{
		{"Monthly Medal October"},
		{"Pos", "Name", "Score", "Leaderboard Pos", "HI", "CH", "PH"},
		{"1", "Alice Able", "68", "1", "8.1", "9", "9"},
		{"2", "Cat Cole", "72", "3", "", "", "13"},
	}
	if diff := cmp.Diff(want, rows(t, f, WinnersSheet)); diff != "" {
		t.Errorf("winners rows mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteLeaderboard(t *testing.T) {
	var buf bytes.Buffer
	res := &leaderboard.Result{Competition: "Saturday Stableford", Entries: board}
	if err := WriteLeaderboard(&buf, res); err != nil {
		t.Fatalf("WriteLeaderboard() error = %v", err)
	}

	f := readBook(t, buf.Bytes())
	if diff := cmp.Diff([]string{LeaderboardSheet}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}

	got := rows(t, f, LeaderboardSheet)
	if len(got) != 4 {
		t.Fatalf("got %d rows, want 4", len(got))
	}
	want := []string{"1", "Alice Able", "8.1", "9", "9", "68", "", "", "18", "", "", "", "F"}
	if diff := cmp.Diff(want, got[2]); diff != "" {
		t.Errorf("first entry mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2", "Bob Baker", "", "", "", "70"}, got[3]); diff != "" {
		t.Errorf("second entry mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteLeaderboard_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLeaderboard(&buf, &leaderboard.Result{Competition: "Empty"}); err != nil {
		t.Fatalf("WriteLeaderboard() error = %v", err)
	}
	f := readBook(t, buf.Bytes())
	if diff := cmp.Diff([]string{LeaderboardSheet}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteSnapshot(t *testing.T) {
	snap := &storage.Snapshot{
		CompID:      "4521",
		Competition: "Monthly Medal October",
		Leaderboard: board,
		Winners:     []winners.Entry{{Entry: board[0], OriginalPosition: 1}},
	}

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, snap); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}

	f := readBook(t, buf.Bytes())
	if diff := cmp.Diff([]string{WinnersSheet, LeaderboardSheet}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}
	if got := rows(t, f, LeaderboardSheet); len(got) != 4 {
		t.Errorf("leaderboard has %d rows, want 4", len(got))
	}
	if got := rows(t, f, WinnersSheet); len(got) != 3 {
		t.Errorf("winners has %d rows, want 3", len(got))
	}
}

func TestWriteStartSheet(t *testing.T) {
	records := []startsheet.Record{
		{Name: "Alice Able", HandicapIndex: 8.1, CourseHandicap: 9, PlayingHandicap: 9},
		{Name: "Bob Baker", HandicapIndex: 30.2, CourseHandicap: 33, PlayingHandicap: 32},
	}

	var buf bytes.Buffer
	if err := WriteStartSheet(&buf, "Start sheet 4521", records); err != nil {
		t.Fatalf("WriteStartSheet() error = %v", err)
	}

	f := readBook(t, buf.Bytes())
	want := [][]string{
		{"Start sheet 4521"},
		{"#", "Name", "HI", "CH", "PH"},
		{"1", "Alice Able", "8.1", "9", "9"},
		{"2", "Bob Baker", "30.2", "33", "32"},
	}
	if diff := cmp.Diff(want, rows(t, f, StartSheetSheet)); diff != "" {
		t.Errorf("start sheet mismatch (-want +got):\n%s", diff)
	}
}
