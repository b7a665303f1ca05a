package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pfrederiksen/botgc-results/internal/competitions"
	"github.com/pfrederiksen/botgc-results/internal/config"
	"github.com/pfrederiksen/botgc-results/internal/ksw"
	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/portal"
	"github.com/pfrederiksen/botgc-results/internal/report"
	"github.com/pfrederiksen/botgc-results/internal/startsheet"
	"github.com/pfrederiksen/botgc-results/internal/storage"
	"github.com/pfrederiksen/botgc-results/internal/winners"
)

func TestMain(m *testing.M) {
	logger.SetDefault(logger.New(logger.LevelError, io.Discard))
	os.Exit(m.Run())
}

func ip(v int) *int { return &v }

type fakeResults struct {
	err     error
	gotID   string
	gotOpts report.Options
	winners []winners.Entry
	board   *leaderboard.Result
	records []startsheet.Record
}

func (f *fakeResults) ComputeWinners(_ context.Context, id string, opts report.Options) ([]winners.Entry, error) {
	f.gotID, f.gotOpts = id, opts
	return f.winners, f.err
}

func (f *fakeResults) Leaderboard(_ context.Context, id string, opts report.Options) (*leaderboard.Result, error) {
	f.gotID, f.gotOpts = id, opts
	return f.board, f.err
}

func (f *fakeResults) StartSheet(_ context.Context, id string) ([]startsheet.Record, error) {
	f.gotID = id
	return f.records, f.err
}

type fakeListing struct {
	got   time.Time
	comps []competitions.Competition
	err   error
}

func (f *fakeListing) OnDate(_ context.Context, d time.Time) ([]competitions.Competition, error) {
	f.got = d
	return f.comps, f.err
}

type fakeKSW struct {
	records []ksw.Record
}

func (f fakeKSW) Results(context.Context) ([]ksw.Record, error) {
	return f.records, nil
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body
}

func TestCompetitionResult(t *testing.T) {
	res := &fakeResults{winners: []winners.Entry{
		{Entry: leaderboard.Entry{Position: 1, Name: "Alice Able", Score: ip(68)}, OriginalPosition: 1},
	}}
	srv := New(res)

	rec := do(t, srv, http.MethodGet, "/api/competition_result?compid=4521&mode=details&grossOrNet=net", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got []map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["name"] != "Alice Able" || got[0]["originalposition"] != float64(1) {
		t.Errorf("unexpected body: %v", got)
	}

	if res.gotID != "4521" {
		t.Errorf("compid = %q, want 4521", res.gotID)
	}
	if diff := cmp.Diff(report.Options{Mode: report.ModeDetails, GrossOrNet: report.Net}, res.gotOpts); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestCompetitionResult_OrderingLeftToRules(t *testing.T) {
	res := &fakeResults{}
	srv := New(res)

	rec := do(t, srv, http.MethodGet, "/api/competition_result?compid=4521&mode=details", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if diff := cmp.Diff(report.Options{Mode: report.ModeDetails}, res.gotOpts); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestCompetitionResult_PostBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"string id", `{"compid": "4521"}`},
		{"numeric id", `{"compid": 4521}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &fakeResults{}
			rec := do(t, New(res), http.MethodPost, "/api/competition_result", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}
			if res.gotID != "4521" {
				t.Errorf("compid = %q, want 4521", res.gotID)
			}
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"missing compid", "/api/competition_result", nil, http.StatusBadRequest, kindBadRequest},
		{"bad mode", "/api/competition_result?compid=1&mode=weekly", nil, http.StatusBadRequest, kindBadRequest},
		{"bad grossOrNet", "/api/leaderboard?compid=1&grossOrNet=both", nil, http.StatusBadRequest, kindBadRequest},
		{"no matching config", "/api/competition_result?compid=1", &config.MatchError{Name: "Mystery Cup"}, http.StatusNotFound, kindMatch},
		{"portal down", "/api/competition_result?compid=1", &portal.TransportError{URL: "competition.php", StatusCode: 503}, http.StatusBadGateway, kindTransport},
		{"layout changed", "/api/leaderboard?compid=1", &leaderboard.LayoutError{Reason: "unknown header"}, http.StatusBadGateway, kindLayout},
		{"bad config value", "/api/competition_result?compid=1", &config.ValueError{Field: "scoreType", Value: "skins"}, http.StatusInternalServerError, kindConfig},
		{"wrapped error", "/api/startsheet?compid=1", wrap(&config.MatchError{Name: "x"}), http.StatusNotFound, kindMatch},
		{"other", "/api/startsheet?compid=1", errors.New("boom"), http.StatusInternalServerError, kindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, New(&fakeResults{err: tt.err}), http.MethodGet, tt.target, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeError(t, rec)
			if body.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", body.Kind, tt.wantKind)
			}
			if body.Error == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}

func wrap(err error) error {
	return errors.Join(errors.New("computing winners"), err)
}

func TestLeaderboardAndStartSheet(t *testing.T) {
	res := &fakeResults{
		board: &leaderboard.Result{
			Competition: "Saturday Stableford",
			Variant:     leaderboard.Variant{Layout: leaderboard.LiveLeaderboard, HasStatus: true},
			Entries:     []leaderboard.Entry{{Position: 1, Name: "Alice Able", Score: ip(40)}},
		},
		records: []startsheet.Record{{Name: "Alice Able", HandicapIndex: 8.1, CourseHandicap: 9, PlayingHandicap: 9}},
	}
	srv := New(res)

	rec := do(t, srv, http.MethodGet, "/api/leaderboard?compid=77", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard status = %d", rec.Code)
	}
	var board map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&board); err != nil {
		t.Fatal(err)
	}
	if board["competition"] != "Saturday Stableford" || board["layout"] != "live+status" {
		t.Errorf("unexpected leaderboard: %v", board)
	}

	rec = do(t, srv, http.MethodGet, "/api/startsheet?compid=77", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("startsheet status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Alice Able") {
		t.Errorf("unexpected start sheet: %s", rec.Body)
	}
}

func TestCompetitions(t *testing.T) {
	listing := &fakeListing{comps: []competitions.Competition{
		{ID: "100", Name: "Monthly Medal", Link: "competition.php?compid=100", Date: "2024-10-12"},
	}}
	now := func() time.Time { return time.Date(2024, 10, 12, 15, 4, 0, 0, time.UTC) }
	srv := New(&fakeResults{}, WithListing(listing), WithClock(now))

	rec := do(t, srv, http.MethodGet, "/api/competitions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if want := time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC); !listing.got.Equal(want) {
		t.Errorf("listing date = %v, want %v", listing.got, want)
	}

	rec = do(t, srv, http.MethodGet, "/api/competitions?date=2024-10-05", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if listing.got.Day() != 5 {
		t.Errorf("listing date = %v, want 5 October", listing.got)
	}

	rec = do(t, srv, http.MethodGet, "/api/competitions?date=12/10/2024", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/competitions.ics?date=2024-10-12", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ics status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "UID:competition-100@botgc.co.uk") {
		t.Errorf("calendar missing event:\n%s", rec.Body)
	}
}

func TestOptionalEndpointsNotConfigured(t *testing.T) {
	srv := New(&fakeResults{})
	for _, path := range []string{"/api/competitions", "/api/competitions.ics", "/api/ksw_result", "/api/snapshots", "/api/snapshots/1"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusNotImplemented {
			t.Errorf("%s status = %d, want 501", path, rec.Code)
		}
	}
}

func TestKSW(t *testing.T) {
	records, err := ksw.Parse(strings.NewReader("Name,Points\nAlice Able,312\n"))
	if err != nil {
		t.Fatal(err)
	}
	srv := New(&fakeResults{}, WithKSW(fakeKSW{records: records}))

	rec := do(t, srv, http.MethodGet, "/api/ksw_result", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `[{"Name":"Alice Able","Points":312}]` {
		t.Errorf("body = %s", got)
	}
}

func TestSnapshots(t *testing.T) {
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(&storage.Snapshot{CompID: "4521", Competition: "Monthly Medal October"}); err != nil {
		t.Fatal(err)
	}
	srv := New(&fakeResults{}, WithStore(store))

	rec := do(t, srv, http.MethodGet, "/api/snapshots/4521", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap storage.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Competition != "Monthly Medal October" || snap.UpdatedAt == "" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	rec = do(t, srv, http.MethodGet, "/api/snapshots", "")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"compids":["4521"]}` {
		t.Errorf("list body = %s", got)
	}

	rec = do(t, srv, http.MethodGet, "/api/snapshots/9999", "")
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Kind != kindNotFound {
		t.Errorf("missing snapshot status = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/snapshots/a.b", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want 400", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "results_runs_total 3\n")
	})
	srv := New(&fakeResults{}, WithMetricsHandler(metrics))

	if rec := do(t, srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	rec := do(t, srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "results_runs_total") {
		t.Errorf("metrics status = %d body %s", rec.Code, rec.Body)
	}

	rec = do(t, srv, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Kind != kindNotFound {
		t.Errorf("unknown path status = %d", rec.Code)
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	srv := New(&fakeResults{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
