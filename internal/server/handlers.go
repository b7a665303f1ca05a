package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pfrederiksen/botgc-results/internal/calendar"
	"github.com/pfrederiksen/botgc-results/internal/report"
)

// compID reads the competition id from the query string or, for POST
// requests, from a JSON body {"compid": ...}.
func compID(r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.URL.Query().Get("compid")); id != "" {
		return id, nil
	}
	if r.Method == http.MethodPost && r.Body != nil {
		var body struct {
			CompID json.RawMessage `json:"compid"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && len(body.CompID) > 0 {
			id := strings.Trim(string(body.CompID), `" `)
			if id != "" && id != "null" {
				return id, nil
			}
		}
	}
	return "", &badRequest{msg: "Please pass a compid on the query string or in the request body"}
}

func reportOptions(r *http.Request) (report.Options, error) {
	q := r.URL.Query()
	mode, err := report.ParseMode(q.Get("mode"))
	if err != nil {
		return report.Options{}, &badRequest{msg: err.Error()}
	}
	gn, err := report.ParseGrossOrNet(q.Get("grossOrNet"))
	if err != nil {
		return report.Options{}, &badRequest{msg: err.Error()}
	}
	return report.Options{Mode: mode, GrossOrNet: gn}, nil
}

func (s *Server) handleCompetitionResult(w http.ResponseWriter, r *http.Request) {
	id, err := compID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	opts, err := reportOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ws, err := s.results.ComputeWinners(r.Context(), id, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	id, err := compID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	opts, err := reportOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.results.Leaderboard(r.Context(), id, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStartSheet(w http.ResponseWriter, r *http.Request) {
	id, err := compID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	records, err := s.results.StartSheet(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// listingDate reads ?date=YYYY-MM-DD, defaulting to today.
func (s *Server) listingDate(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		now := s.now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, &badRequest{msg: fmt.Sprintf("date must be YYYY-MM-DD, got %q", raw)}
	}
	return d, nil
}

func (s *Server) handleCompetitions(w http.ResponseWriter, r *http.Request) {
	if s.listing == nil {
		writeError(w, http.StatusNotImplemented, kindUnavailable, "competition listing is not configured")
		return
	}
	day, err := s.listingDate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	comps, err := s.listing.OnDate(r.Context(), day)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comps)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if s.listing == nil {
		writeError(w, http.StatusNotImplemented, kindUnavailable, "competition listing is not configured")
		return
	}
	day, err := s.listingDate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	comps, err := s.listing.OnDate(r.Context(), day)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ics := calendar.GenerateICS(comps, day, calendar.Options{
		Name: "BOTGC competitions " + day.Format("2 January 2006"),
		Now:  s.now,
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="botgc-%s.ics"`, day.Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics))
}

func (s *Server) handleKSW(w http.ResponseWriter, r *http.Request) {
	if s.ksw == nil {
		writeError(w, http.StatusNotImplemented, kindUnavailable, "KSW results are not configured")
		return
	}

	records, err := s.ksw.Results(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, kindUnavailable, "snapshot storage is not configured")
		return
	}

	ids, err := s.store.List()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"compids": ids})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, kindUnavailable, "snapshot storage is not configured")
		return
	}

	snap, err := s.store.Load(chi.URLParam(r, "compid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
