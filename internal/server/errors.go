package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pfrederiksen/botgc-results/internal/config"
	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/portal"
	"github.com/pfrederiksen/botgc-results/internal/storage"
)

// Error kinds reported in the "kind" field of error bodies.
const (
	kindBadRequest  = "bad_request"
	kindNotFound    = "not_found"
	kindMatch       = "no_matching_competition"
	kindTransport   = "portal_unavailable"
	kindLayout      = "unexpected_layout"
	kindConfig      = "invalid_config"
	kindUnavailable = "not_configured"
	kindInternal    = "internal"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// badRequest marks errors caused by the request itself.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

// classify maps a pipeline error to its HTTP status and kind.
func classify(err error) (int, string) {
	var (
		bad       *badRequest
		match     *config.MatchError
		transport *portal.TransportError
		layout    *leaderboard.LayoutError
		value     *config.ValueError
	)
	switch {
	case errors.As(err, &bad), errors.Is(err, storage.ErrInvalidCompID):
		return http.StatusBadRequest, kindBadRequest
	case errors.As(err, &match):
		return http.StatusNotFound, kindMatch
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.As(err, &transport):
		return http.StatusBadGateway, kindTransport
	case errors.As(err, &layout):
		return http.StatusBadGateway, kindLayout
	case errors.As(err, &value):
		return http.StatusInternalServerError, kindConfig
	default:
		return http.StatusInternalServerError, kindInternal
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", logger.Fields{"path": r.URL.Path, "kind": kind}, err)
	}
	writeError(w, status, kind, err.Error())
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
