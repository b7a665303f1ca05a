// Package report fetches competition results pages from the portal.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-querystring/query"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/portal"
)

const page = "competition.php"

// Mode selects which rendering of the results page to fetch.
type Mode string

const (
	ModeLeaderboard Mode = "leaderboard"
	ModeLive        Mode = "live"
	ModeSummary     Mode = "summary"
	ModeDetails     Mode = "details"
)

// ParseMode accepts a mode name case-insensitively. The empty string is
// the default leaderboard mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeLeaderboard, nil
	case ModeLeaderboard, ModeLive, ModeSummary, ModeDetails:
		return m, nil
	default:
		return "", fmt.Errorf("unknown report mode %q", s)
	}
}

// GrossOrNet picks the ordering of the details report.
type GrossOrNet string

const (
	Gross GrossOrNet = "gross"
	Net   GrossOrNet = "net"
)

// ParseGrossOrNet accepts "gross" or "net". Empty stays unset so the
// competition rules can choose.
func ParseGrossOrNet(s string) (GrossOrNet, error) {
	switch g := GrossOrNet(strings.ToLower(strings.TrimSpace(s))); g {
	case "", Gross, Net:
		return g, nil
	default:
		return "", fmt.Errorf("grossOrNet must be gross or net, got %q", s)
	}
}

// Options describe which results page to fetch. An unset GrossOrNet
// fetches the details report in gross order.
type Options struct {
	Mode       Mode
	GrossOrNet GrossOrNet
}

type params struct {
	Tab     string `url:"tab,omitempty"`
	CompID  string `url:"compid"`
	Preview int    `url:"preview,omitempty"`
	Div     string `url:"div,omitempty"`
	Sort    int    `url:"sort,omitempty"`
}

const (
	sortNet   = 1
	sortGross = 2
)

// Path returns the portal path for compID rendered in opts.Mode.
func Path(compID string, opts Options) (string, error) {
	p := params{CompID: compID}

	switch opts.Mode {
	case "", ModeLeaderboard:
	case ModeLive:
		p.Tab = "live"
	case ModeSummary:
		p.Tab = "summary"
	case ModeDetails:
		p.Tab = "details"
		p.Preview = 1
		p.Div = "ALL"
		p.Sort = sortGross
		if opts.GrossOrNet == Net {
			p.Sort = sortNet
		}
	default:
		return "", fmt.Errorf("unknown report mode %q", opts.Mode)
	}

	v, err := query.Values(p)
	if err != nil {
		return "", fmt.Errorf("encoding report query: %w", err)
	}
	return page + "?" + v.Encode(), nil
}

// Fetcher downloads results pages. It does not retry; the portal
// session underneath already has.
type Fetcher struct {
	portal portal.Fetcher
	log    *logger.Logger
}

// NewFetcher creates a report Fetcher on top of a portal session.
func NewFetcher(f portal.Fetcher) *Fetcher {
	return &Fetcher{
		portal: f,
		log:    logger.Default().With(logger.Fields{"component": "report"}),
	}
}

// Fetch returns the raw markup of the results page. A non-2xx response
// is a *portal.TransportError carrying the status and body.
func (f *Fetcher) Fetch(ctx context.Context, compID string, opts Options) ([]byte, error) {
	if compID == "" {
		return nil, errors.New("competition id is required")
	}
	path, err := Path(compID, opts)
	if err != nil {
		return nil, err
	}

	body, err := portal.Get(ctx, f.portal, path)
	if err != nil {
		return nil, err
	}

	f.log.Debug("Fetched results page", logger.Fields{
		"compid": compID,
		"mode":   string(opts.Mode),
		"bytes":  len(body),
	})
	return body, nil
}
