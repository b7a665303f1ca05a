package startsheet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/portal"
	"golang.org/x/net/html"
)

// Record holds one player's handicap numbers from the start sheet.
type Record struct {
	Name            string  `json:"name"`
	HandicapIndex   float64 `json:"handicapindex"`
	CourseHandicap  float64 `json:"coursehandicap"`
	PlayingHandicap float64 `json:"playinghandicap"`
}

// Lookup maps a normalized player name to its Record.
type Lookup map[string]Record

// NewLookup indexes records by name. A later duplicate replaces an
// earlier one.
func NewLookup(records []Record) Lookup {
	l := make(Lookup, len(records))
	for _, r := range records {
		l[r.Name] = r
	}
	return l
}

// Find returns the record for a name after applying NormalizeName.
func (l Lookup) Find(name string) (Record, bool) {
	r, ok := l[NormalizeName(name)]
	return r, ok
}

// Client fetches start sheets through an authenticated portal session.
type Client struct {
	fetcher portal.Fetcher
	log     *logger.Logger
}

// NewClient creates a start-sheet client.
func NewClient(f portal.Fetcher) *Client {
	return &Client{
		fetcher: f,
		log:     logger.Default().With(logger.Fields{"component": "startsheet"}),
	}
}

// Path returns the printable start-sheet page for a competition.
func Path(compID string) string {
	q := url.Values{}
	q.Set("tab", "startsheet")
	q.Set("compid", compID)
	q.Set("print", "true")
	return "compadmin3.php?" + q.Encode()
}

// Fetch downloads and parses the start sheet for compID.
func (c *Client) Fetch(ctx context.Context, compID string) ([]Record, error) {
	body, err := portal.Get(ctx, c.fetcher, Path(compID))
	if err != nil {
		return nil, err
	}

	records, err := c.parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.log.Info("Parsed start sheet", logger.Fields{
		"compid":  compID,
		"players": len(records),
	})
	return records, nil
}

// Parse extracts player records from start-sheet markup using the
// default logger for dropped players.
func Parse(r io.Reader) ([]Record, error) {
	return NewClient(nil).parse(r)
}

func (c *Client) parse(r io.Reader) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	records := make([]Record, 0)

	doc.Find("div.player").Each(func(i int, player *goquery.Selection) {
		name := NormalizeName(leadingText(player.Find("span").First()))
		annotation := strings.TrimSpace(player.Find("span.hcap").First().Text())

		if name == "" {
			c.log.Warn("Dropping start-sheet block without a name", logger.Fields{"index": i})
			return
		}

		hi, ch, ph, err := ParseAnnotation(annotation)
		if err != nil {
			c.log.Warn("Dropping player with malformed handicap annotation", logger.Fields{
				"name":       name,
				"annotation": annotation,
				"error":      err.Error(),
			})
			return
		}

		records = append(records, Record{
			Name:            name,
			HandicapIndex:   hi,
			CourseHandicap:  ch,
			PlayingHandicap: ph,
		})
	})

	return records, nil
}

// leadingText returns the text nodes of sel that come before its first
// child element, which is where the player name sits ahead of the
// handicap span.
func leadingText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Contents().Nodes {
		if n.Type != html.TextNode {
			break
		}
		b.WriteString(n.Data)
	}
	return b.String()
}

// ParseAnnotation splits "(HI: 12.3, CH: 14, PH: 13)" into its three
// numbers. All three must be present and numeric.
func ParseAnnotation(s string) (hi, ch, ph float64, err error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")

	parts := strings.Split(s, ", ")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 fields, got %d", len(parts))
	}

	prefixes := [3]string{"HI:", "CH:", "PH:"}
	var values [3]float64
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, prefixes[i]) {
			return 0, 0, 0, fmt.Errorf("field %d: missing %q prefix", i+1, prefixes[i])
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(part, prefixes[i])), 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("field %s: %w", prefixes[i], err)
		}
		values[i] = v
	}

	return values[0], values[1], values[2], nil
}
