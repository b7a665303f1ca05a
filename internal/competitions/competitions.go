package competitions

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-querystring/query"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/portal"
)

const (
	dashboardPath = "compdash.php"
	defaultLimit  = 20

	multiRoundMarker = "Multiround"
	componentsLabel  = "Component Competitions:"
)

// Competition is one entry of the club's competition listing.
type Competition struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Link       string        `json:"link"`
	Date       string        `json:"date,omitempty"`
	Components []Competition `json:"components,omitempty"`
}

type listingQuery struct {
	Tab         string `url:"tab"`
	RequestType string `url:"requestType"`
	AjaxAction  string `url:"ajaxaction"`
	Status      string `url:"status"`
	Entrants    string `url:"entrants"`
	Kind        string `url:"kind"`
	TeamSolo    string `url:"teamsolo"`
	Year        string `url:"year"`
	Offset      int    `url:"offset"`
	Limit       int    `url:"limit"`
}

// ListingPath returns the ajax listing of upcoming competitions.
func ListingPath(offset, limit int) string {
	v, _ := query.Values(listingQuery{
		Tab:         "competitions",
		RequestType: "ajax",
		AjaxAction:  "morecomps",
		Status:      "upcoming",
		Entrants:    "all",
		Kind:        "all",
		TeamSolo:    "all",
		Year:        "all",
		Offset:      offset,
		Limit:       limit,
	})
	return dashboardPath + "?" + v.Encode()
}

var compIDPattern = regexp.MustCompile(`compid=(\d+)`)

// CompID extracts the competition id from a portal link.
func CompID(link string) (string, bool) {
	m := compIDPattern.FindStringSubmatch(link)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Client reads the competition listing through a portal session.
type Client struct {
	fetcher portal.Fetcher
	log     *logger.Logger
}

// NewClient creates a listing client.
func NewClient(f portal.Fetcher) *Client {
	return &Client{
		fetcher: f,
		log:     logger.Default().With(logger.Fields{"component": "competitions"}),
	}
}

// OnDate returns the competitions played on date. A competition that is
// a round of a multi-round competition is reported as the multi-round
// parent, with its rounds in Components.
func (c *Client) OnDate(ctx context.Context, date time.Time) ([]Competition, error) {
	// The dashboard sets the session state the ajax listing reads.
	if _, err := portal.Get(ctx, c.fetcher, dashboardPath); err != nil {
		return nil, err
	}

	body, err := portal.Get(ctx, c.fetcher, ListingPath(0, defaultLimit))
	if err != nil {
		return nil, err
	}

	var payload struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding competition listing: %w", err)
	}

	onDate, parents, err := c.parseListing(payload.HTML, date)
	if err != nil {
		return nil, err
	}

	for i := range parents {
		page, err := portal.Get(ctx, c.fetcher, strings.TrimPrefix(parents[i].Link, "/"))
		if err != nil {
			return nil, fmt.Errorf("fetching multi-round %s: %w", parents[i].ID, err)
		}
		components, err := ParseComponents(string(page))
		if err != nil {
			return nil, err
		}
		parents[i].Components = components
	}

	merged := Merge(onDate, parents)
	c.log.Info("Listed competitions", logger.Fields{
		"date":        Day(date).Format("2006-01-02"),
		"found":       len(onDate),
		"multi_round": len(parents),
		"returned":    len(merged),
	})
	return merged, nil
}

// ParseListing reads the listing rows. It returns the competitions on
// date, stopping at the first row dated after it, and every multi-round
// competition seen before that point.
func ParseListing(rows string, date time.Time) (onDate, multiRound []Competition, err error) {
	return NewClient(nil).parseListing(rows, date)
}

func (c *Client) parseListing(rows string, date time.Time) ([]Competition, []Competition, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<html><body><table><tbody>" + rows + "</tbody></table></body></html>"))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing HTML: %w", err)
	}

	target := Day(date)
	onDate := make([]Competition, 0)
	var multiRound []Competition

	doc.Find("tbody tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}

		comp, ok := linkedCompetition(row)
		if strings.Contains(row.Text(), multiRoundMarker) {
			if ok {
				multiRound = append(multiRound, comp)
			}
			return true
		}

		when := ParseDate(cells.Eq(1).Text(), target.Year())
		if when.IsZero() {
			return true
		}
		if when.After(target) {
			return false
		}
		if !when.Equal(target) {
			return true
		}
		if !ok {
			c.log.Warn("Listing row without a competition link", logger.Fields{"row": i})
			return true
		}
		comp.Date = when.Format("2006-01-02")
		onDate = append(onDate, comp)
		return true
	})

	return onDate, multiRound, nil
}

func linkedCompetition(row *goquery.Selection) (Competition, bool) {
	a := row.Find("a").First()
	href, ok := a.Attr("href")
	if !ok {
		return Competition{}, false
	}
	id, ok := CompID(href)
	if !ok {
		return Competition{}, false
	}
	return Competition{
		ID:   id,
		Name: strings.TrimSpace(a.Text()),
		Link: href,
	}, true
}

// ParseComponents reads the round list from a multi-round competition page.
func ParseComponents(page string) ([]Competition, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	components := make([]Competition, 0)
	doc.Find("div.form-group").Each(func(_ int, group *goquery.Selection) {
		if !strings.Contains(group.Find("label").Text(), componentsLabel) {
			return
		}
		group.Find("li a").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			id, ok := CompID(href)
			if !ok {
				return
			}
			components = append(components, Competition{
				ID:   id,
				Name: strings.TrimSpace(a.Text()),
				Link: href,
			})
		})
	})
	return components, nil
}

// Merge replaces each competition that is a round of a multi-round
// competition by that parent. A parent appears once, at the position of
// its first round.
func Merge(onDate, multiRound []Competition) []Competition {
	out := make([]Competition, 0, len(onDate))
	added := make(map[string]bool)

	for _, comp := range onDate {
		parent, ok := parentOf(comp, multiRound)
		if !ok {
			out = append(out, comp)
			continue
		}
		if added[parent.Name] {
			continue
		}
		added[parent.Name] = true
		parent.Date = comp.Date
		out = append(out, parent)
	}
	return out
}

func parentOf(comp Competition, multiRound []Competition) (Competition, bool) {
	for _, parent := range multiRound {
		for _, round := range parent.Components {
			if round.Name == comp.Name {
				return parent, true
			}
		}
	}
	return Competition{}, false
}
