package competitions

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/portal/portaltest"
)

func TestMain(m *testing.M) {
	logger.SetDefault(logger.New(logger.LevelError, io.Discard))
	os.Exit(m.Run())
}

const listingRows = `
<tr><td><a href="competition.php?compid=100">Club Championship</a></td><td>Multiround</td></tr>
<tr><td><a href="competition.php?compid=101">Friday Roll-up</a></td><td>Friday 11th October</td></tr>
<tr><td><a href="competition.php?compid=102">Club Championship R1</a></td><td>Saturday 12th October</td></tr>
<tr><td><a href="competition.php?compid=103">Saturday Stableford</a></td><td>Saturday 12 October</td></tr>
<tr><td><a href="competition.php?compid=104">Club Championship R2</a></td><td>Saturday 12th October</td></tr>
<tr><td>Notice</td><td>TBC</td></tr>
<tr><td><a href="competition.php?compid=105">Sunday Medal</a></td><td>Sunday 13th October</td></tr>
<tr><td><a href="competition.php?compid=106">Late Entry</a></td><td>Saturday 12th October</td></tr>
`

const championshipPage = `<html><body>
<div class="form-group"><label>Venue:</label><ul><li><a href="venue.php?id=1">Main course</a></li></ul></div>
<div class="form-group"><label>Component Competitions:</label>
<ul>
<li><a href="competition.php?compid=102">Club Championship R1</a></li>
<li><a href="competition.php?compid=104">Club Championship R2</a></li>
</ul></div>
</body></html>`

var saturday = time.Date(2024, time.October, 12, 15, 30, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	tests := []struct {
		text string
		want time.Time
	}{
		{"Saturday 12th October", time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC)},
		{"Saturday 12 October", time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC)},
		{"Tuesday 1st October", time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)},
		{"Wednesday 2nd October", time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC)},
		{"  Thursday   3rd October ", time.Date(2024, 10, 3, 0, 0, 0, 0, time.UTC)},
		{"Multiround", time.Time{}},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ParseDate(tt.text, 2024); !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseListing(t *testing.T) {
	onDate, multi, err := ParseListing(listingRows, saturday)
	if err != nil {
		t.Fatalf("ParseListing() error = %v", err)
	}

	var names []string
	for _, c := range onDate {
		names = append(names, c.Name)
	}
	// Stops at Sunday, so the late entry after it is not seen.
	if diff := cmp.Diff([]string{"Club Championship R1", "Saturday Stableford", "Club Championship R2"}, names); diff != "" {
		t.Errorf("onDate mismatch (-want +got):\n%s", diff)
	}
	if onDate[0].ID != "102" || onDate[0].Date != "2024-10-12" {
		t.Errorf("onDate[0] = %+v", onDate[0])
	}
	if len(multi) != 1 || multi[0].ID != "100" {
		t.Errorf("multiRound = %+v", multi)
	}
}

func TestParseComponents(t *testing.T) {
	got, err := ParseComponents(championshipPage)
	if err != nil {
		t.Fatalf("ParseComponents() error = %v", err)
	}
	want := []Competition{
		{ID: "102", Name: "Club Championship R1", Link: "competition.php?compid=102"},
		{ID: "104", Name: "Club Championship R2", Link: "competition.php?compid=104"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseComponents() mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge(t *testing.T) {
	r1 := Competition{ID: "1", Name: "R1", Date: "2024-10-12"}
	r2 := Competition{ID: "2", Name: "R2", Date: "2024-10-12"}
	other := Competition{ID: "3", Name: "Stableford", Date: "2024-10-12"}
	parent := Competition{ID: "9", Name: "Championship", Components: []Competition{{ID: "1", Name: "R1"}, {ID: "2", Name: "R2"}}}

	got := Merge([]Competition{r1, other, r2}, []Competition{parent})

	want := []Competition{
		{ID: "9", Name: "Championship", Date: "2024-10-12", Components: parent.Components},
		other,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_OnDate(t *testing.T) {
	listing, _ := json.Marshal(map[string]string{"html": listingRows})
	fake := &portaltest.Fake{Pages: map[string]portaltest.Page{
		"compdash.php":               {Body: "<html></html>"},
		ListingPath(0, 20):           {Body: string(listing)},
		"competition.php?compid=100": {Body: championshipPage},
	}}

	got, err := NewClient(fake).OnDate(context.Background(), saturday)
	if err != nil {
		t.Fatalf("OnDate() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("OnDate() returned %d competitions, want 2: %+v", len(got), got)
	}
	if got[0].ID != "100" || len(got[0].Components) != 2 || got[0].Date != "2024-10-12" {
		t.Errorf("got[0] = %+v, want championship with 2 rounds", got[0])
	}
	if got[1].Name != "Saturday Stableford" {
		t.Errorf("got[1] = %+v", got[1])
	}

	reqs := fake.Requests()
	if len(reqs) != 3 || reqs[0] != "compdash.php" {
		t.Errorf("requests = %v", reqs)
	}
}

func TestClient_OnDateBadJSON(t *testing.T) {
	fake := &portaltest.Fake{Pages: map[string]portaltest.Page{
		"compdash.php":     {Body: "ok"},
		ListingPath(0, 20): {Body: "<html>login</html>"},
	}}
	if _, err := NewClient(fake).OnDate(context.Background(), saturday); err == nil || !strings.Contains(err.Error(), "decoding") {
		t.Errorf("OnDate() error = %v, want decoding error", err)
	}
}

func TestListingPath(t *testing.T) {
	got := ListingPath(0, 20)
	for _, part := range []string{"tab=competitions", "requestType=ajax", "ajaxaction=morecomps", "status=upcoming", "offset=0", "limit=20"} {
		if !strings.Contains(got, part) {
			t.Errorf("ListingPath() = %q, missing %q", got, part)
		}
	}
}
