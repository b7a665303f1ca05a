package notifier

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pfrederiksen/botgc-results/internal/report"
	"github.com/pfrederiksen/botgc-results/internal/storage"
	"github.com/pfrederiksen/botgc-results/internal/winners"
)

// Announcement is the set of winners for one competition.
type Announcement struct {
	CompID      string          `json:"compid"`
	Competition string          `json:"competition"`
	Link        string          `json:"link,omitempty"`
	Winners     []winners.Entry `json:"winners"`
}

// FromSnapshot builds the announcement for a stored snapshot. The link
// points at the competition's results page under baseURL; an empty
// baseURL leaves it out.
func FromSnapshot(snap *storage.Snapshot, baseURL string) Announcement {
	a := Announcement{
		CompID:      snap.CompID,
		Competition: snap.Competition,
		Winners:     snap.Winners,
	}
	if baseURL != "" {
		if path, err := report.Path(snap.CompID, report.Options{}); err == nil {
			a.Link = strings.TrimSuffix(baseURL, "/") + "/" + path
		}
	}
	return a
}

// Notifier defines the interface for posting winner announcements
type Notifier interface {
	// Notify posts one message per announcement
	Notify(ctx context.Context, announcements []Announcement) error
}

// Multi posts through every Notifier in turn. A failing Notifier does not
// stop the others.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, announcements []Announcement) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, announcements); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pause waits d between posts, returning early if ctx ends.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
