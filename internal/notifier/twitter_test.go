package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
	"github.com/pfrederiksen/botgc-results/internal/winners"
)

func winner(pos, orig int, name string, score int) winners.Entry {
	return winners.Entry{
		Entry:            leaderboard.Entry{Position: pos, Name: name, Score: &score},
		OriginalPosition: orig,
	}
}

func medal() Announcement {
	return Announcement{
		CompID:      "4521",
		Competition: "Monthly Medal October",
		Link:        "https://www.botgc.co.uk/competition.php?compid=4521",
		Winners: []winners.Entry{
			winner(1, 1, "Alice Able", 68),
			winner(2, 3, "Cat Cole", 72),
		},
	}
}

func TestFormatTweet(t *testing.T) {
	long := medal()
	long.Competition = strings.Repeat("Extremely Long Invitational Texas Scramble ", 8)

	tests := []struct {
		name     string
		a        Announcement
		contains []string
	}{
		{
			name: "winners",
			a:    medal(),
			contains: []string{
				"🏆 Monthly Medal October",
				"1. Alice Able 68\n",
				"2. Cat Cole 72\n",
				"compid=4521",
				"#BOTGC",
			},
		},
		{
			name:     "no winners",
			a:        Announcement{CompID: "1", Competition: "Winter Foursomes"},
			contains: []string{"Winter Foursomes", "No qualifying results yet."},
		},
		{
			name:     "very long name gets truncated",
			a:        long,
			contains: []string{"..."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTweet(tt.a)

			if n := utf8.RuneCountInString(got); n > tweetLimit {
				t.Errorf("formatTweet() length = %d, want <= %d", n, tweetLimit)
			}
			if !utf8.ValidString(got) {
				t.Error("formatTweet() produced invalid UTF-8")
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("formatTweet() missing %q in tweet:\n%s", want, got)
				}
			}
		})
	}
}

func TestDryRunNotifier(t *testing.T) {
	var out bytes.Buffer
	n := NewDryRunNotifier(&out)

	if err := n.Notify(context.Background(), []Announcement{medal(), medal()}); err != nil {
		t.Fatalf("DryRunNotifier.Notify() error = %v, want nil", err)
	}
	if got := out.String(); !strings.Contains(got, "--- Tweet 2/2 ---") || !strings.Contains(got, "Alice Able") {
		t.Errorf("unexpected dry-run output:\n%s", got)
	}
}

func TestNewTwitterNotifier_MissingCredentials(t *testing.T) {
	if _, err := NewTwitterNotifier(TwitterCredentials{APIKey: "k"}); err == nil {
		t.Error("NewTwitterNotifier() should reject partial credentials")
	}
}

// redirect sends every request to the test server.
type redirect struct {
	target *url.URL
}

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestTwitterNotifier_Notify(t *testing.T) {
	var (
		mu       sync.Mutex
		statuses []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1.1/statuses/update.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		mu.Lock()
		statuses = append(statuses, r.Form.Get("status"))
		n := len(statuses)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id": %d, "text": "ok"}`, n)
	}))
	defer server.Close()

	target, _ := url.Parse(server.URL)
	n := newTwitterNotifier(&http.Client{Transport: redirect{target}})
	n.pacing = 0

	second := medal()
	second.CompID = "4522"
	second.Competition = "Seniors Stableford"

	if err := n.Notify(context.Background(), []Announcement{medal(), second}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	want := []string{formatTweet(medal()), formatTweet(second)}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("posted statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestTwitterNotifier_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"errors":[{"code":187,"message":"Status is a duplicate."}]}`)
	}))
	defer server.Close()

	target, _ := url.Parse(server.URL)
	n := newTwitterNotifier(&http.Client{Transport: redirect{target}})

	err := n.Notify(context.Background(), []Announcement{medal()})
	if err == nil || !strings.Contains(err.Error(), "4521") {
		t.Errorf("Notify() error = %v, want error naming the competition", err)
	}
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestTelegramNotifier(t *testing.T) {
	s := &fakeSender{}
	n := NewTelegramNotifier(s)
	n.pacing = 0

	if err := n.Notify(context.Background(), []Announcement{medal(), medal()}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(s.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(s.sent))
	}
	if !strings.Contains(s.sent[0], "<b>Monthly Medal October</b>") {
		t.Errorf("unexpected message:\n%s", s.sent[0])
	}
}

func TestMulti(t *testing.T) {
	boom := errors.New("chat not found")
	failing := NewTelegramNotifier(&fakeSender{err: boom})
	ok := &fakeSender{}
	working := NewTelegramNotifier(ok)

	err := Multi{failing, working}.Notify(context.Background(), []Announcement{medal()})
	if !errors.Is(err, boom) {
		t.Errorf("Multi.Notify() error = %v, want %v", err, boom)
	}
	if len(ok.sent) != 1 {
		t.Error("a failing notifier should not stop the others")
	}
}

func TestPause_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pause(ctx, tweetPacing); !errors.Is(err, context.Canceled) {
		t.Errorf("pause() error = %v, want context.Canceled", err)
	}
}
