package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"
)

const (
	tweetLimit  = 280
	tweetPacing = 2 * time.Second
)

// TwitterCredentials are the OAuth1 keys of the posting account.
type TwitterCredentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// TwitterCredentialsFromEnv reads TWITTER_API_KEY, TWITTER_API_SECRET,
// TWITTER_ACCESS_TOKEN and TWITTER_ACCESS_SECRET.
func TwitterCredentialsFromEnv() TwitterCredentials {
	return TwitterCredentials{
		APIKey:       os.Getenv("TWITTER_API_KEY"),
		APISecret:    os.Getenv("TWITTER_API_SECRET"),
		AccessToken:  os.Getenv("TWITTER_ACCESS_TOKEN"),
		AccessSecret: os.Getenv("TWITTER_ACCESS_SECRET"),
	}
}

// TwitterNotifier posts winners to Twitter
type TwitterNotifier struct {
	client *twitter.Client
	pacing time.Duration
}

// NewTwitterNotifier creates a Twitter notifier signing requests with creds.
func NewTwitterNotifier(creds TwitterCredentials) (*TwitterNotifier, error) {
	if creds.APIKey == "" || creds.APISecret == "" || creds.AccessToken == "" || creds.AccessSecret == "" {
		return nil, errors.New("missing required Twitter credentials")
	}

	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	return newTwitterNotifier(config.Client(oauth1.NoContext, token)), nil
}

func newTwitterNotifier(httpClient *http.Client) *TwitterNotifier {
	return &TwitterNotifier{client: twitter.NewClient(httpClient), pacing: tweetPacing}
}

// Notify posts one tweet per announcement
func (n *TwitterNotifier) Notify(ctx context.Context, announcements []Announcement) error {
	for i, a := range announcements {
		if _, _, err := n.client.Statuses.Update(formatTweet(a), nil); err != nil {
			return fmt.Errorf("failed to post tweet for competition %s: %w", a.CompID, err)
		}

		if i < len(announcements)-1 {
			if err := pause(ctx, n.pacing); err != nil {
				return err
			}
		}
	}
	return nil
}

// formatTweet formats an announcement as a tweet of at most 280 characters
func formatTweet(a Announcement) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🏆 %s\n\n", a.Competition))

	if len(a.Winners) == 0 {
		b.WriteString("No qualifying results yet.\n")
	}
	for _, w := range a.Winners {
		b.WriteString(fmt.Sprintf("%d. %s", w.Position, w.Name))
		if w.Score != nil {
			b.WriteString(fmt.Sprintf(" %d", *w.Score))
		}
		b.WriteString("\n")
	}

	if a.Link != "" {
		b.WriteString("\n" + a.Link + "\n")
	}
	b.WriteString("\n#BOTGC #Golf")

	tweet := b.String()
	if utf8.RuneCountInString(tweet) > tweetLimit {
		runes := []rune(tweet)
		tweet = string(runes[:tweetLimit-3]) + "..."
	}
	return tweet
}
