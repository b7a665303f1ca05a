package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// DryRunNotifier prints what would be posted without actually posting
type DryRunNotifier struct {
	out io.Writer
}

// NewDryRunNotifier creates a dry-run notifier writing to out, or to
// stdout when out is nil.
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunNotifier{out: out}
}

// Notify prints the tweets that would be posted
func (n *DryRunNotifier) Notify(_ context.Context, announcements []Announcement) error {
	for i, a := range announcements {
		tweet := formatTweet(a)
		fmt.Fprintf(n.out, "--- Tweet %d/%d ---\n", i+1, len(announcements))
		fmt.Fprintln(n.out, tweet)
		fmt.Fprintf(n.out, "\n(Length: %d characters)\n\n", utf8.RuneCountInString(tweet))
	}
	return nil
}
