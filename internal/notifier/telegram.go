package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/botgc-results/internal/telegram"
)

// MessageSender delivers one formatted message. *telegram.Client
// satisfies it.
type MessageSender interface {
	SendMessage(ctx context.Context, text string) error
}

// TelegramNotifier posts winners to a Telegram chat
type TelegramNotifier struct {
	sender MessageSender
	pacing time.Duration
}

// NewTelegramNotifier creates a notifier sending through s.
func NewTelegramNotifier(s MessageSender) *TelegramNotifier {
	return &TelegramNotifier{sender: s, pacing: time.Second}
}

// Notify sends one message per announcement
func (n *TelegramNotifier) Notify(ctx context.Context, announcements []Announcement) error {
	for i, a := range announcements {
		msg := telegram.FormatWinners(a.Competition, a.Winners, a.Link)
		if err := n.sender.SendMessage(ctx, msg); err != nil {
			return fmt.Errorf("sending winners for competition %s: %w", a.CompID, err)
		}

		if i < len(announcements)-1 {
			if err := pause(ctx, n.pacing); err != nil {
				return err
			}
		}
	}
	return nil
}
