package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/pfrederiksen/botgc-results/internal/winners"
)

// FormatWinners formats a competition's winners as a Telegram message.
// link, when set, is added as the results link.
func FormatWinners(competition string, ws []winners.Entry, link string) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("🏆 <b>%s</b>\n\n", html.EscapeString(competition)))

	if len(ws) == 0 {
		msg.WriteString("<i>No qualifying results yet.</i>\n")
	}
	for _, w := range ws {
		msg.WriteString(fmt.Sprintf("%s %s", medal(w.Position), html.EscapeString(w.Name)))
		if w.Score != nil {
			msg.WriteString(fmt.Sprintf(" <b>%d</b>", *w.Score))
		}
		if w.OriginalPosition != w.Position {
			msg.WriteString(fmt.Sprintf(" <i>(%s overall)</i>", ordinal(w.OriginalPosition)))
		}
		msg.WriteString("\n")
	}

	if link != "" {
		msg.WriteString(fmt.Sprintf("\n🔗 <a href=\"%s\">Full results</a>\n", html.EscapeString(link)))
	}

	msg.WriteString("\n#BOTGC #Golf")
	return msg.String()
}

func medal(position int) string {
	switch position {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", position)
	}
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
