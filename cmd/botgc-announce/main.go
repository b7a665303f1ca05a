package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pfrederiksen/botgc-results/internal/logger"
	"github.com/pfrederiksen/botgc-results/internal/notifier"
	"github.com/pfrederiksen/botgc-results/internal/storage"
	"github.com/pfrederiksen/botgc-results/internal/telegram"
)

var (
	inputFile   = flag.String("input", "", "Path to a snapshot or announcements JSON file (or read from stdin)")
	baseURL     = flag.String("base-url", "https://www.botgc.co.uk/", "Portal base URL used for results links")
	dryRun      = flag.Bool("dry-run", false, "Print messages without posting")
	toTwitter   = flag.Bool("twitter", false, "Post to X/Twitter (env: TWITTER_API_KEY, TWITTER_API_SECRET, TWITTER_ACCESS_TOKEN, TWITTER_ACCESS_SECRET)")
	toTelegram  = flag.Bool("telegram", false, "Post to Telegram")
	botToken    = flag.String("bot-token", "", "Telegram bot token (or env: TELEGRAM_BOT_TOKEN)")
	chatID      = flag.String("chat-id", "", "Telegram chat ID (or env: TELEGRAM_CHAT_ID)")
	maxMessages = flag.Int("max-messages", 10, "Maximum number of announcements to post")
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Default().Warn("Failed to load .env", logger.Fields{"error": err.Error()})
	}
	flag.Parse()

	var reader io.Reader = os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		reader = f
	}

	announcements, err := readAnnouncements(reader, *baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing JSON: %v\n", err)
		os.Exit(1)
	}
	announcements = withWinners(announcements)
	if len(announcements) > *maxMessages {
		announcements = announcements[:*maxMessages]
	}
	if len(announcements) == 0 {
		fmt.Println("No winners to announce")
		return
	}

	n, err := buildNotifier()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := n.Notify(ctx, announcements); err != nil {
		fmt.Fprintf(os.Stderr, "Error posting announcements: %v\n", err)
		os.Exit(1)
	}
	if !*dryRun {
		fmt.Printf("Successfully posted %d announcements\n", len(announcements))
	}
}

// readAnnouncements accepts either a JSON array of announcements or a
// single stored snapshot.
func readAnnouncements(r io.Reader, baseURL string) ([]notifier.Announcement, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty input")
	}

	if data[0] == '[' {
		var out []notifier.Announcement
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var snap storage.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if snap.CompID == "" {
		return nil, errors.New("snapshot has no compid")
	}
	return []notifier.Announcement{notifier.FromSnapshot(&snap, baseURL)}, nil
}

func withWinners(announcements []notifier.Announcement) []notifier.Announcement {
	out := make([]notifier.Announcement, 0, len(announcements))
	for _, a := range announcements {
		if len(a.Winners) > 0 {
			out = append(out, a)
		}
	}
	return out
}

func buildNotifier() (notifier.Notifier, error) {
	if *dryRun {
		return notifier.NewDryRunNotifier(os.Stdout), nil
	}
	if !*toTwitter && !*toTelegram {
		return nil, errors.New("choose at least one of --twitter, --telegram or --dry-run")
	}

	var multi notifier.Multi
	if *toTwitter {
		tw, err := notifier.NewTwitterNotifier(notifier.TwitterCredentialsFromEnv())
		if err != nil {
			return nil, fmt.Errorf("initializing Twitter client: %w", err)
		}
		multi = append(multi, tw)
	}
	if *toTelegram {
		client, err := telegram.NewClient(envOr(*botToken, "TELEGRAM_BOT_TOKEN"), envOr(*chatID, "TELEGRAM_CHAT_ID"))
		if err != nil {
			return nil, fmt.Errorf("initializing Telegram client: %w", err)
		}
		multi = append(multi, notifier.NewTelegramNotifier(client))
	}
	return multi, nil
}

func envOr(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}
