// Package telegram posts competition winners to a Telegram chat through
// the Bot API.
//
// Authentication requires a bot token (from @BotFather) and chat ID.
package telegram
