// Package notifier announces competition winners.
//
// A Notifier posts one message per Announcement. Implementations exist
// for Twitter, Telegram and a dry run that prints the messages instead.
package notifier
