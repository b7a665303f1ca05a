// Package leaderboard extracts normalized player entries from a
// competition results page.
//
// The portal renders four table shapes: final results, live leaderboards
// (with or without a Status column), on-course scoring and multi-round
// summaries. Classify picks one from the header captions and the
// Extractor reads each data row with that layout's column rules, joining
// handicaps from the start sheet by normalized name.
package leaderboard
