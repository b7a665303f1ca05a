// Package cli implements the botgc-results command-line interface.
//
// The Cobra commands compute competition winners, show leaderboards,
// start sheets, the daily competition listing and the KSW table in text,
// JSON, xlsx or iCalendar form, store snapshots, and run the HTTP API
// with its scheduled refresh. Every command reads the same YAML config,
// with MEMBER_ID, MEMBER_PIN and the other environment overrides applied.
package cli
