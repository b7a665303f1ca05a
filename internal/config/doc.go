// Package config loads the application settings and the per-competition
// winner-selection rules.
//
// Application settings come from a YAML file with environment overrides
// (MEMBER_ID, MEMBER_PIN, COMPETITIONS_SOURCE and friends). Competition
// rules are a JSON or YAML "competitions" list read from a file or URL;
// each rule is matched against a competition's display name and the
// first match wins.
package config
