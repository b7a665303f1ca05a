package config

import "fmt"

// MatchError means no configured competition pattern matches a
// competition name.
type MatchError struct {
	Name string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("no competition config matches %q", e.Name)
}

// ValueError reports a configuration value the pipeline cannot act on,
// such as an unknown score type or handicap field.
type ValueError struct {
	Field string
	Value string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}
