package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider supplies the competition rules.
type Provider interface {
	Competitions(ctx context.Context) (*Competitions, error)
}

// Source loads competition rules from a file path or an http(s) URL on
// every call, so edits take effect without a restart.
type Source struct {
	location string
	client   *http.Client
}

// NewSource creates a Source for location.
func NewSource(location string) *Source {
	return &Source{
		location: location,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Competitions reads and decodes the rules.
func (s *Source) Competitions(ctx context.Context) (*Competitions, error) {
	if s.location == "" {
		return nil, fmt.Errorf("no competitions source configured")
	}

	data, err := ReadLocation(ctx, s.client, s.location)
	if err != nil {
		return nil, fmt.Errorf("reading competitions from %s: %w", s.location, err)
	}

	return ParseCompetitions(data)
}

// ReadLocation returns the contents of a file path or an http(s) URL.
func ReadLocation(ctx context.Context, client *http.Client, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return os.ReadFile(location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ParseCompetitions decodes a JSON or YAML document with a top-level
// "competitions" list.
func ParseCompetitions(data []byte) (*Competitions, error) {
	var raw Competitions
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("parsing competitions JSON: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing competitions YAML: %w", err)
	}
	if err := validGrossOrNet(raw.GrossOrNet); err != nil {
		return nil, err
	}
	cs, err := NewCompetitions(raw.List)
	if err != nil {
		return nil, err
	}
	cs.GrossOrNet = raw.GrossOrNet
	return cs, nil
}

// Static is a Provider over rules already in memory.
type Static struct {
	C *Competitions
}

// Competitions returns the wrapped rules.
func (s Static) Competitions(context.Context) (*Competitions, error) {
	if s.C == nil {
		return nil, fmt.Errorf("no competitions configured")
	}
	return s.C, nil
}
