package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
	"github.com/pfrederiksen/botgc-results/internal/winners"
)

// ErrNotFound is returned when no snapshot exists for a competition.
var ErrNotFound = errors.New("snapshot not found")

// ErrInvalidCompID is returned for competition ids that cannot name a file.
var ErrInvalidCompID = errors.New("invalid competition id")

var validCompID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Snapshot is the stored result of one competition refresh.
type Snapshot struct {
	CompID      string              `json:"compid"`
	Competition string              `json:"competition"`
	Layout      string              `json:"layout"`
	UpdatedAt   string              `json:"updated_at"`
	Leaderboard []leaderboard.Entry `json:"leaderboard"`
	Winners     []winners.Entry     `json:"winners"`
}

// Storage handles persistence of competition snapshots
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{dataDir: dataDir}, nil
}

// Dir returns the resolved data directory.
func (s *Storage) Dir() string {
	return s.dataDir
}

func (s *Storage) snapshotPath(compID string) (string, error) {
	if !validCompID.MatchString(compID) {
		return "", fmt.Errorf("%w %q", ErrInvalidCompID, compID)
	}
	return filepath.Join(s.dataDir, fmt.Sprintf("snapshot_%s.json", compID)), nil
}

// Load reads the snapshot for compID.
func (s *Storage) Load(compID string) (*Snapshot, error) {
	path, err := s.snapshotPath(compID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("competition %s: %w", compID, ErrNotFound)
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &snapshot, nil
}

// Save writes snapshot, stamping UpdatedAt. The file is replaced
// atomically so readers never see a partial snapshot.
func (s *Storage) Save(snapshot *Snapshot) error {
	path, err := s.snapshotPath(snapshot.CompID)
	if err != nil {
		return err
	}

	snapshot.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// List returns the competition ids with a stored snapshot, sorted.
func (s *Storage) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dataDir, "snapshot_*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		id := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), "snapshot_"), ".json")
		if validCompID.MatchString(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
