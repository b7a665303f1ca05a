package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pfrederiksen/botgc-results/internal/leaderboard"
	"github.com/pfrederiksen/botgc-results/internal/winners"
)

func ip(v int) *int { return &v }

func TestSaveAndLoad(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	alice := leaderboard.Entry{Position: 2, Name: "Alice Able", Score: ip(-1), Total: ip(-1)}
	snap := &Snapshot{
		CompID:      "4521",
		Competition: "Monthly Medal",
		Layout:      "final",
		Leaderboard: []leaderboard.Entry{alice},
		Winners:     []winners.Entry{{Entry: alice, OriginalPosition: 2}},
	}

	if err := s.Save(snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := time.Parse(time.RFC3339, snap.UpdatedAt); err != nil {
		t.Errorf("UpdatedAt = %q, want RFC3339", snap.UpdatedAt)
	}

	got, err := s.Load("4521")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	if _, err := os.Stat(filepath.Join(s.Dir(), "snapshot_4521.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestLoad_NotFound(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = s.Load("999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestInvalidCompID(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []string{"", "../etc/passwd", "12/34", "a b"}
	for _, id := range tests {
		if _, err := s.Load(id); !errors.Is(err, ErrInvalidCompID) {
			t.Errorf("Load(%q) error = %v, want invalid id error", id, err)
		}
		if err := s.Save(&Snapshot{CompID: id}); !errors.Is(err, ErrInvalidCompID) {
			t.Errorf("Save(%q) should fail", id)
		}
	}
}

func TestList(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, id := range []string{"30", "10", "20"} {
		if err := s.Save(&Snapshot{CompID: id}); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if diff := cmp.Diff([]string{"10", "20", "30"}, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := New("~/botgc-data")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if want := filepath.Join(home, "botgc-data"); s.Dir() != want {
		t.Errorf("Dir() = %q, want %q", s.Dir(), want)
	}
	if _, err := os.Stat(s.Dir()); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
}
