package database

import (
	"time"
)

type Movie struct {
	ID        string // Stable slug derived from name and city
	Name      string
	URL       string
	City      string
	Enabled   bool
	CreatedAt time.Time
	Theatres  []Theatre // Insertion order preserved
}

type Theatre struct {
	MovieID  string
	Name     string
	Tier     int      // 1 = highest priority, affects presentation order only
	Keywords []string // Lowercase substrings matched against page venue names
	Position int
}

// Snapshot is the last known slot set for a (movie, theatre) pair. It is
// the sole duplicate-suppression baseline and is only ever written from a
// successful per-theatre extraction.
type Snapshot struct {
	MovieID     string
	TheatreName string
	Slots       []string
	CheckedAt   time.Time
	AlertedAt   *time.Time
}

// CheckRun holds per-movie diagnostic counters. Never consulted by the
// change detector.
type CheckRun struct {
	MovieID   string
	Total     int
	Successes int
	Failures  int
	LastRunAt *time.Time
	LastError string
}

type AlertRecord struct {
	ID        int64
	MovieID   string
	Theatres  []string
	Message   string
	CreatedAt time.Time
}
