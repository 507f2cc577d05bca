package database

import (
	"time"
)

type MovieRepository interface {
	AddMovie(name, url, city string, theatres []Theatre) (string, error)
	RemoveMovie(movieID string) error
	AddTheatre(movieID, name string, tier int, keywords []string) error
	RemoveTheatre(movieID, theatreName string) error
	SetEnabled(movieID string, enabled bool) error
	GetMovie(movieID string) (*Movie, error)
	ListMovies(onlyEnabled bool) ([]Movie, error)
	GetMovieCount() (int, error)
}

type SnapshotRepository interface {
	GetSnapshot(movieID, theatreName string) (*Snapshot, error)
	CommitSnapshot(movieID, theatreName string, slots []string, checkedAt time.Time) error
	MarkAlerted(movieID, theatreName string, alertedAt time.Time) error
	DeleteForMovie(movieID string) error
	DeleteForTheatre(movieID, theatreName string) error
}

type RunRepository interface {
	RecordRun(movieID string, success bool, runErr string, at time.Time) error
	GetRun(movieID string) (*CheckRun, error)
	GetRunTotals() (total, successes, failures int, err error)
	RecordAlert(movieID string, theatres []string, message string) error
	GetAlertCount() (int, error)
	GetRecentAlerts(limit int) ([]AlertRecord, error)
}
