package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type snapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) GetSnapshot(movieID, theatreName string) (*Snapshot, error) {
	var snapshot Snapshot
	var slotsJSON string
	err := r.db.QueryRow(`
		SELECT movie_id, theatre_name, slots, checked_at, alerted_at
		FROM snapshots
		WHERE movie_id = ? AND theatre_name = ?
	`, movieID, FoldName(theatreName)).Scan(
		&snapshot.MovieID, &snapshot.TheatreName, &slotsJSON,
		&snapshot.CheckedAt, &snapshot.AlertedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(slotsJSON), &snapshot.Slots); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot slots: %w", err)
	}

	return &snapshot, nil
}

// CommitSnapshot replaces the stored slot set with the latest successful
// read. Committing an identical set only advances checked_at.
func (r *snapshotRepository) CommitSnapshot(movieID, theatreName string, slots []string, checkedAt time.Time) error {
	if slots == nil {
		slots = []string{}
	}
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot slots: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO snapshots (movie_id, theatre_name, slots, checked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (movie_id, theatre_name) DO UPDATE SET
			slots = excluded.slots,
			checked_at = excluded.checked_at
	`, movieID, FoldName(theatreName), string(slotsJSON), checkedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return nil
}

func (r *snapshotRepository) MarkAlerted(movieID, theatreName string, alertedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE snapshots
		SET alerted_at = ?
		WHERE movie_id = ? AND theatre_name = ?
	`, alertedAt.UTC(), movieID, FoldName(theatreName))
	if err != nil {
		return fmt.Errorf("failed to mark snapshot alerted: %w", err)
	}
	return nil
}

func (r *snapshotRepository) DeleteForMovie(movieID string) error {
	_, err := r.db.Exec(`DELETE FROM snapshots WHERE movie_id = ?`, movieID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshots for movie: %w", err)
	}
	return nil
}

func (r *snapshotRepository) DeleteForTheatre(movieID, theatreName string) error {
	_, err := r.db.Exec(`
		DELETE FROM snapshots WHERE movie_id = ? AND theatre_name = ?
	`, movieID, FoldName(theatreName))
	if err != nil {
		return fmt.Errorf("failed to delete snapshot for theatre: %w", err)
	}
	return nil
}
