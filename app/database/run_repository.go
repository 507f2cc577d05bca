package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) RecordRun(movieID string, success bool, runErr string, at time.Time) error {
	successInc := 0
	failureInc := 0
	if success {
		successInc = 1
	} else {
		failureInc = 1
	}

	_, err := r.db.Exec(`
		INSERT INTO check_runs (movie_id, total, successes, failures, last_run_at, last_error)
		VALUES (?, 1, ?, ?, ?, ?)
		ON CONFLICT (movie_id) DO UPDATE SET
			total = total + 1,
			successes = successes + excluded.successes,
			failures = failures + excluded.failures,
			last_run_at = excluded.last_run_at,
			last_error = excluded.last_error
	`, movieID, successInc, failureInc, at.UTC(), runErr)
	if err != nil {
		return fmt.Errorf("failed to record check run: %w", err)
	}

	return nil
}

func (r *runRepository) GetRun(movieID string) (*CheckRun, error) {
	var run CheckRun
	err := r.db.QueryRow(`
		SELECT movie_id, total, successes, failures, last_run_at, last_error
		FROM check_runs
		WHERE movie_id = ?
	`, movieID).Scan(&run.MovieID, &run.Total, &run.Successes, &run.Failures, &run.LastRunAt, &run.LastError)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get check run: %w", err)
	}
	return &run, nil
}

func (r *runRepository) GetRunTotals() (int, int, int, error) {
	var total, successes, failures int
	err := r.db.QueryRow(`
		SELECT COALESCE(SUM(total), 0), COALESCE(SUM(successes), 0), COALESCE(SUM(failures), 0)
		FROM check_runs
	`).Scan(&total, &successes, &failures)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get run totals: %w", err)
	}
	return total, successes, failures, nil
}

func (r *runRepository) RecordAlert(movieID string, theatres []string, message string) error {
	theatresJSON, err := json.Marshal(theatres)
	if err != nil {
		return fmt.Errorf("failed to encode alert theatres: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO alert_history (movie_id, theatres, message, created_at)
		VALUES (?, ?, ?, ?)
	`, movieID, string(theatresJSON), message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record alert: %w", err)
	}

	return nil
}

func (r *runRepository) GetAlertCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM alert_history`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get alert count: %w", err)
	}
	return count, nil
}

func (r *runRepository) GetRecentAlerts(limit int) ([]AlertRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, movie_id, theatres, message, created_at
		FROM alert_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent alerts: %w", err)
	}
	defer rows.Close()

	var alerts []AlertRecord
	for rows.Next() {
		var alert AlertRecord
		var theatresJSON string
		err := rows.Scan(&alert.ID, &alert.MovieID, &theatresJSON, &alert.Message, &alert.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		if err := json.Unmarshal([]byte(theatresJSON), &alert.Theatres); err != nil {
			return nil, fmt.Errorf("failed to decode alert theatres: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}

	return alerts, nil
}
