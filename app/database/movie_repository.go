package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9_]+`)

// FoldName normalizes a theatre name for case-insensitive identity.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func slugify(name, city string) string {
	base := strings.ToLower(strings.TrimSpace(name) + "_" + strings.TrimSpace(city))
	base = strings.ReplaceAll(base, " ", "_")
	return slugPattern.ReplaceAllString(base, "")
}

type movieRepository struct {
	db *DB
}

func NewMovieRepository(db *DB) MovieRepository {
	return &movieRepository{db: db}
}

func (r *movieRepository) AddMovie(name, url, city string, theatres []Theatre) (string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	movieID, err := uniqueMovieID(tx, slugify(name, city))
	if err != nil {
		return "", err
	}

	_, err = tx.Exec(`
		INSERT INTO movies (id, name, url, city, enabled, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`, movieID, name, url, city, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert movie: %w", err)
	}

	seen := make(map[string]bool)
	position := 0
	for _, theatre := range theatres {
		folded := FoldName(theatre.Name)
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true

		if err := insertTheatre(tx, movieID, theatre.Name, folded, theatre.Tier, theatre.Keywords, position); err != nil {
			return "", err
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit movie: %w", err)
	}

	return movieID, nil
}

func (r *movieRepository) RemoveMovie(movieID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM movies WHERE id = ?`, movieID)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("movie %q: %w", movieID, ErrNotFound)
	}

	// Theatres and snapshots cascade via foreign keys; diagnostics do not.
	if _, err := tx.Exec(`DELETE FROM check_runs WHERE movie_id = ?`, movieID); err != nil {
		return fmt.Errorf("failed to delete check runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit movie removal: %w", err)
	}

	return nil
}

func (r *movieRepository) AddTheatre(movieID, name string, tier int, keywords []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := movieExists(tx, movieID); err != nil {
		return err
	}

	folded := FoldName(name)

	var existing int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM theatres WHERE movie_id = ? AND name_folded = ?
	`, movieID, folded).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to check for existing theatre: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("theatre %q for movie %q: %w", name, movieID, ErrDuplicate)
	}

	// A check in flight while this theatre was previously removed can have
	// committed its snapshot after the removal's delete. Clear any such
	// orphan row so the theatre starts from an empty baseline.
	_, err = tx.Exec(`
		DELETE FROM snapshots WHERE movie_id = ? AND theatre_name = ?
	`, movieID, folded)
	if err != nil {
		return fmt.Errorf("failed to clear stale snapshot: %w", err)
	}

	var position int
	err = tx.QueryRow(`
		SELECT COALESCE(MAX(position) + 1, 0) FROM theatres WHERE movie_id = ?
	`, movieID).Scan(&position)
	if err != nil {
		return fmt.Errorf("failed to compute theatre position: %w", err)
	}

	if err := insertTheatre(tx, movieID, name, folded, tier, keywords, position); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit theatre: %w", err)
	}

	return nil
}

func (r *movieRepository) RemoveTheatre(movieID, theatreName string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	folded := FoldName(theatreName)

	result, err := tx.Exec(`
		DELETE FROM theatres WHERE movie_id = ? AND name_folded = ?
	`, movieID, folded)
	if err != nil {
		return fmt.Errorf("failed to delete theatre: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("theatre %q for movie %q: %w", theatreName, movieID, ErrNotFound)
	}

	// The snapshot row must go in the same transaction: re-adding a theatre
	// of the same name later has to start from an empty baseline.
	_, err = tx.Exec(`
		DELETE FROM snapshots WHERE movie_id = ? AND theatre_name = ?
	`, movieID, folded)
	if err != nil {
		return fmt.Errorf("failed to delete theatre snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit theatre removal: %w", err)
	}

	return nil
}

func (r *movieRepository) SetEnabled(movieID string, enabled bool) error {
	result, err := r.db.Exec(`UPDATE movies SET enabled = ? WHERE id = ?`, enabled, movieID)
	if err != nil {
		return fmt.Errorf("failed to set movie enabled: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("movie %q: %w", movieID, ErrNotFound)
	}
	return nil
}

func (r *movieRepository) GetMovie(movieID string) (*Movie, error) {
	var movie Movie
	err := r.db.QueryRow(`
		SELECT id, name, url, city, enabled, created_at
		FROM movies
		WHERE id = ?
	`, movieID).Scan(&movie.ID, &movie.Name, &movie.URL, &movie.City, &movie.Enabled, &movie.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("movie %q: %w", movieID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	theatres, err := r.getTheatres(movieID)
	if err != nil {
		return nil, err
	}
	movie.Theatres = theatres

	return &movie, nil
}

func (r *movieRepository) ListMovies(onlyEnabled bool) ([]Movie, error) {
	query := `
		SELECT id, name, url, city, enabled, created_at
		FROM movies
	`
	if onlyEnabled {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer rows.Close()

	var movies []Movie
	for rows.Next() {
		var movie Movie
		err := rows.Scan(&movie.ID, &movie.Name, &movie.URL, &movie.City, &movie.Enabled, &movie.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie row: %w", err)
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movie rows: %w", err)
	}

	for i := range movies {
		theatres, err := r.getTheatres(movies[i].ID)
		if err != nil {
			return nil, err
		}
		movies[i].Theatres = theatres
	}

	return movies, nil
}

func (r *movieRepository) GetMovieCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM movies`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get movie count: %w", err)
	}
	return count, nil
}

func (r *movieRepository) getTheatres(movieID string) ([]Theatre, error) {
	rows, err := r.db.Query(`
		SELECT movie_id, name, tier, keywords, position
		FROM theatres
		WHERE movie_id = ?
		ORDER BY position
	`, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to get theatres: %w", err)
	}
	defer rows.Close()

	var theatres []Theatre
	for rows.Next() {
		var theatre Theatre
		var keywordsJSON string
		err := rows.Scan(&theatre.MovieID, &theatre.Name, &theatre.Tier, &keywordsJSON, &theatre.Position)
		if err != nil {
			return nil, fmt.Errorf("failed to scan theatre row: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &theatre.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode theatre keywords: %w", err)
		}
		theatres = append(theatres, theatre)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating theatre rows: %w", err)
	}

	return theatres, nil
}

func insertTheatre(tx *sql.Tx, movieID, name, folded string, tier int, keywords []string, position int) error {
	if tier < 1 {
		tier = 1
	}
	if len(keywords) == 0 {
		keywords = []string{strings.ToLower(strings.TrimSpace(name))}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("failed to encode theatre keywords: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO theatres (movie_id, name, name_folded, tier, keywords, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`, movieID, strings.TrimSpace(name), folded, tier, string(keywordsJSON), position)
	if err != nil {
		return fmt.Errorf("failed to insert theatre: %w", err)
	}

	return nil
}

func movieExists(tx *sql.Tx, movieID string) error {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM movies WHERE id = ?`, movieID).Scan(&count); err != nil {
		return fmt.Errorf("failed to check movie existence: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("movie %q: %w", movieID, ErrNotFound)
	}
	return nil
}

func uniqueMovieID(tx *sql.Tx, base string) (string, error) {
	if base == "" || base == "_" {
		base = "movie"
	}

	candidate := base
	for counter := 2; ; counter++ {
		var count int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM movies WHERE id = ?`, candidate).Scan(&count); err != nil {
			return "", fmt.Errorf("failed to check movie id: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, counter)
	}
}
