package database

import (
	"reflect"
	"testing"
	"time"
)

func TestSnapshotRepository_MissingSnapshotIsNil(t *testing.T) {
	repo := NewSnapshotRepository(setupTestDB(t))

	snapshot, err := repo.GetSnapshot("leo_chennai", "Sathyam")
	if err != nil {
		t.Fatalf("Expected no error for missing snapshot, got %v", err)
	}
	if snapshot != nil {
		t.Errorf("Expected nil snapshot, got %+v", snapshot)
	}
}

func TestSnapshotRepository_CommitAndGet(t *testing.T) {
	db := setupTestDB(t)
	movieID, err := NewMovieRepository(db).AddMovie("Leo", "https://example.com", "Chennai", testTheatres())
	if err != nil {
		t.Fatalf("Failed to add movie: %v", err)
	}
	repo := NewSnapshotRepository(db)

	checkedAt := time.Now().UTC().Truncate(time.Second)
	if err := repo.CommitSnapshot(movieID, "Sathyam", []string{"10:00 AM", "01:00 PM"}, checkedAt); err != nil {
		t.Fatalf("Failed to commit snapshot: %v", err)
	}

	snapshot, err := repo.GetSnapshot(movieID, "Sathyam")
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if snapshot == nil {
		t.Fatal("Expected snapshot, got nil")
	}
	if !reflect.DeepEqual(snapshot.Slots, []string{"10:00 AM", "01:00 PM"}) {
		t.Errorf("Expected slots round-trip, got %v", snapshot.Slots)
	}
	if snapshot.AlertedAt != nil {
		t.Errorf("Expected no alerted timestamp, got %v", snapshot.AlertedAt)
	}
}

func TestSnapshotRepository_CommitReplacesSlots(t *testing.T) {
	db := setupTestDB(t)
	movieID, err := NewMovieRepository(db).AddMovie("Leo", "https://example.com", "Chennai", testTheatres())
	if err != nil {
		t.Fatalf("Failed to add movie: %v", err)
	}
	repo := NewSnapshotRepository(db)

	if err := repo.CommitSnapshot(movieID, "Sathyam", []string{"10:00 AM", "01:00 PM"}, time.Now()); err != nil {
		t.Fatalf("Failed to commit snapshot: %v", err)
	}
	// A shrunk slot set replaces the baseline entirely
	if err := repo.CommitSnapshot(movieID, "Sathyam", []string{"10:00 AM"}, time.Now()); err != nil {
		t.Fatalf("Failed to re-commit snapshot: %v", err)
	}

	snapshot, err := repo.GetSnapshot(movieID, "Sathyam")
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if !reflect.DeepEqual(snapshot.Slots, []string{"10:00 AM"}) {
		t.Errorf("Expected replaced slot set, got %v", snapshot.Slots)
	}
}

func TestSnapshotRepository_CaseInsensitiveKey(t *testing.T) {
	db := setupTestDB(t)
	movieID, err := NewMovieRepository(db).AddMovie("Leo", "https://example.com", "Chennai", testTheatres())
	if err != nil {
		t.Fatalf("Failed to add movie: %v", err)
	}
	repo := NewSnapshotRepository(db)

	if err := repo.CommitSnapshot(movieID, "Sathyam", []string{"10:00 AM"}, time.Now()); err != nil {
		t.Fatalf("Failed to commit snapshot: %v", err)
	}

	snapshot, err := repo.GetSnapshot(movieID, "SATHYAM")
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if snapshot == nil {
		t.Error("Expected snapshot lookup to be case-insensitive")
	}
}

func TestSnapshotRepository_MarkAlerted(t *testing.T) {
	db := setupTestDB(t)
	movieID, err := NewMovieRepository(db).AddMovie("Leo", "https://example.com", "Chennai", testTheatres())
	if err != nil {
		t.Fatalf("Failed to add movie: %v", err)
	}
	repo := NewSnapshotRepository(db)

	if err := repo.CommitSnapshot(movieID, "Sathyam", []string{"10:00 AM"}, time.Now()); err != nil {
		t.Fatalf("Failed to commit snapshot: %v", err)
	}
	if err := repo.MarkAlerted(movieID, "Sathyam", time.Now()); err != nil {
		t.Fatalf("Failed to mark alerted: %v", err)
	}

	snapshot, err := repo.GetSnapshot(movieID, "Sathyam")
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if snapshot.AlertedAt == nil {
		t.Error("Expected alerted timestamp to be set")
	}
}

func TestSnapshotRepository_RemoveTheatreResetsBaseline(t *testing.T) {
	db := setupTestDB(t)
	movieRepo := NewMovieRepository(db)
	snapshotRepo := NewSnapshotRepository(db)

	movieID, err := movieRepo.AddMovie("Leo", "https://example.com", "Chennai", testTheatres())
	if err != nil {
		t.Fatalf("Failed to add movie: %v", err)
	}
	if err := snapshotRepo.CommitSnapshot(movieID, "Sathyam", []string{"10:00 AM"}, time.Now()); err != nil {
		t.Fatalf("Failed to commit snapshot: %v", err)
	}

	// Removing and re-adding the theatre must start from an empty baseline
	if err := movieRepo.RemoveTheatre(movieID, "Sathyam"); err != nil {
		t.Fatalf("Failed to remove theatre: %v", err)
	}
	if err := movieRepo.AddTheatre(movieID, "Sathyam", 1, nil); err != nil {
		t.Fatalf("Failed to re-add theatre: %v", err)
	}

	snapshot, err := snapshotRepo.GetSnapshot(movieID, "Sathyam")
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if snapshot != nil {
		t.Errorf("Expected fresh baseline after re-adding theatre, got %+v", snapshot)
	}
}

func TestSnapshotRepository_ReaddAfterLateCommitStartsFresh(t *testing.T) {
	db := setupTestDB(t)
	movieRepo := NewMovieRepository(db)
	snapshotRepo := NewSnapshotRepository(db)

	movieID, err := movieRepo.AddMovie("Leo", "https://example.com", "Chennai", testTheatres())
	if err != nil {
		t.Fatalf("Failed to add movie: %v", err)
	}
	if err := snapshotRepo.CommitSnapshot(movieID, "Sathyam", []string{"10:00 AM"}, time.Now()); err != nil {
		t.Fatalf("Failed to commit snapshot: %v", err)
	}
	if err := movieRepo.RemoveTheatre(movieID, "Sathyam"); err != nil {
		t.Fatalf("Failed to remove theatre: %v", err)
	}

	// A check already in flight when the theatre was removed commits its
	// snapshot after the removal's transactional delete
	if err := snapshotRepo.CommitSnapshot(movieID, "Sathyam", []string{"10:00 AM"}, time.Now()); err != nil {
		t.Fatalf("Failed to commit late snapshot: %v", err)
	}

	if err := movieRepo.AddTheatre(movieID, "Sathyam", 1, nil); err != nil {
		t.Fatalf("Failed to re-add theatre: %v", err)
	}

	snapshot, err := snapshotRepo.GetSnapshot(movieID, "Sathyam")
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if snapshot != nil {
		t.Errorf("Re-added theatre should start from an empty baseline, got stale slots %v", snapshot.Slots)
	}
}

func TestSnapshotRepository_DeleteForTheatre(t *testing.T) {
	db := setupTestDB(t)
	movieID, err := NewMovieRepository(db).AddMovie("Leo", "https://example.com", "Chennai", testTheatres())
	if err != nil {
		t.Fatalf("Failed to add movie: %v", err)
	}
	repo := NewSnapshotRepository(db)

	if err := repo.CommitSnapshot(movieID, "Sathyam", []string{"10:00 AM"}, time.Now()); err != nil {
		t.Fatalf("Failed to commit snapshot: %v", err)
	}
	if err := repo.CommitSnapshot(movieID, "Rohini", []string{"11:00 AM"}, time.Now()); err != nil {
		t.Fatalf("Failed to commit snapshot: %v", err)
	}

	// Deletion folds the theatre name like every other snapshot access
	if err := repo.DeleteForTheatre(movieID, "SATHYAM"); err != nil {
		t.Fatalf("Failed to delete snapshot: %v", err)
	}

	snapshot, err := repo.GetSnapshot(movieID, "Sathyam")
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if snapshot != nil {
		t.Errorf("Expected snapshot deleted, got %+v", snapshot)
	}

	remaining, err := repo.GetSnapshot(movieID, "Rohini")
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if remaining == nil {
		t.Error("Expected other theatre's snapshot untouched")
	}
}

func TestSnapshotRepository_DeleteForMovie(t *testing.T) {
	db := setupTestDB(t)
	movieID, err := NewMovieRepository(db).AddMovie("Leo", "https://example.com", "Chennai", testTheatres())
	if err != nil {
		t.Fatalf("Failed to add movie: %v", err)
	}
	repo := NewSnapshotRepository(db)

	if err := repo.CommitSnapshot(movieID, "Sathyam", []string{"10:00 AM"}, time.Now()); err != nil {
		t.Fatalf("Failed to commit snapshot: %v", err)
	}
	if err := repo.CommitSnapshot(movieID, "Rohini", []string{"11:00 AM"}, time.Now()); err != nil {
		t.Fatalf("Failed to commit snapshot: %v", err)
	}

	if err := repo.DeleteForMovie(movieID); err != nil {
		t.Fatalf("Failed to delete snapshots: %v", err)
	}

	for _, theatre := range []string{"Sathyam", "Rohini"} {
		snapshot, err := repo.GetSnapshot(movieID, theatre)
		if err != nil {
			t.Fatalf("Failed to get snapshot: %v", err)
		}
		if snapshot != nil {
			t.Errorf("Expected all snapshots deleted, got %+v", snapshot)
		}
	}
}

func TestSnapshotRepository_RemoveMovieCascades(t *testing.T) {
	db := setupTestDB(t)
	movieRepo := NewMovieRepository(db)
	snapshotRepo := NewSnapshotRepository(db)

	movieID, err := movieRepo.AddMovie("Leo", "https://example.com", "Chennai", testTheatres())
	if err != nil {
		t.Fatalf("Failed to add movie: %v", err)
	}
	if err := snapshotRepo.CommitSnapshot(movieID, "Sathyam", []string{"10:00 AM"}, time.Now()); err != nil {
		t.Fatalf("Failed to commit snapshot: %v", err)
	}

	if err := movieRepo.RemoveMovie(movieID); err != nil {
		t.Fatalf("Failed to remove movie: %v", err)
	}

	snapshot, err := snapshotRepo.GetSnapshot(movieID, "Sathyam")
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if snapshot != nil {
		t.Errorf("Expected snapshot to be deleted with the movie, got %+v", snapshot)
	}
}
