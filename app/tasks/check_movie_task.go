package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karthikrv/districtwatch/app/database"
	"github.com/karthikrv/districtwatch/app/monitor"
)

// CheckMovieTask runs one extraction+detect+notify cycle for one movie.
// It never retries: the next scheduler tick is the retry.
type CheckMovieTask struct {
	Task
	Movie     database.Movie
	extractor Extractor
	notifier  Notifier
	snapshots database.SnapshotRepository
	runs      database.RunRepository
}

func NewCheckMovieTask(movie database.Movie, extractor Extractor, notifier Notifier,
	snapshots database.SnapshotRepository, runs database.RunRepository) *CheckMovieTask {
	return &CheckMovieTask{
		Task:      NewTask(TaskTypeCheckMovie, movie.ID),
		Movie:     movie,
		extractor: extractor,
		notifier:  notifier,
		snapshots: snapshots,
		runs:      runs,
	}
}

func (t *CheckMovieTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	now := time.Now().UTC()

	result, err := t.extractor.Run(ctx, t.Movie)
	if err != nil {
		t.recordRun(false, err.Error(), now)
		return fmt.Errorf("failed to extract: %w", err)
	}

	byName := make(map[string]monitor.TheatreResult, len(result.Theatres))
	for _, theatreResult := range result.Theatres {
		byName[database.FoldName(theatreResult.Name)] = theatreResult
	}

	var alertTheatres []monitor.AlertTheatre
	var alertedNames []string
	failedTheatres := 0

	for _, theatre := range t.Movie.Theatres {
		theatreResult, found := byName[database.FoldName(theatre.Name)]
		if !found {
			// No data for this theatre in the result: treat as a failed
			// per-theatre read, never as "no showtimes".
			theatreResult = monitor.TheatreResult{Name: theatre.Name, OK: false}
		}

		prev, err := t.snapshots.GetSnapshot(t.Movie.ID, theatre.Name)
		if err != nil {
			t.recordRun(false, err.Error(), now)
			return fmt.Errorf("failed to read snapshot: %w", err)
		}

		decision := monitor.Detect(prev, theatreResult)

		if !theatreResult.OK {
			failedTheatres++
			continue
		}

		// The baseline always reflects the latest successful read,
		// whether or not an alert fires.
		if err := t.snapshots.CommitSnapshot(t.Movie.ID, theatre.Name, decision.AllSlots, now); err != nil {
			t.recordRun(false, err.Error(), now)
			return fmt.Errorf("failed to commit snapshot: %w", err)
		}

		if decision.Action == monitor.Alert {
			alertTheatres = append(alertTheatres, monitor.AlertTheatre{
				Name:     theatre.Name,
				Tier:     theatre.Tier,
				Location: theatreResult.Location,
				NewSlots: decision.NewSlots,
			})
			alertedNames = append(alertedNames, theatre.Name)
		}
	}

	if len(alertTheatres) > 0 {
		alert := monitor.BookingAlert{
			MovieID:    t.Movie.ID,
			MovieName:  t.Movie.Name,
			BookingURL: result.BookingURL,
			Theatres:   alertTheatres,
		}

		if err := t.notifier.SendBookingAlert(ctx, alert); err != nil {
			// Baseline is already committed: this alert is dropped until
			// further new slots appear. Accepted tradeoff.
			slog.Error("Alert delivery failed, alert dropped",
				"movie", t.Movie.ID, "theatres", len(alertTheatres), "error", err)
		} else {
			for _, name := range alertedNames {
				if err := t.snapshots.MarkAlerted(t.Movie.ID, name, now); err != nil {
					slog.Warn("Failed to mark snapshot alerted", "movie", t.Movie.ID, "theatre", name, "error", err)
				}
			}
			message := fmt.Sprintf("%s: %d theatre(s) newly available", t.Movie.Name, len(alertedNames))
			if err := t.runs.RecordAlert(t.Movie.ID, alertedNames, message); err != nil {
				slog.Warn("Failed to record alert history", "movie", t.Movie.ID, "error", err)
			}
		}
	}

	runErr := ""
	if failedTheatres > 0 {
		runErr = fmt.Sprintf("%d of %d theatres failed extraction", failedTheatres, len(t.Movie.Theatres))
	}
	t.recordRun(true, runErr, now)

	slog.Info("Task completed",
		"type", "CheckMovie",
		"movie", t.Movie.ID,
		"duration", t.GetDuration(),
		"theatres", len(t.Movie.Theatres),
		"failed_theatres", failedTheatres,
		"alerted", len(alertTheatres))

	return nil
}

func (t *CheckMovieTask) recordRun(success bool, runErr string, at time.Time) {
	if err := t.runs.RecordRun(t.Movie.ID, success, runErr, at); err != nil {
		slog.Error("Failed to record check run", "movie", t.Movie.ID, "error", err)
	}
}
