package tasks

import (
	"context"

	"github.com/karthikrv/districtwatch/app/database"
	"github.com/karthikrv/districtwatch/app/monitor"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage the background check loop.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Extractor performs one full check of one movie's booking page.
type Extractor interface {
	Run(ctx context.Context, movie database.Movie) (*monitor.ExtractionResult, error)
}

// Notifier delivers one grouped booking alert per movie.
type Notifier interface {
	SendBookingAlert(ctx context.Context, alert monitor.BookingAlert) error
}

// ConfigReader provides the consistent enabled-movie snapshot that seeds a
// tick.
type ConfigReader interface {
	ReadTick() ([]database.Movie, error)
}
