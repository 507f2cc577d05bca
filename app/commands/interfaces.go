package commands

import (
	"context"

	"github.com/karthikrv/districtwatch/app/database"
)

// ConfigGateway is the slice of the mutation gateway the command surface
// needs.
type ConfigGateway interface {
	AddMovie(name, url, city string, theatres []database.Theatre) (string, error)
	RemoveMovie(movieID string) error
	SetEnabled(movieID string, enabled bool) error
	AddTheatre(movieID, name string, tier int, keywords []string) error
	RemoveTheatre(movieID, name string) error
	GetMovie(movieID string) (*database.Movie, error)
	ListMovies(onlyEnabled bool) ([]database.Movie, error)
}

type Sender interface {
	SendMessage(ctx context.Context, text string) error
}
