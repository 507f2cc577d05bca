package gateway

import (
	"log/slog"
	"sync"

	"github.com/karthikrv/districtwatch/app/cfg"
	"github.com/karthikrv/districtwatch/app/database"
)

// Gateway serializes configuration mutations against the scheduler's
// per-tick read. Mutations take the write lock; a tick's config read takes
// the read lock, so it always observes a fully applied configuration.
// Dependent snapshot cleanup happens inside the repository transactions,
// not here.
type Gateway struct {
	mu       sync.RWMutex
	movies   database.MovieRepository
	defaults []cfg.TheatreDefault
}

func New(movies database.MovieRepository, defaults []cfg.TheatreDefault) *Gateway {
	return &Gateway{
		movies:   movies,
		defaults: defaults,
	}
}

// AddMovie registers a movie for monitoring. An empty theatre list falls
// back to the configured defaults; a movie with no theatres at all is
// valid and simply never alerts.
func (g *Gateway) AddMovie(name, url, city string, theatres []database.Theatre) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if city == "" {
		city = "Chennai"
	}
	if len(theatres) == 0 {
		theatres = g.defaultTheatres()
	}

	movieID, err := g.movies.AddMovie(name, url, city, theatres)
	if err != nil {
		return "", err
	}

	slog.Info("Movie added", "movie", movieID, "theatres", len(theatres))
	return movieID, nil
}

func (g *Gateway) RemoveMovie(movieID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.movies.RemoveMovie(movieID); err != nil {
		return err
	}

	slog.Info("Movie removed", "movie", movieID)
	return nil
}

func (g *Gateway) SetEnabled(movieID string, enabled bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.movies.SetEnabled(movieID, enabled); err != nil {
		return err
	}

	slog.Info("Movie enabled flag changed", "movie", movieID, "enabled", enabled)
	return nil
}

func (g *Gateway) AddTheatre(movieID, name string, tier int, keywords []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.movies.AddTheatre(movieID, name, tier, keywords); err != nil {
		return err
	}

	slog.Info("Theatre added", "movie", movieID, "theatre", name, "tier", tier)
	return nil
}

func (g *Gateway) RemoveTheatre(movieID, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.movies.RemoveTheatre(movieID, name); err != nil {
		return err
	}

	slog.Info("Theatre removed", "movie", movieID, "theatre", name)
	return nil
}

func (g *Gateway) GetMovie(movieID string) (*database.Movie, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.movies.GetMovie(movieID)
}

func (g *Gateway) ListMovies(onlyEnabled bool) ([]database.Movie, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.movies.ListMovies(onlyEnabled)
}

// ReadTick returns the enabled movies as one consistent snapshot for a
// scheduler tick. Mutations arriving after this call affect the next tick.
func (g *Gateway) ReadTick() ([]database.Movie, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.movies.ListMovies(true)
}

func (g *Gateway) defaultTheatres() []database.Theatre {
	theatres := make([]database.Theatre, 0, len(g.defaults))
	for _, def := range g.defaults {
		keywords := make([]string, len(def.Keywords))
		copy(keywords, def.Keywords)
		theatres = append(theatres, database.Theatre{
			Name:     def.Name,
			Tier:     def.Tier,
			Keywords: keywords,
		})
	}
	return theatres
}
