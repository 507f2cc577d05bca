package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/karthikrv/districtwatch/app/database"
	"github.com/karthikrv/districtwatch/app/gateway"
)

type Handler struct {
	gateway *gateway.Gateway
	runs    database.RunRepository
	version string
}

func NewHandler(gw *gateway.Gateway, runs database.RunRepository, version string) *Handler {
	return &Handler{
		gateway: gw,
		runs:    runs,
		version: version,
	}
}

// GetHealth reports liveness. A failing state store fails the health
// check: the monitor must not keep running on an unpersisted baseline.
func (h *Handler) GetHealth(c *gin.Context) {
	movies, err := h.gateway.ListMovies(false)
	if err != nil {
		slog.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "state store unavailable"})
		return
	}

	total, _, _, err := h.runs.GetRunTotals()
	if err != nil {
		slog.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "state store unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"movies":    len(movies),
		"checks":    total,
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	movies, err := h.gateway.ListMovies(false)
	if err != nil {
		h.fail(c, err)
		return
	}

	total, successes, failures, err := h.runs.GetRunTotals()
	if err != nil {
		h.fail(c, err)
		return
	}

	alertCount, err := h.runs.GetAlertCount()
	if err != nil {
		h.fail(c, err)
		return
	}

	recentAlerts, err := h.runs.GetRecentAlerts(10)
	if err != nil {
		h.fail(c, err)
		return
	}

	perMovie := make([]gin.H, 0, len(movies))
	enabled := 0
	for _, movie := range movies {
		if movie.Enabled {
			enabled++
		}

		entry := gin.H{
			"id":       movie.ID,
			"name":     movie.Name,
			"enabled":  movie.Enabled,
			"theatres": len(movie.Theatres),
		}
		if run, err := h.runs.GetRun(movie.ID); err == nil && run != nil {
			entry["checks"] = run.Total
			entry["failures"] = run.Failures
			if run.LastRunAt != nil {
				entry["last_check"] = run.LastRunAt.Format(time.RFC3339)
			}
			if run.LastError != "" {
				entry["last_error"] = run.LastError
			}
		}
		perMovie = append(perMovie, entry)
	}

	alerts := make([]gin.H, 0, len(recentAlerts))
	for _, alert := range recentAlerts {
		alerts = append(alerts, gin.H{
			"movie":    alert.MovieID,
			"theatres": alert.Theatres,
			"at":       alert.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"movies":         perMovie,
		"enabled_movies": enabled,
		"checks": gin.H{
			"total":     total,
			"successes": successes,
			"failures":  failures,
		},
		"alerts":        alertCount,
		"recent_alerts": alerts,
	})
}

func (h *Handler) APIListMovies(c *gin.Context) {
	movies, err := h.gateway.ListMovies(false)
	if err != nil {
		h.fail(c, err)
		return
	}

	response := make([]movieResponse, 0, len(movies))
	for _, movie := range movies {
		response = append(response, toMovieResponse(movie))
	}

	c.JSON(http.StatusOK, gin.H{"movies": response})
}

func (h *Handler) APIAddMovie(c *gin.Context) {
	var req addMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var theatres []database.Theatre
	for _, theatre := range req.Theatres {
		theatres = append(theatres, database.Theatre{
			Name:     theatre.Name,
			Tier:     theatre.Tier,
			Keywords: theatre.Keywords,
		})
	}

	movieID, err := h.gateway.AddMovie(req.Name, req.URL, req.City, theatres)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": movieID})
}

func (h *Handler) APIGetMovie(c *gin.Context) {
	movie, err := h.gateway.GetMovie(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toMovieResponse(*movie))
}

func (h *Handler) APIRemoveMovie(c *gin.Context) {
	if err := h.gateway.RemoveMovie(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIEnableMovie(c *gin.Context) {
	h.setEnabled(c, true)
}

func (h *Handler) APIDisableMovie(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *Handler) setEnabled(c *gin.Context, enabled bool) {
	if err := h.gateway.SetEnabled(c.Param("id"), enabled); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "enabled": enabled})
}

func (h *Handler) APIListTheatres(c *gin.Context) {
	movie, err := h.gateway.GetMovie(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	theatres := make([]theatreResponse, 0, len(movie.Theatres))
	for _, theatre := range movie.Theatres {
		theatres = append(theatres, theatreResponse{Name: theatre.Name, Tier: theatre.Tier})
	}

	c.JSON(http.StatusOK, gin.H{"movie": movie.ID, "theatres": theatres})
}

func (h *Handler) APIAddTheatre(c *gin.Context) {
	var req theatreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.gateway.AddTheatre(c.Param("id"), req.Name, req.Tier, req.Keywords); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"movie": c.Param("id"), "theatre": req.Name})
}

func (h *Handler) APIRemoveTheatre(c *gin.Context) {
	if err := h.gateway.RemoveTheatre(c.Param("id"), c.Param("name")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		slog.Error("API request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func toMovieResponse(movie database.Movie) movieResponse {
	response := movieResponse{
		ID:        movie.ID,
		Name:      movie.Name,
		URL:       movie.URL,
		City:      movie.City,
		Enabled:   movie.Enabled,
		CreatedAt: movie.CreatedAt.Format(time.RFC3339),
		Theatres:  []theatreResponse{},
	}
	for _, theatre := range movie.Theatres {
		response.Theatres = append(response.Theatres, theatreResponse{Name: theatre.Name, Tier: theatre.Tier})
	}
	return response
}
