package api

type theatreRequest struct {
	Name     string   `json:"name" binding:"required"`
	Tier     int      `json:"tier"`
	Keywords []string `json:"keywords"`
}

type addMovieRequest struct {
	Name     string           `json:"name" binding:"required"`
	URL      string           `json:"url" binding:"required"`
	City     string           `json:"city"`
	Theatres []theatreRequest `json:"theatres"`
}

type theatreResponse struct {
	Name string `json:"name"`
	Tier int    `json:"tier"`
}

type movieResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	City      string            `json:"city"`
	Enabled   bool              `json:"enabled"`
	CreatedAt string            `json:"created_at"`
	Theatres  []theatreResponse `json:"theatres"`
}
