package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/karthikrv/districtwatch/app/database"
	"github.com/karthikrv/districtwatch/app/gateway"
)

func setupTestServer(t *testing.T, apiAccessKey string) (*gin.Engine, database.MovieRepository) {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	movieRepo := database.NewMovieRepository(db)
	handler := NewHandler(gateway.New(movieRepo, nil), database.NewRunRepository(db), "test")

	return NewServer(handler, apiAccessKey), movieRepo
}

func TestServer_Health(t *testing.T) {
	server, _ := setupTestServer(t, "")

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
}

func TestServer_APIRequiresKey(t *testing.T) {
	server, _ := setupTestServer(t, "secret")

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/movies", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/movies", nil)
	req.Header.Set("X-API-Key", "wrong")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/movies", nil)
	req.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with correct key, got %d", w.Code)
	}

	// Bearer form is accepted too
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/movies", nil)
	req.Header.Set("Authorization", "Bearer secret")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got %d", w.Code)
	}
}

func TestServer_APIDisabledWithoutKey(t *testing.T) {
	server, _ := setupTestServer(t, "")

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/movies", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected mutation endpoints to be absent without a key, got %d", w.Code)
	}
}

func TestServer_AddAndGetMovie(t *testing.T) {
	server, _ := setupTestServer(t, "secret")

	payload := `{
		"name": "Leo",
		"url": "https://example.com/movie/leo",
		"theatres": [{"name": "Sathyam", "tier": 1, "keywords": ["sathyam"]}]
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/movies", strings.NewReader(payload))
	req.Header.Set("X-API-Key", "secret")
	req.Header.Set("Content-Type", "application/json")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if created["id"] != "leo_chennai" {
		t.Errorf("Expected id 'leo_chennai', got %q", created["id"])
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/movies/leo_chennai", nil)
	req.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var movie movieResponse
	if err := json.Unmarshal(w.Body.Bytes(), &movie); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if movie.Name != "Leo" || movie.City != "Chennai" {
		t.Errorf("Expected movie with default city, got %+v", movie)
	}
	if len(movie.Theatres) != 1 {
		t.Errorf("Expected 1 theatre, got %d", len(movie.Theatres))
	}
}

func TestServer_AddMovie_MissingFields(t *testing.T) {
	server, _ := setupTestServer(t, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/movies", strings.NewReader(`{"name": "Leo"}`))
	req.Header.Set("X-API-Key", "secret")
	req.Header.Set("Content-Type", "application/json")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing url, got %d", w.Code)
	}
}

func TestServer_GetMovie_NotFound(t *testing.T) {
	server, _ := setupTestServer(t, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/movies/nonexistent", nil)
	req.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestServer_DuplicateTheatreConflicts(t *testing.T) {
	server, repo := setupTestServer(t, "secret")

	if _, err := repo.AddMovie("Leo", "https://example.com", "Chennai", []database.Theatre{{Name: "Sathyam", Tier: 1}}); err != nil {
		t.Fatalf("Failed to seed movie: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/movies/leo_chennai/theatres", strings.NewReader(`{"name": "SATHYAM"}`))
	req.Header.Set("X-API-Key", "secret")
	req.Header.Set("Content-Type", "application/json")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate theatre, got %d", w.Code)
	}
}

func TestServer_RemoveMovie(t *testing.T) {
	server, repo := setupTestServer(t, "secret")

	if _, err := repo.AddMovie("Leo", "https://example.com", "Chennai", nil); err != nil {
		t.Fatalf("Failed to seed movie: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/api/movies/leo_chennai", nil)
	req.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}

	if _, err := repo.GetMovie("leo_chennai"); err == nil {
		t.Error("Expected movie to be removed")
	}
}

func TestServer_Stats(t *testing.T) {
	server, repo := setupTestServer(t, "")

	if _, err := repo.AddMovie("Leo", "https://example.com", "Chennai", nil); err != nil {
		t.Fatalf("Failed to seed movie: %v", err)
	}

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["enabled_movies"] != float64(1) {
		t.Errorf("Expected 1 enabled movie, got %v", body["enabled_movies"])
	}
}
