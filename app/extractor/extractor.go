package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"

	"github.com/karthikrv/districtwatch/app/cfg"
	"github.com/karthikrv/districtwatch/app/database"
	"github.com/karthikrv/districtwatch/app/monitor"
)

// ErrCircuitOpen signals that fetches are paused after repeated failures.
var ErrCircuitOpen = errors.New("circuit breaker open")

var showtimePattern = regexp.MustCompile(`\b(\d{1,2}:\d{2}\s*(?:AM|PM))\b`)

// Extractor reads a movie's booking page and produces one ExtractionResult
// per check. Venue data comes from the embedded __NEXT_DATA__ JSON, with a
// plain-HTML showtime scan as fallback.
type Extractor struct {
	httpClient *http.Client
	breaker    *CircuitBreaker
	userAgent  string
	timeout    time.Duration
}

func New(httpClient *http.Client, breaker *CircuitBreaker) *Extractor {
	c := cfg.Get()

	return &Extractor{
		httpClient: httpClient,
		breaker:    breaker,
		userAgent:  c.UserAgent,
		timeout:    time.Duration(c.RequestTimeout) * time.Second,
	}
}

func (e *Extractor) Run(ctx context.Context, movie database.Movie) (*monitor.ExtractionResult, error) {
	if !e.breaker.CanAttempt() {
		return nil, ErrCircuitOpen
	}

	data, err := e.fetchPage(ctx, movie.URL)
	if err != nil {
		e.breaker.RecordFailure()
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	e.breaker.RecordSuccess()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	result := &monitor.ExtractionResult{
		MovieID:    movie.ID,
		BookingURL: movie.URL,
	}

	venues := e.extractVenues(doc)

	for _, theatre := range movie.Theatres {
		theatreResult := monitor.TheatreResult{
			Name: theatre.Name,
			Tier: theatre.Tier,
			OK:   true,
		}

		if venue := matchVenue(venues, theatre.Keywords); venue != nil {
			theatreResult.Location = venue.location
			theatreResult.Showtimes = venue.showtimes
		} else if showtimes := e.scanHTML(doc, theatre.Keywords); len(showtimes) > 0 {
			theatreResult.Showtimes = showtimes
		}

		result.Theatres = append(result.Theatres, theatreResult)
	}

	return result, nil
}

func (e *Extractor) fetchPage(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

type pageVenue struct {
	name      string
	location  string
	showtimes []monitor.Showtime
}

// extractVenues pulls the venue list out of the page's __NEXT_DATA__
// payload. The site has moved the list around between releases, so a
// handful of known paths are probed in order.
func (e *Extractor) extractVenues(doc *goquery.Document) []pageVenue {
	payload := doc.Find("script#__NEXT_DATA__").First().Text()
	if payload == "" {
		return nil
	}

	var nextData struct {
		Props struct {
			PageProps map[string]any `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(payload), &nextData); err != nil {
		slog.Debug("Failed to decode __NEXT_DATA__", "error", err)
		return nil
	}

	paths := [][]string{
		{"initialState", "movie", "venues"},
		{"movie", "venues"},
		{"venues"},
		{"initialState", "shows"},
		{"shows"},
		{"initialData", "venues"},
		{"data", "venues"},
	}

	var raw []any
	for _, path := range paths {
		if found := digList(nextData.Props.PageProps, path); len(found) > 0 {
			raw = found
			break
		}
	}

	var venues []pageVenue
	for _, entry := range raw {
		venueMap, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		venue := parseVenue(venueMap)
		if venue.name != "" {
			venues = append(venues, venue)
		}
	}

	return venues
}

func parseVenue(venueMap map[string]any) pageVenue {
	venue := pageVenue{
		name: stringField(venueMap, "name", "venueName"),
	}

	switch location := venueMap["location"].(type) {
	case string:
		venue.location = location
	case map[string]any:
		venue.location = stringField(location, "address", "area")
	}

	shows, ok := venueMap["shows"].([]any)
	if !ok {
		shows, _ = venueMap["showtimes"].([]any)
	}

	for _, entry := range shows {
		showMap, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		showtime := monitor.Showtime{
			Time:      stringField(showMap, "time", "showTime", "startTime"),
			Format:    stringField(showMap, "format", "experienceType", "screen"),
			Available: boolField(showMap, "available", "isAvailable", "bookingAllowed"),
		}
		if showtime.Time != "" {
			venue.showtimes = append(venue.showtimes, showtime)
		}
	}

	return venue
}

// scanHTML is the fallback when the JSON payload yields nothing: find the
// theatre keyword in page text and collect showtime-looking strings near it.
func (e *Extractor) scanHTML(doc *goquery.Document, keywords []string) []monitor.Showtime {
	var showtimes []monitor.Showtime
	fold := cases.Fold()

	doc.Find("div, section, li").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := fold.String(sel.Text())
		for _, keyword := range keywords {
			if !strings.Contains(text, fold.String(keyword)) {
				continue
			}
			for _, match := range showtimePattern.FindAllString(sel.Text(), -1) {
				showtimes = append(showtimes, monitor.Showtime{Time: match, Available: true})
			}
			if len(showtimes) > 0 {
				return false
			}
		}
		return true
	})

	return showtimes
}

func matchVenue(venues []pageVenue, keywords []string) *pageVenue {
	fold := cases.Fold()
	for i := range venues {
		name := fold.String(venues[i].name)
		for _, keyword := range keywords {
			if strings.Contains(name, fold.String(keyword)) {
				return &venues[i]
			}
		}
	}
	return nil
}

func digList(data map[string]any, path []string) []any {
	current := any(data)
	for _, key := range path {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = currentMap[key]
	}

	switch typed := current.(type) {
	case []any:
		return typed
	case map[string]any:
		values := make([]any, 0, len(typed))
		for _, value := range typed {
			values = append(values, value)
		}
		return values
	}
	return nil
}

func stringField(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := data[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

func boolField(data map[string]any, keys ...string) bool {
	for _, key := range keys {
		if value, ok := data[key].(bool); ok && value {
			return true
		}
	}
	return false
}
