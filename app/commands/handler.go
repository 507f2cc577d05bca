package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/karthikrv/districtwatch/app/cfg"
	"github.com/karthikrv/districtwatch/app/database"
	"github.com/karthikrv/districtwatch/app/notifier"
)

// Handler turns chat commands into mutation gateway calls. Each command is
// one atomic mutation; results are reported back synchronously.
type Handler struct {
	gateway ConfigGateway
	sender  Sender
	runs    database.RunRepository
}

func NewHandler(gateway ConfigGateway, sender Sender, runs database.RunRepository) *Handler {
	return &Handler{
		gateway: gateway,
		sender:  sender,
		runs:    runs,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update notifier.Update) {
	text := strings.TrimSpace(update.Message.Text)
	if text == "" || !strings.HasPrefix(text, "/") {
		return
	}

	parts := strings.SplitN(text, " ", 2)
	command := strings.ToLower(strings.SplitN(parts[0], "@", 2)[0])
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	var reply string
	switch command {
	case "/start", "/help":
		reply = helpText()
	case "/add":
		reply = h.cmdAdd(args)
	case "/remove":
		reply = h.cmdRemove(args)
	case "/list":
		reply = h.cmdList()
	case "/enable":
		reply = h.cmdSetEnabled(args, true)
	case "/disable":
		reply = h.cmdSetEnabled(args, false)
	case "/status":
		reply = h.cmdStatus()
	case "/theatres", "/theaters":
		reply = h.cmdTheatres(args)
	case "/addtheatre", "/addtheater":
		reply = h.cmdAddTheatre(args)
	case "/removetheatre", "/removetheater":
		reply = h.cmdRemoveTheatre(args)
	default:
		reply = fmt.Sprintf("❌ Unknown command: %s\nUse /help for available commands", command)
	}

	if err := h.sender.SendMessage(ctx, reply); err != nil {
		slog.Error("Failed to send command reply", "command", command, "error", err)
	}
}

func (h *Handler) cmdAdd(args string) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "❌ Usage: /add <url> <name> [city]"
	}

	url := fields[0]
	city := ""
	name := strings.Join(fields[1:], " ")
	if len(fields) >= 3 {
		city = fields[len(fields)-1]
		name = strings.Join(fields[1:len(fields)-1], " ")
	}

	movieID, err := h.gateway.AddMovie(name, url, city, nil)
	if err != nil {
		return errorReply(err)
	}

	return fmt.Sprintf("✅ Added *%s*\nID: `%s`\nMonitoring starts on the next check cycle.", name, movieID)
}

func (h *Handler) cmdRemove(args string) string {
	movieID := strings.TrimSpace(args)
	if movieID == "" {
		return "❌ Usage: /remove <movie_id>"
	}

	if err := h.gateway.RemoveMovie(movieID); err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("✅ Removed `%s`", movieID)
}

func (h *Handler) cmdList() string {
	movies, err := h.gateway.ListMovies(false)
	if err != nil {
		return errorReply(err)
	}
	if len(movies) == 0 {
		return "No movies configured. Use /add to start monitoring one."
	}

	var b strings.Builder
	b.WriteString("🎬 *Monitored movies*\n\n")
	for _, movie := range movies {
		status := "✅"
		if !movie.Enabled {
			status = "⏸"
		}
		fmt.Fprintf(&b, "%s `%s` — %s (%s), %d theatres\n", status, movie.ID, movie.Name, movie.City, len(movie.Theatres))
	}
	return b.String()
}

func (h *Handler) cmdSetEnabled(args string, enabled bool) string {
	movieID := strings.TrimSpace(args)
	if movieID == "" {
		if enabled {
			return "❌ Usage: /enable <movie_id>"
		}
		return "❌ Usage: /disable <movie_id>"
	}

	if err := h.gateway.SetEnabled(movieID, enabled); err != nil {
		return errorReply(err)
	}

	if enabled {
		return fmt.Sprintf("✅ Monitoring enabled for `%s`", movieID)
	}
	return fmt.Sprintf("⏸ Monitoring paused for `%s`", movieID)
}

func (h *Handler) cmdStatus() string {
	total, successes, failures, err := h.runs.GetRunTotals()
	if err != nil {
		return errorReply(err)
	}
	alerts, err := h.runs.GetAlertCount()
	if err != nil {
		return errorReply(err)
	}
	enabled, err := h.gateway.ListMovies(true)
	if err != nil {
		return errorReply(err)
	}

	c := cfg.Get()
	return fmt.Sprintf(
		"📊 *Status*\n\nActive movies: %d\nChecks: %d (%d ok, %d failed)\nAlerts sent: %d\nCheck interval: %ds",
		len(enabled), total, successes, failures, alerts, c.CheckInterval)
}

func (h *Handler) cmdTheatres(args string) string {
	movieID := strings.TrimSpace(args)
	if movieID == "" {
		return "❌ Usage: /theatres <movie_id>"
	}

	movie, err := h.gateway.GetMovie(movieID)
	if err != nil {
		return errorReply(err)
	}
	if len(movie.Theatres) == 0 {
		return fmt.Sprintf("*%s* has no theatres configured; it will never alert.\nUse /addtheatre to add one.", movie.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎭 *Theatres for %s*\n\n", movie.Name)
	for _, theatre := range movie.Theatres {
		stars := strings.Repeat("⭐", theatre.Tier)
		fmt.Fprintf(&b, "%s %s\n", stars, theatre.Name)
	}
	return b.String()
}

func (h *Handler) cmdAddTheatre(args string) string {
	fields := strings.SplitN(args, " ", 2)
	if len(fields) < 2 {
		return "❌ Usage: /addtheatre <movie_id> <name[:tier[:keyword,keyword]]>"
	}

	movieID := strings.TrimSpace(fields[0])
	spec, err := cfg.ParseTheatreSpec(strings.TrimSpace(fields[1]))
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}

	if err := h.gateway.AddTheatre(movieID, spec.Name, spec.Tier, spec.Keywords); err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("✅ Added theatre *%s* to `%s`", spec.Name, movieID)
}

func (h *Handler) cmdRemoveTheatre(args string) string {
	fields := strings.SplitN(args, " ", 2)
	if len(fields) < 2 {
		return "❌ Usage: /removetheatre <movie_id> <name>"
	}

	movieID := strings.TrimSpace(fields[0])
	name := strings.TrimSpace(fields[1])

	if err := h.gateway.RemoveTheatre(movieID, name); err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("✅ Removed theatre *%s* from `%s`", name, movieID)
}

func errorReply(err error) string {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return "❌ Not found. Use /list to see movie IDs."
	case errors.Is(err, database.ErrDuplicate):
		return "❌ Already exists."
	default:
		return fmt.Sprintf("❌ Error: %v", err)
	}
}

func helpText() string {
	return "📚 *DistrictWatch Commands*\n\n" +
		"*Movies*\n" +
		"`/add <url> <name> [city]` — add a movie\n" +
		"`/remove <id>` — remove a movie\n" +
		"`/list` — list all movies\n" +
		"`/enable <id>` / `/disable <id>` — toggle monitoring\n\n" +
		"*Theatres*\n" +
		"`/theatres <id>` — list a movie's theatres\n" +
		"`/addtheatre <id> <name[:tier[:keywords]]>` — add a theatre\n" +
		"`/removetheatre <id> <name>` — remove a theatre\n\n" +
		"*Diagnostics*\n" +
		"`/status` — check and alert counters"
}
