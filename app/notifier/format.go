package notifier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/karthikrv/districtwatch/app/monitor"
)

const maxSlotsShown = 6

// FormatBookingAlert renders one grouped booking alert as a Telegram
// Markdown message. Theatres are ordered by tier, then name.
func FormatBookingAlert(alert monitor.BookingAlert) string {
	theatres := make([]monitor.AlertTheatre, len(alert.Theatres))
	copy(theatres, alert.Theatres)
	sort.SliceStable(theatres, func(i, j int) bool {
		if theatres[i].Tier != theatres[j].Tier {
			return theatres[i].Tier < theatres[j].Tier
		}
		return theatres[i].Name < theatres[j].Name
	})

	var b strings.Builder
	b.WriteString("🚨 *BOOKING ALERT* 🚨\n\n")
	b.WriteString("✨ *New availability detected!* ✨\n\n")
	fmt.Fprintf(&b, "🎬 *%s*\n\n", alert.MovieName)

	for i, theatre := range theatres {
		stars := strings.Repeat("⭐", theatre.Tier)
		fmt.Fprintf(&b, "%d. %s *%s*\n", i+1, stars, theatre.Name)

		if theatre.Location != "" {
			fmt.Fprintf(&b, "   📍 _%s_\n", theatre.Location)
		}

		if len(theatre.NewSlots) > 0 {
			shown := theatre.NewSlots
			extra := 0
			if len(shown) > maxSlotsShown {
				extra = len(shown) - maxSlotsShown
				shown = shown[:maxSlotsShown]
			}
			times := strings.Join(shown, ", ")
			if extra > 0 {
				times += fmt.Sprintf(" +%d more", extra)
			}
			fmt.Fprintf(&b, "   🎟 %s\n", times)
		}
	}

	if alert.BookingURL != "" {
		fmt.Fprintf(&b, "\n🔗 [Book now](%s)\n", alert.BookingURL)
	}

	return b.String()
}
