package monitor

// Showtime is one bookable screening slot as read off a booking page.
type Showtime struct {
	Time      string
	Format    string
	Available bool
}

// TheatreResult is one theatre's portion of an extraction. OK is false
// when this theatre's data could not be read; its showtimes are then
// meaningless and must not touch the stored baseline.
type TheatreResult struct {
	Name      string
	Location  string
	Tier      int
	OK        bool
	Showtimes []Showtime
}

// ExtractionResult is one full check of one movie at one point in time.
// It is consumed once and never persisted verbatim.
type ExtractionResult struct {
	MovieID    string
	BookingURL string
	Theatres   []TheatreResult
}

type Action int

const (
	NoAction Action = iota
	Alert
)

// Decision is the detector's verdict for a single theatre.
type Decision struct {
	Action   Action
	NewSlots []string // Slots not present in the previous baseline
	AllSlots []string // Full slot set of this read, for the snapshot commit
}

// AlertTheatre is one theatre's entry in an outbound booking alert.
type AlertTheatre struct {
	Name     string
	Tier     int
	Location string
	NewSlots []string
}

// BookingAlert groups every newly-available theatre of one movie into a
// single outbound notification.
type BookingAlert struct {
	MovieID    string
	MovieName  string
	BookingURL string
	Theatres   []AlertTheatre
}
