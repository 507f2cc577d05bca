package cfg

// TheatreDefault seeds the theatre list of newly added movies.
type TheatreDefault struct {
	Name     string   `yaml:"name"`
	Tier     int      `yaml:"tier"`
	Keywords []string `yaml:"keywords"`
}

type Cfg struct {
	// State store
	DBPath string

	// HTTP API
	Port         string
	APIAccessKey string

	// Scheduling
	WorkerCount   int
	CheckInterval int // seconds
	CheckTimeout  int // seconds, must outlive the interval

	// Telegram
	TelegramToken       string
	TelegramChatID      string
	CommandPollInterval int // seconds

	// Extraction
	UserAgent        string
	RequestTimeout   int // seconds
	BreakerThreshold int
	BreakerCooldown  int // seconds

	// Default theatre list for newly added movies
	DefaultTheatres []TheatreDefault

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
