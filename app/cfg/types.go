package cfg

type Cfg struct {
	// HTTP server
	Port    string
	BaseUrl string

	// Storage
	DBPath string

	// Feed processing
	FeedsDir          string
	SchedulerInterval int
	APIAccessKey      string

	// WebSub
	LeaseSeconds     int
	RequireSignature bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
