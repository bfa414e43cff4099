package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Push hub configuration
	HubEndpoint string
	HubUsername string
	HubPassword string
	HubSecret   string
	CallbackURL string

	// Application configuration
	Port         string
	SeedFile     string
	WorkerCount  int
	PollInterval int
	APIAccessKey string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
