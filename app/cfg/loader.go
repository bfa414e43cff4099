package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./rss-inbox.db" description:"Path to the SQLite database file"`

	// Push hub configuration
	HubEndpoint string `long:"hub-endpoint" env:"HUB_ENDPOINT" required:"true" description:"Push hub subscription endpoint URL"`
	HubUsername string `long:"hub-username" env:"HUB_USERNAME" required:"true" description:"Username for authenticating against the push hub"`
	HubPassword string `long:"hub-password" env:"HUB_PASSWORD" required:"true" description:"Password for authenticating against the push hub"`
	HubSecret   string `long:"hub-secret" env:"HUB_SECRET" required:"true" description:"Shared secret sent with subscription requests"`
	CallbackURL string `long:"callback-url" env:"CALLBACK_URL" required:"true" description:"Public callback URL the hub delivers content to (e.g., https://inbox.example.com/push)"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	SeedFile     string `long:"seed-file" env:"SEED_FILE" description:"Optional YAML file with feeds to register at startup"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for feed fetching"`
	PollInterval int    `long:"poll-interval" env:"POLL_INTERVAL" default:"900" description:"Interval between poll fan-outs in seconds (0 disables periodic polling)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key guarding the admin endpoints (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RSS Inbox/1.0" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:       raw.DBPath,
		HubEndpoint:  raw.HubEndpoint,
		HubUsername:  raw.HubUsername,
		HubPassword:  raw.HubPassword,
		HubSecret:    raw.HubSecret,
		CallbackURL:  raw.CallbackURL,
		Port:         raw.Port,
		SeedFile:     raw.SeedFile,
		WorkerCount:  raw.WorkerCount,
		PollInterval: raw.PollInterval,
		APIAccessKey: raw.APIAccessKey,
		UserAgent:    raw.UserAgent,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}
