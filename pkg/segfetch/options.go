package segfetch

import (
	"net/http"

	"segfetch/internal/config"
)

// ClientOptions configures the embedded engine.
type ClientOptions struct {
	// Settings replaces settings.yaml when non-nil.
	Settings *config.Settings
	// StatePath overrides the history database location.
	StatePath string
	// LogsDir overrides where verbose debug logs are written.
	LogsDir string
	Verbose bool
	// DisableHistory skips opening the history database.
	DisableHistory bool
	// BusWorkers sets the number of event dispatchers (0 picks one per CPU).
	BusWorkers int
	// Transport replaces the HTTP transport (tests, custom dialers).
	Transport http.RoundTripper
}
