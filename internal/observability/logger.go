package observability

import (
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/mgw2168/2019-nCoV/internal/config"
)

// NewLogger creates the process logger from config, tagged with the service
// name, and installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", "ncov")
	slog.SetDefault(logger)
	return logger
}
