// Package funding parses funding service flags and launches the service.
package funding

import (
	"context"
	"flag"
	"time"

	server "github.com/louisbranch/tranche.fund/internal/funding/app"
	entrypoint "github.com/louisbranch/tranche.fund/internal/platform/cmd"
)

// Config holds funding command configuration.
type Config struct {
	DBPath            string        `env:"TRANCHE_FUND_FUNDING_DB_PATH" envDefault:"data/funding.db"`
	DispatchInterval  time.Duration `env:"TRANCHE_FUND_FUNDING_DISPATCH_INTERVAL" envDefault:"5s"`
	DispatchBatchSize int           `env:"TRANCHE_FUND_FUNDING_DISPATCH_BATCH_SIZE" envDefault:"50"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the funding SQLite database")
	fs.DurationVar(&cfg.DispatchInterval, "dispatch-interval", cfg.DispatchInterval, "How often to drain pending funding events")
	fs.IntVar(&cfg.DispatchBatchSize, "dispatch-batch-size", cfg.DispatchBatchSize, "Maximum events delivered per drain pass")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the funding service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceFunding, func(context.Context) error {
		return server.Run(ctx, server.Options{
			DBPath:            cfg.DBPath,
			DispatchInterval:  cfg.DispatchInterval,
			DispatchBatchSize: cfg.DispatchBatchSize,
		})
	})
}
