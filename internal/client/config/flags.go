package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/fanpulse/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. Only the flags
// handled here are looked at; everything else in args is ignored.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-t", "-i", "-l"})

	fs := flag.NewFlagSet("fanpulse", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the FanPulse API")
	fs.StringVar(&cfg.StoragePath, "d", cfg.StoragePath, "path of the local database")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
	return nil
}
