package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// os.Args is filtered with flagx.FilterArgs so that positional commands and
// the -c flag do not reach this flag set.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-d", "-r", "-l", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "base URL of the auth API")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.SessionDir, "r", cfg.SessionDir, "runtime directory for the session bundle")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
