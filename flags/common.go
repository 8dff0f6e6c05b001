// Package flags catalogues the daemon's CLI flags, grouped by concern so the
// launcher can compose them per command.
package flags

import (
	"time"

	"gopkg.in/urfave/cli.v1"
)

// CommonFlags returns the base set of CLI flags shared across commands.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "datadir",
			Usage: "Data directory for checkpoints and the event database",
			Value: "~/.lpvault",
		},
		cli.StringFlag{
			Name:  "config",
			Usage: "Path to a YAML config file (flags override file values)",
		},
		cli.StringFlag{
			Name:  "log.format",
			Usage: "Log output format (text|json)",
			Value: "text",
		},
		cli.IntFlag{
			Name:  "log.verbosity",
			Usage: "Logging verbosity (0=panic,1=fatal,2=error,3=warn,4=info,5=debug,6=trace)",
			Value: 4,
		},
		cli.StringFlag{
			Name:  "sentry.dsn",
			Usage: "Sentry DSN for error reporting (disabled when empty)",
		},
		cli.DurationFlag{
			Name:  "rpc.timeout",
			Usage: "Timeout applied to external venue calls",
			Value: 30 * time.Second,
		},
	}
}
