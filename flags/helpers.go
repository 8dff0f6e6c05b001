package flags

import (
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

// NewApp creates the CLI application skeleton for the vault daemon. The
// launcher fills in the action and flag set.
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "lpvault"
	app.Usage = "LP yield-aggregation vault daemon"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	return app
}
