package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// VaultFlags returns flags selecting the pool, the venues, and the custody
// account.
func VaultFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "preset",
			Usage: "Named vault preset (main, fake)",
			Value: "fake",
		},
		cli.StringFlag{
			Name:  "rpc.url",
			Usage: "JSON-RPC endpoint of the chain the venues live on",
			Value: "http://127.0.0.1:8545",
		},
		cli.Uint64Flag{
			Name:  "pool.pid",
			Usage: "Pool index inside the staking venue",
		},
		cli.StringFlag{
			Name:  "pool.lptoken",
			Usage: "LP token address (overrides the preset)",
		},
		cli.StringFlag{
			Name:  "pool.venue",
			Usage: "Staking venue address (overrides the preset)",
		},
		cli.StringFlag{
			Name:  "pool.rewardpool",
			Usage: "Base reward pool address for the pool",
		},
		cli.StringFlag{
			Name:  "router",
			Usage: "Conversion router address",
		},
		cli.StringFlag{
			Name:  "authority",
			Usage: "Authority address for privileged operations",
		},
		cli.StringFlag{
			Name:  "key",
			Usage: "Hex private key of the custody account (main preset only)",
		},
	}
}

// ScheduleFlags returns flags tuning the periodic jobs.
func ScheduleFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "harvest.cron",
			Usage: "Cron expression (with seconds) for the auto-harvest job",
			Value: "0 */30 * * * *",
		},
		cli.StringFlag{
			Name:  "checkpoint.cron",
			Usage: "Cron expression (with seconds) for ledger checkpoints",
			Value: "0 */5 * * * *",
		},
		cli.BoolFlag{
			Name:  "harvest.onstart",
			Usage: "Run one harvest immediately at startup",
		},
		cli.StringFlag{
			Name:  "db.path",
			Usage: "SQLite path for the event recorder (empty disables recording)",
		},
	}
}
