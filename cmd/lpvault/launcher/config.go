package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"
)

// Config aggregates every subsystem's configuration the launcher needs.
type Config struct {
	Node     NodeConfig     `yaml:"node"`
	Vault    VaultConfig    `yaml:"vault"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Database DatabaseConfig `yaml:"database"`
}

// NodeConfig holds process-level settings.
type NodeConfig struct {
	DataDir string        `yaml:"datadir"`
	Logging LoggingConfig `yaml:"logging"`
	Sentry  SentryConfig  `yaml:"sentry"`
}

// LoggingConfig controls log verbosity and format.
type LoggingConfig struct {
	Verbosity int    `yaml:"verbosity"`
	Format    string `yaml:"format"`
}

// SentryConfig enables error reporting when a DSN is set.
type SentryConfig struct {
	DSN string `yaml:"dsn"`
}

// VaultConfig selects the pool, venues, and custody key.
type VaultConfig struct {
	Preset     string        `yaml:"preset"`
	RPCURL     string        `yaml:"rpc_url"`
	RPCTimeout time.Duration `yaml:"rpc_timeout"`
	PoolPID    uint64        `yaml:"pool_pid"`
	LPToken    string        `yaml:"lp_token"`
	Venue      string        `yaml:"venue"`
	RewardPool string        `yaml:"reward_pool"`
	Router     string        `yaml:"router"`
	Authority  string        `yaml:"authority"`
	KeyHex     string        `yaml:"key_hex"`
}

// ScheduleConfig tunes the periodic jobs.
type ScheduleConfig struct {
	HarvestCron    string `yaml:"harvest_cron"`
	CheckpointCron string `yaml:"checkpoint_cron"`
	HarvestOnStart bool   `yaml:"harvest_on_start"`
}

// DatabaseConfig locates the event recorder database.
type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// MakeAllConfigs merges defaults, an optional YAML config file, then CLI
// flag overrides into a single config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if file := ctx.String("config"); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", file, err)
		}
	}

	applyCLIOverrides(ctx, &cfg)

	cfg.Node.DataDir = resolvePath(cfg.Node.DataDir)
	if err := ensureDir(cfg.Node.DataDir); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if ctx.IsSet("datadir") {
		cfg.Node.DataDir = ctx.String("datadir")
	}
	if ctx.IsSet("log.format") {
		cfg.Node.Logging.Format = ctx.String("log.format")
	}
	if ctx.IsSet("log.verbosity") {
		cfg.Node.Logging.Verbosity = ctx.Int("log.verbosity")
	}
	if ctx.IsSet("sentry.dsn") {
		cfg.Node.Sentry.DSN = ctx.String("sentry.dsn")
	}

	if ctx.IsSet("preset") {
		cfg.Vault.Preset = ctx.String("preset")
	}
	if ctx.IsSet("rpc.url") {
		cfg.Vault.RPCURL = ctx.String("rpc.url")
	}
	if ctx.IsSet("rpc.timeout") {
		cfg.Vault.RPCTimeout = ctx.Duration("rpc.timeout")
	}
	if ctx.IsSet("pool.pid") {
		cfg.Vault.PoolPID = ctx.Uint64("pool.pid")
	}
	if ctx.IsSet("pool.lptoken") {
		cfg.Vault.LPToken = ctx.String("pool.lptoken")
	}
	if ctx.IsSet("pool.venue") {
		cfg.Vault.Venue = ctx.String("pool.venue")
	}
	if ctx.IsSet("pool.rewardpool") {
		cfg.Vault.RewardPool = ctx.String("pool.rewardpool")
	}
	if ctx.IsSet("router") {
		cfg.Vault.Router = ctx.String("router")
	}
	if ctx.IsSet("authority") {
		cfg.Vault.Authority = ctx.String("authority")
	}
	if ctx.IsSet("key") {
		cfg.Vault.KeyHex = ctx.String("key")
	}

	if ctx.IsSet("harvest.cron") {
		cfg.Schedule.HarvestCron = ctx.String("harvest.cron")
	}
	if ctx.IsSet("checkpoint.cron") {
		cfg.Schedule.CheckpointCron = ctx.String("checkpoint.cron")
	}
	if ctx.IsSet("harvest.onstart") {
		cfg.Schedule.HarvestOnStart = ctx.Bool("harvest.onstart")
	}
	if ctx.IsSet("db.path") {
		cfg.Database.SQLitePath = ctx.String("db.path")
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

// GuessWorkDir returns the current working directory, falling back to ".".
func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// GuessHomeDir returns the user's home directory, falling back to ".".
func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
