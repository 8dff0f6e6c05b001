// Package launcher wires the vault daemon together: config, logging, venue
// adapters, the event recorder, and the scheduler, then runs until a signal
// arrives.
package launcher

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-lpvault/adapters"
	"github.com/rony4d/go-lpvault/flags"
	"github.com/rony4d/go-lpvault/integration"
	"github.com/rony4d/go-lpvault/ledger"
	"github.com/rony4d/go-lpvault/recorder"
	"github.com/rony4d/go-lpvault/scheduler"
	"github.com/rony4d/go-lpvault/vault"
)

// Launch parses the command line and runs the daemon until interrupted.
func Launch(args []string) error {
	app := flags.NewApp()
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.VaultFlags()...)
	app.Flags = append(app.Flags, flags.ScheduleFlags()...)
	app.Action = run
	return app.Run(args)
}

func run(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}

	log, err := makeLogger(cfg.Node)
	if err != nil {
		return err
	}

	preset, err := integration.PresetByName(cfg.Vault.Preset, common.HexToAddress(cfg.Vault.Authority))
	if err != nil {
		return err
	}
	applyPoolOverrides(&preset.Rules, cfg.Vault)
	if cfg.Schedule.HarvestCron == "" {
		cfg.Schedule.HarvestCron = preset.HarvestCron
	}
	if cfg.Schedule.CheckpointCron == "" {
		cfg.Schedule.CheckpointCron = preset.CheckpointCron
	}

	source, converter, bank, err := makeVenues(preset.Rules, cfg.Vault, log)
	if err != nil {
		return err
	}

	rec, sink, err := makeRecorder(cfg.Database, log)
	if err != nil {
		return err
	}
	defer rec.Close()

	v := vault.New(preset.Rules, source, converter, bank,
		vault.WithLogger(log),
		vault.WithEventSink(sink),
	)
	log.WithFields(logrus.Fields{
		"preset": preset.Rules.Name,
		"rules":  preset.Rules.String(),
	}).Info("vault configured")

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checkpointPath := filepath.Join(cfg.Node.DataDir, "ledger.ckpt")
	sched := scheduler.New(runCtx, v, preset.Rules.Authority, checkpointPath, cfg.Vault.RPCTimeout, log)
	if err := sched.LoadCheckpoint(); err != nil {
		return err
	}
	if err := sched.RegisterAll(cfg.Schedule.HarvestCron, cfg.Schedule.CheckpointCron); err != nil {
		return err
	}
	sched.Start()
	if cfg.Schedule.HarvestOnStart {
		sched.RunHarvestNow()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.WithField("signal", sig.String()).Info("shutting down")

	cancel()
	sched.Stop()
	if err := sched.WriteCheckpoint(); err != nil {
		log.WithError(err).Error("final checkpoint")
	}
	return nil
}

// makeLogger builds the root logger from the node config, attaching a Sentry
// hook when a DSN is configured.
func makeLogger(cfg NodeConfig) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if cfg.Logging.Verbosity < 0 || cfg.Logging.Verbosity > int(logrus.TraceLevel) {
		return nil, fmt.Errorf("invalid log verbosity %d", cfg.Logging.Verbosity)
	}
	log.SetLevel(logrus.Level(cfg.Logging.Verbosity))

	switch cfg.Logging.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Logging.Format)
	}

	if cfg.Sentry.DSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.Sentry.DSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("sentry hook: %w", err)
		}
		hook.StacktraceConfiguration.Enable = true
		log.AddHook(hook)
	}
	return log, nil
}

// applyPoolOverrides lets CLI/file settings replace individual preset
// addresses without abandoning the preset.
func applyPoolOverrides(rules *vault.Rules, cfg VaultConfig) {
	if cfg.PoolPID != 0 {
		rules.Pool.PID = cfg.PoolPID
	}
	if cfg.LPToken != "" {
		rules.Pool.LPToken = common.HexToAddress(cfg.LPToken)
	}
	if cfg.Venue != "" {
		rules.Pool.StakingVenue = common.HexToAddress(cfg.Venue)
	}
}

// makeVenues builds the three adapter implementations the controller needs.
// The main preset binds real contracts over RPC; the fake preset runs fully
// in memory.
func makeVenues(rules vault.Rules, cfg VaultConfig, log *logrus.Logger) (vault.RewardSource, vault.Converter, vault.AssetBank, error) {
	if rules.Name == "fake" {
		venue := integration.NewFakeVenue(rules, rules.Authority, integration.DefaultFakeVenueConfig())
		log.Info("using in-memory fake venues")
		return venue, venue, venue, nil
	}

	if cfg.KeyHex == "" {
		return nil, nil, nil, fmt.Errorf("preset %q needs --key for the custody account", rules.Name)
	}
	key, err := crypto.HexToECDSA(cfg.KeyHex)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse custody key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(rules.NetworkID))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("make transactor: %w", err)
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	if cfg.RewardPool == "" {
		return nil, nil, nil, fmt.Errorf("preset %q needs --pool.rewardpool", rules.Name)
	}
	if cfg.Router == "" {
		return nil, nil, nil, fmt.Errorf("preset %q needs --router", rules.Name)
	}

	source := adapters.NewBooster(client, opts,
		rules.Pool.StakingVenue,
		common.HexToAddress(cfg.RewardPool),
		rules.Pool.PID,
		rules.Pool.LPToken,
		[ledger.RewardKinds]common.Address{
			ledger.PrimaryReward:   rules.RewardTokens[ledger.PrimaryReward],
			ledger.SecondaryReward: rules.RewardTokens[ledger.SecondaryReward],
		},
	)
	converter := adapters.NewZapRouter(client, opts, common.HexToAddress(cfg.Router), rules.Pool.LPToken)
	bank := adapters.NewERC20Bank(client, opts)

	log.WithFields(logrus.Fields{
		"rpc":     cfg.RPCURL,
		"account": opts.From.Hex(),
	}).Info("bound on-chain venues")
	return source, converter, bank, nil
}

// makeRecorder opens the event recorder configured in the database section.
// An empty path disables recording.
func makeRecorder(cfg DatabaseConfig, log *logrus.Logger) (recorder.Recorder, vault.EventSink, error) {
	if cfg.SQLitePath == "" {
		return recorder.NoopRecorder{}, vault.NoopSink{}, nil
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open event database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath).Info("event recorder enabled")
	return rec, recorder.NewSink(rec, log), nil
}
