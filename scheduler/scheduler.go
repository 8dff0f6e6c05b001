// Package scheduler runs the vault daemon's periodic jobs: pulling rewards
// from the external source so accumulators stay fresh even without user
// traffic, and checkpointing the ledger to disk.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-lpvault/vault"
)

// Scheduler owns the cron runner and the job wiring.
type Scheduler struct {
	cron           *cron.Cron
	vault          *vault.Vault
	authority      common.Address
	checkpointPath string
	callTimeout    time.Duration
	log            *logrus.Entry
	ctx            context.Context
}

// New creates a scheduler driving the given vault. The authority address is
// used for the privileged GetRewards call; checkpointPath may be empty to
// disable checkpointing. callTimeout bounds each venue-touching job run
// (zero disables the bound).
func New(ctx context.Context, v *vault.Vault, authority common.Address, checkpointPath string, callTimeout time.Duration, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:           cron.New(cron.WithSeconds()),
		vault:          v,
		authority:      authority,
		checkpointPath: checkpointPath,
		callTimeout:    callTimeout,
		log:            log.WithField("component", "scheduler"),
		ctx:            ctx,
	}
}

// callCtx derives the context for one venue-touching job run, applying the
// configured call timeout when set.
func (s *Scheduler) callCtx() (context.Context, context.CancelFunc) {
	if s.callTimeout > 0 {
		return context.WithTimeout(s.ctx, s.callTimeout)
	}
	return context.WithCancel(s.ctx)
}

// RegisterAll registers the harvest and checkpoint jobs with the given cron
// expressions (six-field, with seconds).
func (s *Scheduler) RegisterAll(harvestCron, checkpointCron string) error {
	if _, err := s.cron.AddFunc(harvestCron, s.harvestTask); err != nil {
		return fmt.Errorf("register harvest task: %w", err)
	}
	if s.checkpointPath != "" {
		if _, err := s.cron.AddFunc(checkpointCron, s.checkpointTask); err != nil {
			return fmt.Errorf("register checkpoint task: %w", err)
		}
	}
	return nil
}

// Start starts the cron runner.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron runner and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunHarvestNow triggers the harvest job immediately (manual trigger /
// run-on-start).
func (s *Scheduler) RunHarvestNow() {
	s.harvestTask()
}

func (s *Scheduler) harvestTask() {
	ctx, cancel := s.callCtx()
	defer cancel()

	pendingPrimary, err := s.vault.PendingPrimaryReward(ctx)
	if err != nil {
		s.log.WithError(err).Error("query pending reward")
		return
	}
	if err := s.vault.GetRewards(ctx, s.authority); err != nil {
		s.log.WithError(err).Error("harvest")
		return
	}
	info := s.vault.PoolInfo()
	s.log.WithFields(logrus.Fields{
		"pendingBefore": pendingPrimary,
		"primary":       info.LastHarvest[0],
		"secondary":     info.LastHarvest[1],
		"totalStaked":   info.TotalStaked,
	}).Info("harvested")
}

func (s *Scheduler) checkpointTask() {
	if err := s.WriteCheckpoint(); err != nil {
		s.log.WithError(err).Error("checkpoint")
	}
}

// WriteCheckpoint snapshots the ledger and writes it atomically
// (temp file + rename) so a crash can never leave a torn checkpoint.
func (s *Scheduler) WriteCheckpoint() error {
	raw, err := s.vault.LedgerSnapshot()
	if err != nil {
		return fmt.Errorf("snapshot ledger: %w", err)
	}

	tmp := s.checkpointPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.checkpointPath), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.checkpointPath); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	s.log.WithField("bytes", len(raw)).Debug("checkpoint written")
	return nil
}

// LoadCheckpoint restores the vault's ledger from the checkpoint file, if
// one exists. A missing file is not an error: the vault starts empty.
func (s *Scheduler) LoadCheckpoint() error {
	raw, err := os.ReadFile(s.checkpointPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read checkpoint: %w", err)
	}
	if err := s.vault.RestoreLedger(raw); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}
	s.log.WithField("bytes", len(raw)).Info("ledger restored from checkpoint")
	return nil
}
