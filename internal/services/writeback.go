package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/internal/infrastructure/journal"
	"github.com/signalrelay/authgate/repository"
	"github.com/signalrelay/authgate/usecase"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// WritebackConfig controls how frequently the journal is drained.
type WritebackConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// Writeback replays journaled profile writes against the primary store once
// it is reachable again.
type Writeback struct {
	journal *journal.Store
	monitor ConnectionHealth
	store   repository.ProfileStore
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     WritebackConfig
}

func NewWriteback(
	jrn *journal.Store,
	monitor ConnectionHealth,
	store repository.ProfileStore,
	logger *zap.Logger,
	cfg WritebackConfig,
) *Writeback {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	wb := &Writeback{
		journal: jrn,
		monitor: monitor,
		store:   store,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = wb.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := wb.Drain(ctx); err != nil {
			wb.logger.Error("journal drain failed", zap.Error(err))
		}
	})

	return wb
}

// Start launches the cron scheduler.
func (wb *Writeback) Start() {
	if wb == nil || wb.cron == nil {
		return
	}
	wb.cron.Start()
	wb.logger.Info("writeback started")
}

// Stop gracefully stops the scheduler.
func (wb *Writeback) Stop(ctx context.Context) {
	if wb == nil || wb.cron == nil {
		return
	}
	stopCtx := wb.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	wb.logger.Info("writeback stopped")
}

// JournalProfile records a profile write for later replay.
func (wb *Writeback) JournalProfile(ctx context.Context, profile *domain.Profile) error {
	if wb == nil || wb.journal == nil || profile == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return wb.journal.Append(journal.Entry{
		UserID:  profile.ID,
		Profile: payload,
	})
}

var _ usecase.WriteJournal = (*Writeback)(nil)

// Drain replays journaled entries synchronously.
func (wb *Writeback) Drain(ctx context.Context) error {
	if wb == nil || wb.journal == nil {
		return nil
	}
	if wb.monitor != nil && !wb.monitor.IsOnline() {
		wb.logger.Debug("skipping journal drain (store offline)")
		return nil
	}

	entries, err := wb.journal.Batch(wb.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := wb.replay(ctx, entry); err != nil {
			wb.logger.Error("failed to replay journal entry",
				zap.String("entry_id", entry.ID),
				zap.String("user_id", entry.UserID),
				zap.Error(err))

			entry.Retries++
			if entry.Retries >= wb.cfg.MaxRetries {
				wb.logger.Warn("dropping journal entry (max retries reached)", zap.String("entry_id", entry.ID))
				_ = wb.journal.Remove(entry)
				continue
			}

			if err := wb.journal.Remove(entry); err != nil {
				wb.logger.Warn("failed to remove journal entry", zap.Error(err))
			}
			if err := wb.journal.Requeue(entry); err != nil {
				wb.logger.Error("failed to requeue journal entry", zap.Error(err))
			}
			continue
		}

		if err := wb.journal.Remove(entry); err != nil {
			wb.logger.Warn("failed to purge replayed journal entry", zap.Error(err))
		}
	}
	return nil
}

func (wb *Writeback) replay(ctx context.Context, entry journal.Entry) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var profile domain.Profile
	if err := json.Unmarshal(entry.Profile, &profile); err != nil {
		return err
	}
	return wb.store.Put(ctx, &profile)
}
