package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hibro315/smart-pm25-buddy-sub001/internal/exposure"
)

// ErrSyncInFlight is returned when a pass is requested while another is
// already running. Triggers are dropped, not queued, so two passes can
// never race an upsert on the same day key.
var ErrSyncInFlight = errors.New("sync pass already in flight")

// Config holds coordinator configuration.
type Config struct {
	// UserID keys remote upserts.
	UserID string

	// Interval is the periodic sync cadence. Default: 5 minutes.
	Interval time.Duration

	// Grace is how long a confirmed record survives locally before the
	// purge sweep may remove it. Must be at least one sync interval so a
	// slow confirmation cannot race a local delete. Default: Interval.
	Grace time.Duration

	// CallTimeout bounds one remote upsert. Default: 10 seconds.
	CallTimeout time.Duration

	// InitialBackoff is the first per-record retry delay after a failed
	// upsert. Default: 30 seconds.
	InitialBackoff time.Duration

	// MaxBackoff caps the per-record retry delay. Default: 1 hour.
	MaxBackoff time.Duration

	// PendingAfterAttempts is how many failed attempts a record needs
	// before it counts toward the user-visible pending indicator.
	// Default: 3.
	PendingAfterAttempts int
}

func (c Config) withDefaults() Config {
	if c.Interval == 0 {
		c.Interval = 5 * time.Minute
	}
	if c.Grace < c.Interval {
		c.Grace = c.Interval
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 30 * time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = time.Hour
	}
	if c.PendingAfterAttempts == 0 {
		c.PendingAfterAttempts = 3
	}
	return c
}

// Result summarizes one sync pass.
type Result struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Coordinator drains unsynced records to the remote backend. All triggers
// funnel into one bounded channel consumed by a single loop, which gives
// the one-pass-at-a-time rule its implementation.
type Coordinator struct {
	store  exposure.Store
	remote Remote
	config Config
	logger zerolog.Logger

	// now is swappable for tests.
	now func() time.Time

	online   atomic.Bool
	inFlight atomic.Bool
	triggers chan struct{}

	purgeMu    sync.Mutex
	purgeTimer *time.Timer
}

// NewCoordinator creates a sync coordinator. The device starts offline
// until connectivity is reported.
func NewCoordinator(store exposure.Store, remote Remote, cfg Config, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		remote:   remote,
		config:   cfg.withDefaults(),
		logger:   logger.With().Str("component", "syncer").Logger(),
		now:      time.Now,
		triggers: make(chan struct{}, 1),
	}
}

// SetOnline records the current connectivity state. Regaining connectivity
// fires an immediate sync request.
func (c *Coordinator) SetOnline(online bool) {
	was := c.online.Swap(online)
	if online && !was {
		c.logger.Info().Msg("connectivity regained, requesting sync")
		c.Kick()
	}
}

// Online reports the last known connectivity state.
func (c *Coordinator) Online() bool { return c.online.Load() }

// Kick requests a sync pass. Non-blocking: if a request is already queued
// or a pass is in flight, the trigger is dropped.
func (c *Coordinator) Kick() {
	select {
	case c.triggers <- struct{}{}:
	default:
	}
}

// Run consumes sync triggers until the context is cancelled. The periodic
// timer only fires a pass while online.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()
	defer c.stopPurgeTimer()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.online.Load() {
				c.Kick()
			}
		case <-c.triggers:
			result, err := c.SyncOnce(ctx)
			if err != nil && !errors.Is(err, ErrSyncInFlight) {
				c.logger.Error().Err(err).Msg("sync pass failed")
				continue
			}
			if result.Succeeded > 0 {
				c.schedulePurge(ctx)
			}
		}
	}
}

// SyncOnce runs one sync pass: snapshot the due unsynced records, upsert
// each, and mark the successes. A per-record failure leaves that record
// unsynced with a backoff and moves on; it never blocks the rest.
func (c *Coordinator) SyncOnce(ctx context.Context) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrSyncInFlight
	}
	defer c.inFlight.Store(false)

	records, err := c.store.ListUnsynced(ctx, c.now())
	if err != nil {
		return Result{}, err
	}

	result := Result{Attempted: len(records)}
	for _, rec := range records {
		if err := c.syncRecord(ctx, rec); err != nil {
			result.Failed++
			continue
		}
		result.Succeeded++
	}

	c.logger.Info().
		Int("attempted", result.Attempted).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("sync pass completed")

	return result, nil
}

func (c *Coordinator) syncRecord(ctx context.Context, rec exposure.Record) error {
	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	if err := c.remote.UpsertExposureRecord(callCtx, c.config.UserID, rec); err != nil {
		next := c.now().Add(c.backoffFor(rec.SyncAttempts))
		if markErr := c.store.MarkAttempt(ctx, rec.ID, next); markErr != nil {
			c.logger.Error().Err(markErr).Str("record", rec.ID).Msg("failed to record sync attempt")
		}
		c.logger.Warn().Err(err).
			Str("record", rec.ID).
			Str("day", rec.DayKey).
			Time("next_attempt", next).
			Msg("upsert failed, record stays unsynced")
		return err
	}

	return c.store.MarkSynced(ctx, rec.ID, c.now())
}

// backoffFor doubles the delay per failed attempt, capped at MaxBackoff.
func (c *Coordinator) backoffFor(attempts int) time.Duration {
	d := c.config.InitialBackoff
	for i := 0; i < attempts && d < c.config.MaxBackoff; i++ {
		d *= 2
	}
	if d > c.config.MaxBackoff {
		d = c.config.MaxBackoff
	}
	return d
}

// Pending reports how many records have exceeded the attempt threshold and
// should surface as a user-visible pending-sync indicator. Transient
// failures below the threshold stay invisible.
func (c *Coordinator) Pending(ctx context.Context) (int, error) {
	records, err := c.store.ListUnsynced(ctx, c.now().Add(c.config.MaxBackoff))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range records {
		if rec.SyncAttempts >= c.config.PendingAfterAttempts {
			n++
		}
	}
	return n, nil
}

// schedulePurge arms a delayed purge of confirmed records. The grace window
// is at least one sync interval, so a slow remote confirmation can never
// race a local delete.
func (c *Coordinator) schedulePurge(ctx context.Context) {
	c.purgeMu.Lock()
	defer c.purgeMu.Unlock()

	if c.purgeTimer != nil {
		c.purgeTimer.Stop()
	}
	c.purgeTimer = time.AfterFunc(c.config.Grace, func() {
		if ctx.Err() != nil {
			return
		}
		purged, err := c.store.PurgeSynced(ctx, c.config.Grace, c.now())
		if err != nil {
			c.logger.Error().Err(err).Msg("purge sweep failed")
			return
		}
		if purged > 0 {
			c.logger.Debug().Int("purged", purged).Msg("purged synced records")
		}
	})
}

func (c *Coordinator) stopPurgeTimer() {
	c.purgeMu.Lock()
	defer c.purgeMu.Unlock()
	if c.purgeTimer != nil {
		c.purgeTimer.Stop()
	}
}
