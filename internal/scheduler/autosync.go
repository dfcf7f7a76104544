// Package scheduler owns the single recurring auto-sync timer. The
// controller is a two-state machine: disarmed (no timer) or armed at the
// stored interval. Settings changes always route through Apply, which rearms
// or disarms as needed; arming replaces any previous timer.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marksync/agent/internal/domain"
	"github.com/marksync/agent/internal/logger"
	"github.com/marksync/agent/internal/settings"
)

// timerName labels the one timer this controller may own.
const timerName = "auto-sync"

// BookmarkSyncer runs one sync exchange.
type BookmarkSyncer interface {
	Sync(ctx context.Context, meta domain.SyncMetadata) (domain.SyncOutcome, error)
}

// Controller derives the activation policy from stored settings and drives
// the periodic sync.
type Controller struct {
	settings *settings.Store
	syncer   BookmarkSyncer
	logger   logger.Logger

	mu       sync.Mutex
	stopCh   chan struct{}
	interval time.Duration
}

// NewController creates a disarmed controller.
func NewController(prefs *settings.Store, syncer BookmarkSyncer, log logger.Logger) *Controller {
	return &Controller{
		settings: prefs,
		syncer:   syncer,
		logger:   log,
	}
}

// Apply is the transition rule. It reads the current settings and moves the
// controller into the matching state: disabled cancels any running timer
// (canceling an absent one is a no-op); enabled (re)arms at the stored
// interval, replacing the previous timer. Called on process start and after
// every settings change. ctx scopes the settings read only; an armed timer
// is detached from it and runs until disarmed.
//
// Apply must not be called concurrently with itself; the command handler and
// startup path both run it from the serving goroutine's call chain, one
// command at a time.
func (c *Controller) Apply(ctx context.Context) error {
	prefs, err := c.settings.Sync(ctx)
	if err != nil {
		return fmt.Errorf("failed to read sync settings: %w", err)
	}

	if !prefs.Enabled {
		c.disarm()
		return nil
	}

	c.arm(ctx, prefs.Interval())
	return nil
}

// State reports whether the timer is armed and at what interval.
func (c *Controller) State() (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCh != nil, c.interval
}

// Stop disarms the controller. Safe to call repeatedly.
func (c *Controller) Stop() {
	c.disarm()
}

func (c *Controller) arm(ctx context.Context, interval time.Duration) {
	c.disarm()

	c.mu.Lock()
	stopCh := make(chan struct{})
	c.stopCh = stopCh
	c.interval = interval
	c.mu.Unlock()

	c.logger.Info("auto-sync armed",
		logger.String("timer", timerName),
		logger.Duration("interval", interval))

	// The timer must outlive the caller: Apply runs on request-scoped
	// contexts from the command handler, and net/http cancels those the
	// moment the response is written. Disarm or Stop ends the timer.
	go c.run(context.WithoutCancel(ctx), stopCh, interval)
}

func (c *Controller) disarm() {
	c.mu.Lock()
	stopCh := c.stopCh
	c.stopCh = nil
	c.interval = 0
	c.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	c.logger.Info("auto-sync disarmed", logger.String("timer", timerName))
}

func (c *Controller) run(ctx context.Context, stopCh chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.fire(ctx)
		case <-stopCh:
			return
		}
	}
}

// fire runs one scheduled sync. Failures are logged and recorded, never
// propagated: the timer keeps firing regardless of individual outcomes.
func (c *Controller) fire(ctx context.Context) {
	meta := c.settings.Metadata(ctx)

	outcome, err := c.syncer.Sync(ctx, meta)
	c.settings.RecordOutcome(ctx, outcome, err)

	if err != nil {
		c.logger.Error("scheduled sync failed",
			logger.String("timer", timerName),
			logger.Error(err))
		return
	}

	c.logger.Info("scheduled sync completed",
		logger.String("timer", timerName),
		logger.Int("inserted", outcome.Inserted),
		logger.Int("updated", outcome.Updated))
}
