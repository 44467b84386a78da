// Package jobs runs periodic background checks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"greencharge/backend/services/reservations-service/internal/repository"
)

const (
	DefaultSchedule = "@every 5m"
	auditTimeout    = 30 * time.Second
)

// SlotAuditor compares slot counters with active bookings.
type SlotAuditor interface {
	AuditSlots(ctx context.Context) ([]repository.SlotUsage, error)
}

// Reconciler periodically reports resources whose available slots disagree with their
// active bookings. It only reports; counters are never rewritten.
type Reconciler struct {
	auditor  SlotAuditor
	schedule string
	logger   *zap.Logger
	cron     *cron.Cron
}

// NewReconciler builds reconciler. An empty schedule falls back to DefaultSchedule.
func NewReconciler(auditor SlotAuditor, schedule string, logger *zap.Logger) *Reconciler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		auditor:  auditor,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// RunOnce audits every resource and returns how many have drifted.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	drifted, err := r.auditor.AuditSlots(ctx)
	if err != nil {
		return 0, err
	}
	for _, u := range drifted {
		r.logger.Warn("slot counter drift",
			zap.String("resource_id", u.ResourceID.String()),
			zap.Int("total_slots", u.TotalSlots),
			zap.Int("available_slots", u.AvailableSlots),
			zap.Int("active_bookings", u.ActiveBookings),
			zap.Int("drift", u.Drift()),
		)
	}
	return len(drifted), nil
}

// Start schedules the audit. Runs stop when ctx is cancelled or Stop is called.
func (r *Reconciler) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		runCtx, cancel := context.WithTimeout(ctx, auditTimeout)
		defer cancel()
		if _, err := r.RunOnce(runCtx); err != nil {
			r.logger.Error("slot audit failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("jobs: schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.logger.Info("slot audit scheduled", zap.String("schedule", r.schedule))
	return nil
}

// Stop halts scheduling and waits for a running audit to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}
