package workers

import (
	"context"
	"time"

	"smartdalali_backend/internal/logger"
	"smartdalali_backend/internal/repositories"
)

// PaymentWorker runs the periodic maintenance tasks of the payment domain:
// failing payments stuck in pending and deactivating lapsed subscriptions.
type PaymentWorker struct {
	payments     repositories.PaymentRepository
	agents       repositories.AgentProfileRepository
	staleWindow  time.Duration
	sweepEvery   time.Duration
	expiresEvery time.Duration
}

func NewPaymentWorker(
	payments repositories.PaymentRepository,
	agents repositories.AgentProfileRepository,
	staleWindow time.Duration,
) *PaymentWorker {
	return &PaymentWorker{
		payments:     payments,
		agents:       agents,
		staleWindow:  staleWindow,
		sweepEvery:   15 * time.Minute,
		expiresEvery: 6 * time.Hour,
	}
}

// Start launches the background loops. They stop when ctx is cancelled.
func (w *PaymentWorker) Start(ctx context.Context) {
	go w.sweepStalePending(ctx)
	go w.deactivateExpiredSubscriptions(ctx)
}

// sweepStalePending fails payments that never received a gateway callback.
// A pending payment older than the stale window will never complete; the
// gateway gives up long before that.
func (w *PaymentWorker) sweepStalePending(ctx context.Context) {
	ticker := time.NewTicker(w.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("payment worker stopped", "task", "stale_pending_sweep")
			return
		case <-ticker.C:
			w.sweepStalePendingOnce(time.Now())
		}
	}
}

func (w *PaymentWorker) sweepStalePendingOnce(now time.Time) {
	cutoff := now.Add(-w.staleWindow)
	n, err := w.payments.FailStalePending(cutoff)
	logger.WorkerLog("payment_worker", "stale_pending_sweep", err)
	if err == nil && n > 0 {
		logger.Info("stale pending payments failed", "count", n)
	}
}

func (w *PaymentWorker) deactivateExpiredSubscriptions(ctx context.Context) {
	ticker := time.NewTicker(w.expiresEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("payment worker stopped", "task", "subscription_expiry")
			return
		case <-ticker.C:
			w.deactivateExpiredOnce(time.Now())
		}
	}
}

func (w *PaymentWorker) deactivateExpiredOnce(now time.Time) {
	n, err := w.agents.DeactivateExpired(now)
	logger.WorkerLog("payment_worker", "subscription_expiry", err)
	if err == nil && n > 0 {
		logger.Info("expired agent subscriptions deactivated", "count", n)
	}
}
