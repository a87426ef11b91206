package sched

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"realestate-payments/internal/domain/ports/repository"
	"realestate-payments/internal/infra/logging"
	"realestate-payments/internal/infra/metrics"
	"realestate-payments/internal/infra/worker"
	"realestate-payments/internal/usecase"
)

// PaymentReconciler periodically asks the provider about stale pending payments that
// already carry a provider payment id. It covers webhooks that never arrived or
// failed after the provider stopped retrying.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	subs       usecase.SubscriptionUseCase
	payments   repository.PaymentRepository
	interval   time.Duration
	staleAfter time.Duration
	batch      int
	pool       *worker.Pool
	now        func() time.Time
	log        *zerolog.Logger
}

func NewPaymentReconciler(
	uc usecase.PaymentUseCase,
	subs usecase.SubscriptionUseCase,
	payments repository.PaymentRepository,
	interval, staleAfter time.Duration,
	batch, concurrency int,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if batch <= 0 {
		batch = 200
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		uc:         uc,
		subs:       subs,
		payments:   payments,
		interval:   interval,
		staleAfter: staleAfter,
		batch:      batch,
		pool:       worker.NewPool(max(concurrency, 1), &l),
		now:        time.Now,
		log:        &l,
	}
}

// Run ticks until ctx is cancelled.
func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("Starting payment reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-t.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce reconciles one batch in parallel and refreshes the subscription gauges.
// It returns how many payments reached a final status.
func (w *PaymentReconciler) RunOnce(ctx context.Context) int {
	cutoff := w.now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingWithExternalID(ctx, nil, cutoff, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale pending payments")
		return 0
	}

	var resolved atomic.Int64
	tasks := make([]worker.Task, 0, len(pending))
	for _, p := range pending {
		p := p // per-iteration copy; module targets go 1.21 loop semantics
		tasks = append(tasks, func(ctx context.Context) error {
			got, err := w.uc.Reconcile(ctx, p)
			if err != nil {
				metrics.IncReconciled("failed")
				l := logging.With(logging.WithPaymentID(ctx, p.ID), w.log)
				l.Warn().Err(err).Msg("reconcile failed")
				return err
			}
			metrics.IncReconciled(string(got.Status))
			if got.Status.IsTerminal() {
				resolved.Add(1)
			}
			return nil
		})
	}
	w.pool.Run(ctx, tasks)

	if len(pending) > 0 {
		w.log.Info().Int("visited", len(pending)).Int64("resolved", resolved.Load()).Msg("reconciler pass finished")
	}

	if w.subs != nil {
		if err := w.subs.RefreshGauges(ctx); err != nil {
			w.log.Warn().Err(err).Msg("refresh subscription gauges")
		}
	}
	return int(resolved.Load())
}
