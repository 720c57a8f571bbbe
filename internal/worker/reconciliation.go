package worker

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"nuge-api/internal/domain"
	"nuge-api/internal/gateway"
	"nuge-api/internal/repo"
)

const sweepBatchSize = 100

// ReconciliationWorker sweeps payments stuck in a non-terminal state. A lost
// or delayed webhook leaves a row pending with an intent id; the gateway is
// the source of truth for those. A pending row with no intent id means the
// process died before the gateway call returned an id, which the transaction
// scope makes impossible to commit — it can only appear through operator
// intervention, and is failed so it stops showing up in every sweep.
type ReconciliationWorker struct {
	db         *sql.DB
	payments   repo.PaymentRepo
	gateway    gateway.Gateway
	interval   time.Duration
	staleAfter time.Duration
	logger     *zap.Logger
}

func NewReconciliationWorker(
	db *sql.DB,
	payments repo.PaymentRepo,
	gw gateway.Gateway,
	interval time.Duration,
	staleAfter time.Duration,
	logger *zap.Logger,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		db:         db,
		payments:   payments,
		gateway:    gw,
		interval:   interval,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

func (w *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reconciliation worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error("reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

func (w *ReconciliationWorker) sweep(ctx context.Context) error {
	stale, err := w.payments.FindStaleNonTerminal(ctx, time.Now().Add(-w.staleAfter), sweepBatchSize)
	if err != nil {
		return err
	}

	for _, p := range stale {
		if p.IntentID == nil {
			if err := w.abandon(ctx, p); err != nil {
				w.logger.Error("failed to abandon payment",
					zap.String("payment_id", p.ID.String()), zap.Error(err))
			}
			continue
		}
		if err := w.reconcile(ctx, p); err != nil {
			// Leave it for the next sweep.
			w.logger.Error("failed to reconcile payment",
				zap.String("payment_id", p.ID.String()),
				zap.String("intent_id", *p.IntentID),
				zap.Error(err))
		}
	}
	return nil
}

func (w *ReconciliationWorker) reconcile(ctx context.Context, p domain.Payment) error {
	intentStatus, err := w.gateway.IntentStatus(ctx, *p.IntentID)
	if err != nil {
		return err
	}

	status := domain.StatusFromIntent(intentStatus)
	if status == p.Status {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := w.payments.AdvanceStatus(ctx, tx, *p.IntentID, status); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	w.logger.Info("reconciled stale payment",
		zap.String("payment_id", p.ID.String()),
		zap.String("intent_id", *p.IntentID),
		zap.String("status", string(status)),
	)
	return nil
}

func (w *ReconciliationWorker) abandon(ctx context.Context, p domain.Payment) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := w.payments.MarkFailed(ctx, tx, p.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	w.logger.Warn("abandoned payment without intent id", zap.String("payment_id", p.ID.String()))
	return nil
}
