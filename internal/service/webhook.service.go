package service

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"nuge-api/internal/repo"
)

const eventPaymentIntentSucceeded = "payment_intent.succeeded"

type WebhookService interface {
	// HandleWebhook authenticates a raw gateway event and applies it.
	// Unknown event types are acknowledged without side effects so the
	// gateway does not redeliver them forever.
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

type webhookService struct {
	db            *sql.DB
	payments      repo.PaymentRepo
	webhookSecret string
	logger        *zap.Logger
}

func NewWebhookService(db *sql.DB, payments repo.PaymentRepo, webhookSecret string, logger *zap.Logger) WebhookService {
	return &webhookService{
		db:            db,
		payments:      payments,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func (s *webhookService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
	if err != nil {
		return &SignatureVerificationError{Err: err}
	}

	switch string(event.Type) {
	case eventPaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return &WebhookProcessingError{Err: err}
		}
		if err := s.handlePaymentSucceeded(ctx, &pi); err != nil {
			return &WebhookProcessingError{Err: err}
		}
	default:
		s.logger.Info("ignoring webhook event", zap.String("type", string(event.Type)))
	}
	return nil
}

// handlePaymentSucceeded reconciles a succeeded intent into the store.
// Delivery is at-least-once and may arrive before the initiator's commit, so
// this is an idempotent upsert keyed by intent id.
func (s *webhookService) handlePaymentSucceeded(ctx context.Context, pi *stripe.PaymentIntent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.payments.UpsertSucceeded(ctx, tx, pi.ID, pi.Amount, string(pi.Currency)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("payment reconciled as succeeded", zap.String("intent_id", pi.ID))
	return nil
}
