package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nuge-api/internal/domain"
	"nuge-api/internal/gateway"
	"nuge-api/internal/repo"
)

type CreateIntentRequest struct {
	Amount          int64
	Currency        string
	Description     string
	PaymentMethodID string
}

type PaymentService interface {
	// CreatePaymentIntent records a pending payment, charges it at the
	// gateway, and returns the client secret the caller needs to finish any
	// client-side authentication.
	CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (string, error)
}

type paymentService struct {
	db       *sql.DB
	payments repo.PaymentRepo
	gateway  gateway.Gateway
	logger   *zap.Logger
}

func NewPaymentService(db *sql.DB, payments repo.PaymentRepo, gw gateway.Gateway, logger *zap.Logger) PaymentService {
	return &paymentService{db: db, payments: payments, gateway: gw, logger: logger}
}

// CreatePaymentIntent holds one transaction across the whole operation:
// insert pending row, call the gateway, attach the gateway's intent id and
// status, commit. Any failure rolls the local insert back; if the gateway
// charge actually went through despite the error, the webhook path or the
// reconciler recreates the record later.
func (s *paymentService) CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", &PersistenceError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	p := &domain.Payment{
		ID:        uuid.New(),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    domain.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.payments.Create(ctx, tx, p); err != nil {
		return "", &PersistenceError{Op: "create payment", Err: err}
	}

	intent, err := s.gateway.CreateIntent(ctx, gateway.CreateIntentParams{
		Amount:          req.Amount,
		Currency:        req.Currency,
		Description:     req.Description,
		PaymentMethodID: req.PaymentMethodID,
		IdempotencyKey:  uuid.NewString(),
	})
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			return "", &GatewayError{Code: gwErr.Code, Message: gwErr.Message}
		}
		return "", &UnexpectedError{Err: err}
	}

	status := domain.StatusFromIntent(intent.Status)
	if err := s.payments.AttachIntent(ctx, tx, p.ID, intent.ID, status); err != nil {
		if repo.IsUniqueViolation(err) {
			// The webhook for this intent landed first and owns the row.
			// Drop our provisional insert and merge into the winner.
			tx.Rollback()
			if err := s.mergeIntoExisting(ctx, intent.ID, status); err != nil {
				return "", err
			}
			return intent.ClientSecret, nil
		}
		return "", &PersistenceError{Op: "attach intent", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return "", &PersistenceError{Op: "commit", Err: err}
	}

	s.logger.Info("payment intent created",
		zap.String("payment_id", p.ID.String()),
		zap.String("intent_id", intent.ID),
		zap.String("status", string(status)),
	)
	return intent.ClientSecret, nil
}

func (s *paymentService) mergeIntoExisting(ctx context.Context, intentID string, status domain.PaymentStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	if err := s.payments.AdvanceStatus(ctx, tx, intentID, status); err != nil {
		return &PersistenceError{Op: "advance status", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}

	s.logger.Info("merged intent into webhook-created record",
		zap.String("intent_id", intentID),
	)
	return nil
}
