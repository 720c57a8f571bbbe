package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"nuge-api/internal/domain"
)

// statusRank mirrors domain.PaymentStatus.Rank in SQL so guards run inside
// the row lock instead of read-modify-write in Go.
const statusRank = `CASE %s
		WHEN 'failed' THEN 1
		WHEN 'canceled' THEN 2
		WHEN 'succeeded' THEN 3
		ELSE 0
	END`

type PaymentRepo interface {
	Create(ctx context.Context, tx *sql.Tx, p *domain.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	FindByIntentID(ctx context.Context, intentID string) (*domain.Payment, error)

	// AttachIntent sets the gateway-assigned intent id and status on the
	// initiator's provisional row. Fails with a unique violation if the
	// webhook path already created a row for this intent.
	AttachIntent(ctx context.Context, tx *sql.Tx, id uuid.UUID, intentID string, status domain.PaymentStatus) error

	// UpsertSucceeded is the idempotent lookup-or-create keyed by intent id.
	// The partial unique index resolves concurrent deliveries; the rank
	// guard makes stale replays no-ops.
	UpsertSucceeded(ctx context.Context, tx *sql.Tx, intentID string, amount int64, currency string) error

	// AdvanceStatus applies a status by intent id, only ever moving forward.
	AdvanceStatus(ctx context.Context, tx *sql.Tx, intentID string, status domain.PaymentStatus) error

	// MarkFailed fails a pending row that never received an intent id.
	MarkFailed(ctx context.Context, tx *sql.Tx, id uuid.UUID) error

	FindStaleNonTerminal(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error)
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, i.e. another writer already owns that intent id.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *paymentRepo) Create(ctx context.Context, tx *sql.Tx, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, stripe_payment_intent_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.ExecContext(ctx, query,
		p.ID, p.IntentID, p.Amount, p.Currency, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *paymentRepo) FindByIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	return r.findOne(ctx, `WHERE stripe_payment_intent_id = $1`, intentID)
}

func (r *paymentRepo) findOne(ctx context.Context, where string, arg any) (*domain.Payment, error) {
	query := `
		SELECT id, stripe_payment_intent_id, amount, currency, status, created_at, updated_at
		FROM payments ` + where
	var p domain.Payment
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &p.IntentID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) AttachIntent(ctx context.Context, tx *sql.Tx, id uuid.UUID, intentID string, status domain.PaymentStatus) error {
	query := `
		UPDATE payments
		SET stripe_payment_intent_id = $2, status = $3, updated_at = now()
		WHERE id = $1 AND stripe_payment_intent_id IS NULL`
	res, err := tx.ExecContext(ctx, query, id, intentID, string(status))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("payment %s: intent already attached", id)
	}
	return nil
}

func (r *paymentRepo) UpsertSucceeded(ctx context.Context, tx *sql.Tx, intentID string, amount int64, currency string) error {
	query := fmt.Sprintf(`
		INSERT INTO payments (id, stripe_payment_intent_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'succeeded', now(), now())
		ON CONFLICT (stripe_payment_intent_id) WHERE stripe_payment_intent_id IS NOT NULL
		DO UPDATE SET status = EXCLUDED.status, updated_at = now()
		WHERE %s < %s`,
		fmt.Sprintf(statusRank, "payments.status"),
		fmt.Sprintf(statusRank, "EXCLUDED.status"),
	)
	_, err := tx.ExecContext(ctx, query, uuid.New(), intentID, amount, currency)
	return err
}

func (r *paymentRepo) AdvanceStatus(ctx context.Context, tx *sql.Tx, intentID string, status domain.PaymentStatus) error {
	query := fmt.Sprintf(`
		UPDATE payments
		SET status = $2, updated_at = now()
		WHERE stripe_payment_intent_id = $1
		AND %s < %s`,
		fmt.Sprintf(statusRank, "status"),
		fmt.Sprintf(statusRank, "$2::text"),
	)
	_, err := tx.ExecContext(ctx, query, intentID, string(status))
	return err
}

func (r *paymentRepo) MarkFailed(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	query := `
		UPDATE payments
		SET status = 'failed', updated_at = now()
		WHERE id = $1 AND status = 'pending'`
	_, err := tx.ExecContext(ctx, query, id)
	return err
}

func (r *paymentRepo) FindStaleNonTerminal(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error) {
	query := `
		SELECT id, stripe_payment_intent_id, amount, currency, status, created_at, updated_at
		FROM payments
		WHERE status NOT IN ('succeeded', 'failed', 'canceled')
		AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.IntentID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
