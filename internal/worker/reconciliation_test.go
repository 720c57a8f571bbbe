package worker

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"nuge-api/internal/gateway"
	"nuge-api/internal/repo"
)

type fakeGateway struct {
	statuses map[string]string
}

func (f *fakeGateway) CreateIntent(_ context.Context, _ gateway.CreateIntentParams) (*gateway.Intent, error) {
	panic("not used by the worker")
}

func (f *fakeGateway) IntentStatus(_ context.Context, intentID string) (string, error) {
	return f.statuses[intentID], nil
}

const paymentColumns = "id, stripe_payment_intent_id, amount, currency, status, created_at, updated_at"

func newWorker(t *testing.T, gw gateway.Gateway) (*ReconciliationWorker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	w := NewReconciliationWorker(
		db, repo.NewPaymentRepo(db), gw, time.Second, time.Minute, zaptest.NewLogger(t),
	)
	return w, mock
}

func staleRows(id uuid.UUID, intentID any) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(splitColumns()).
		AddRow(id.String(), intentID, int64(500), "usd", "pending", now.Add(-time.Hour), now.Add(-time.Hour))
}

func splitColumns() []string {
	return []string{"id", "stripe_payment_intent_id", "amount", "currency", "status", "created_at", "updated_at"}
}

func TestSweepReconcilesLostWebhook(t *testing.T) {
	gw := &fakeGateway{statuses: map[string]string{"pi_lost": "succeeded"}}
	w, mock := newWorker(t, gw)
	id := uuid.New()

	mock.ExpectQuery("SELECT " + paymentColumns).WillReturnRows(staleRows(id, "pi_lost"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments").
		WithArgs("pi_lost", "succeeded").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, w.sweep(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepSkipsUnchangedStatus(t *testing.T) {
	gw := &fakeGateway{statuses: map[string]string{"pi_wait": "processing"}}
	w, mock := newWorker(t, gw)

	// Gateway still reports a non-terminal status; nothing to write.
	mock.ExpectQuery("SELECT " + paymentColumns).WillReturnRows(staleRows(uuid.New(), "pi_wait"))

	require.NoError(t, w.sweep(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepAbandonsRowWithoutIntentID(t *testing.T) {
	w, mock := newWorker(t, &fakeGateway{})
	id := uuid.New()

	mock.ExpectQuery("SELECT " + paymentColumns).WillReturnRows(staleRows(id, nil))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments").
		WithArgs(id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, w.sweep(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepNothingStale(t *testing.T) {
	w, mock := newWorker(t, &fakeGateway{})

	mock.ExpectQuery("SELECT " + paymentColumns).WillReturnRows(sqlmock.NewRows(splitColumns()))

	require.NoError(t, w.sweep(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
