package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"nuge-api/internal/auth"
	"nuge-api/internal/config"
	"nuge-api/internal/service"
)

const testJWTSecret = "super-secret-jwt-key-for-tests"

type stubPaymentService struct {
	clientSecret string
	err          error
}

func (s *stubPaymentService) CreatePaymentIntent(_ context.Context, _ service.CreateIntentRequest) (string, error) {
	return s.clientSecret, s.err
}

type stubWebhookService struct {
	err error
}

func (s *stubWebhookService) HandleWebhook(_ context.Context, _ []byte, _ string) error {
	return s.err
}

func newTestServer(t *testing.T, payments service.PaymentService, webhooks service.WebhookService) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		CORSOrigins:       []string{"http://localhost:3000"},
		SupabaseJWTSecret: testJWTSecret,
	}
	return New(cfg, zaptest.NewLogger(t), db, payments, webhooks,
		auth.NewSupabaseClient("http://localhost", "anon-key"), &stubUserRepo{})
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)
	return w
}

func TestCreateIntentOK(t *testing.T) {
	srv := newTestServer(t, &stubPaymentService{clientSecret: "pi_123_secret"}, &stubWebhookService{})

	w := postJSON(t, srv, "/payments/create-intent", gin.H{
		"amount":            500,
		"currency":          "usd",
		"description":       "test",
		"payment_method_id": "pm_card_visa",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "pi_123_secret", resp["client_secret"])
}

func TestCreateIntentValidation(t *testing.T) {
	srv := newTestServer(t, &stubPaymentService{clientSecret: "unused"}, &stubWebhookService{})

	cases := []gin.H{
		{"currency": "usd", "payment_method_id": "pm_1"},               // missing amount
		{"amount": -5, "currency": "usd", "payment_method_id": "pm_1"}, // non-positive amount
		{"amount": 500, "payment_method_id": "pm_1"},                   // missing currency
		{"amount": 500, "currency": "usd"},                             // missing payment method
	}
	for _, body := range cases {
		w := postJSON(t, srv, "/payments/create-intent", body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
	}
}

func TestCreateIntentGatewayErrorMapsTo400(t *testing.T) {
	srv := newTestServer(t, &stubPaymentService{
		err: &service.GatewayError{Code: "card_declined", Message: "Your card was declined."},
	}, &stubWebhookService{})

	w := postJSON(t, srv, "/payments/create-intent", gin.H{
		"amount": 500, "currency": "usd", "payment_method_id": "pm_1",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Your card was declined.")
}

func TestCreateIntentPersistenceErrorMapsTo500(t *testing.T) {
	srv := newTestServer(t, &stubPaymentService{
		err: &service.PersistenceError{Op: "commit", Err: context.DeadlineExceeded},
	}, &stubWebhookService{})

	w := postJSON(t, srv, "/payments/create-intent", gin.H{
		"amount": 500, "currency": "usd", "payment_method_id": "pm_1",
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookOK(t *testing.T) {
	srv := newTestServer(t, &stubPaymentService{}, &stubWebhookService{})

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookRejectionMapsTo400(t *testing.T) {
	for _, svcErr := range []error{
		&service.SignatureVerificationError{Err: context.Canceled},
		&service.WebhookProcessingError{Err: context.Canceled},
	} {
		srv := newTestServer(t, &stubPaymentService{}, &stubWebhookService{err: svcErr})

		req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()
		srv.engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	}
}
