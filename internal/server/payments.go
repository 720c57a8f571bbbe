package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nuge-api/internal/service"
)

type createIntentRequest struct {
	Amount          int64  `json:"amount" binding:"required,gt=0"`
	Currency        string `json:"currency" binding:"required"`
	Description     string `json:"description"`
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

func (s *Server) createIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientSecret, err := s.payments.CreatePaymentIntent(c.Request.Context(), service.CreateIntentRequest{
		Amount:          req.Amount,
		Currency:        req.Currency,
		Description:     req.Description,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		recordPaymentProcessed("error")
		status, msg := paymentErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("create payment intent failed", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	recordPaymentProcessed("created")
	c.JSON(http.StatusOK, gin.H{"client_secret": clientSecret})
}

// webhook receives asynchronous gateway events. All failures map to a 400 so
// the gateway stops redelivering events we will never be able to process.
func (s *Server) webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}

	err = s.webhooks.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		s.logger.Warn("webhook rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": webhookErrorMessage(err)})
		return
	}

	c.Status(http.StatusOK)
}

func paymentErrorStatus(err error) (int, string) {
	var gwErr *service.GatewayError
	if errors.As(err, &gwErr) {
		return http.StatusBadRequest, gwErr.Message
	}
	var pErr *service.PersistenceError
	if errors.As(err, &pErr) {
		return http.StatusInternalServerError, "database operation failed"
	}
	return http.StatusInternalServerError, "unexpected error"
}

func webhookErrorMessage(err error) string {
	var sigErr *service.SignatureVerificationError
	if errors.As(err, &sigErr) {
		return "webhook signature verification failed"
	}
	return "webhook processing failed"
}
