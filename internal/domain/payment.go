package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCanceled  PaymentStatus = "canceled"
)

// Rank orders statuses so that a stale or duplicate webhook can never move a
// record backwards. Stripe may retry a failed intent, so failed < succeeded.
func (s PaymentStatus) Rank() int {
	switch s {
	case PaymentFailed:
		return 1
	case PaymentCanceled:
		return 2
	case PaymentSucceeded:
		return 3
	default:
		return 0
	}
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentSucceeded || s == PaymentFailed || s == PaymentCanceled
}

// StatusFromIntent maps a Stripe payment intent status onto the local
// lifecycle. Everything that still needs client action or gateway processing
// stays pending until a webhook or the reconciler resolves it.
func StatusFromIntent(intentStatus string) PaymentStatus {
	switch intentStatus {
	case "succeeded":
		return PaymentSucceeded
	case "canceled":
		return PaymentCanceled
	default:
		return PaymentPending
	}
}

// Payment is one charge attempt. IntentID is nil until the gateway call
// returns; once set it never changes and at most one row exists per intent id.
type Payment struct {
	ID        uuid.UUID
	IntentID  *string
	Amount    int64
	Currency  string
	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
