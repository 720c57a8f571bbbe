package gateway

import (
	"context"
	"fmt"
)

// Intent is the gateway's view of one charge attempt.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
}

type CreateIntentParams struct {
	Amount          int64
	Currency        string
	Description     string
	PaymentMethodID string

	// IdempotencyKey dedupes retried gateway calls for one logical charge.
	IdempotencyKey string
}

// Gateway creates and inspects payment intents at the external processor.
type Gateway interface {
	CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error)
	IntentStatus(ctx context.Context, intentID string) (string, error)
}

// Error is a gateway rejection carrying the processor's user-facing message
// (e.g. a declined card). Anything else the gateway returns is treated as
// unexpected by callers.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s (%s)", e.Message, e.Code)
}
