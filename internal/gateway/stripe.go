package gateway

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(apiKey string) *StripeGateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeGateway{api: api}
}

// CreateIntent creates and immediately confirms a payment intent with
// redirect-based payment methods disabled, so confirmation either settles
// synchronously or leaves the intent waiting on client-side authentication.
func (g *StripeGateway) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(p.Amount),
		Currency:      stripe.String(p.Currency),
		Description:   stripe.String(p.Description),
		PaymentMethod: stripe.String(p.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String(string(stripe.PaymentIntentAutomaticPaymentMethodsAllowRedirectsNever)),
		},
	}
	params.Context = ctx
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func (g *StripeGateway) IntentStatus(ctx context.Context, intentID string) (string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return "", wrapStripeErr(err)
	}
	return string(pi.Status), nil
}

func wrapStripeErr(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		return &Error{Code: string(sErr.Code), Message: sErr.Msg}
	}
	return err
}
