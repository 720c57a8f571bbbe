package service

import "fmt"

// GatewayError: the processor rejected or failed the charge. The message is
// user-facing (declined card and friends) and maps to a 400.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error: %s", e.Message)
}

// PersistenceError: the local store failed; maps to a 500.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SignatureVerificationError: the webhook payload could not be authenticated.
// Maps to a 400 so the gateway stops redelivering it.
type SignatureVerificationError struct {
	Err error
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Err)
}

func (e *SignatureVerificationError) Unwrap() error { return e.Err }

// WebhookProcessingError: a verified webhook could not be parsed or applied.
// Also maps to a 400 — a malformed event will not get better on retry.
type WebhookProcessingError struct {
	Err error
}

func (e *WebhookProcessingError) Error() string {
	return fmt.Sprintf("webhook processing failed: %v", e.Err)
}

func (e *WebhookProcessingError) Unwrap() error { return e.Err }

// UnexpectedError: catch-all; maps to a 500.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error: %v", e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }
