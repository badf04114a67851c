package service

import "errors"

// Till errors. Callers compare with errors.Is; the handler layer maps them to
// HTTP status codes.
var (
	ErrSessionAlreadyOpen       = errors.New("a register session is already open")
	ErrNoOpenSession            = errors.New("no open register session")
	ErrSessionNotFound          = errors.New("register session not found")
	ErrInsufficientPayment      = errors.New("tendered cash is less than the sale value")
	ErrInvalidAmount            = errors.New("amount must not be negative")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrNoClosedSession          = errors.New("no closed register session")
	ErrInvalidMovementKind      = errors.New("unknown movement kind")
)
