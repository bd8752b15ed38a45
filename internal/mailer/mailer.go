package mailer

import (
	"context"
	"time"
)

// Mailer is the outbound reminder delivery port.
type Mailer interface {
	Send(ctx context.Context, recipients []string, subject, body string) (*DeliveryReceipt, error)
}

// DeliveryReceipt records a confirmed delivery handoff to the transport.
type DeliveryReceipt struct {
	Recipients int
	SentAt     time.Time
}
