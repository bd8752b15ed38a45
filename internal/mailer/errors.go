package mailer

import (
	"context"
	"errors"
	"net"
	"strings"
)

// DeliveryError classifies transport failures as transient/permanent. The
// scheduler never retries within a tick either way; the record simply stays
// unsent and is re-selected on the next scan.
type DeliveryError struct {
	Message   string
	Transient bool
	Cause     error
}

func (e *DeliveryError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	parts = append(parts, "delivery error")

	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *DeliveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a failed send is likely to succeed later.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// FailureReason maps an error to a metrics label.
func FailureReason(err error) string {
	if IsTransient(err) {
		return "transient_error"
	}
	return "permanent_error"
}
