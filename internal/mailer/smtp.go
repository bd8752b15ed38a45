package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

const defaultSendTimeout = 15 * time.Second

// SMTPConfig carries the transport settings for the SMTP mailer.
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	SenderAddress      string
	SenderName         string
	InsecureSkipVerify bool
	SendTimeout        time.Duration
}

// SMTPMailer delivers reminder mail over SMTP.
type SMTPMailer struct {
	dialer        *gomail.Dialer
	senderAddress string
	senderName    string
	timeout       time.Duration
	now           func() time.Time
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("smtp port is required")
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.InsecureSkipVerify {
		dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	senderAddress := strings.TrimSpace(cfg.SenderAddress)
	if senderAddress == "" {
		senderAddress = strings.TrimSpace(cfg.Username)
	}
	if senderAddress == "" {
		return nil, fmt.Errorf("sender address is required")
	}

	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	return &SMTPMailer{
		dialer:        dialer,
		senderAddress: senderAddress,
		senderName:    strings.TrimSpace(cfg.SenderName),
		timeout:       timeout,
		now:           time.Now,
	}, nil
}

// Send attempts a single delivery and reports the outcome. It never retries;
// a failure leaves the caller's record unsent so the next scan picks it up.
func (m *SMTPMailer) Send(ctx context.Context, recipients []string, subject, body string) (*DeliveryReceipt, error) {
	if m == nil || m.dialer == nil {
		return nil, fmt.Errorf("mailer is not initialized")
	}
	if len(recipients) == 0 {
		return nil, &DeliveryError{Message: "no recipients"}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.senderAddress, m.senderName)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// gomail has no context support; bound the call ourselves. The dial
	// goroutine is left to finish on its own after a timeout.
	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return nil, &DeliveryError{
			Message:   "smtp send timed out",
			Transient: !errors.Is(ctx.Err(), context.Canceled),
			Cause:     ctx.Err(),
		}
	case err := <-done:
		if err != nil {
			return nil, &DeliveryError{
				Message:   "smtp send failed",
				Transient: true,
				Cause:     err,
			}
		}
	}

	return &DeliveryReceipt{
		Recipients: len(recipients),
		SentAt:     m.now().UTC(),
	}, nil
}
