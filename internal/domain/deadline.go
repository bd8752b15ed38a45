package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Content limits per field (in characters).
const (
	MaxActivityNameLen = 255
	MaxSubjectLen      = 255
	MaxBodyLen         = 10000
	MaxRecipients      = 50
)

// Deadline is the core domain entity: an activity with a due date and the
// addresses to remind when it arrives. Sent flips to true exactly once, after
// confirmed delivery, and never back.
type Deadline struct {
	ID           string
	ActivityName string
	DueAt        time.Time
	Recipients   []string
	Subject      string
	Body         string
	Sent         bool
	SentAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (d *Deadline) Validate() error {
	if strings.TrimSpace(d.ActivityName) == "" {
		return fmt.Errorf("%w: activityName is required", ErrValidation)
	}
	if len([]rune(d.ActivityName)) > MaxActivityNameLen {
		return fmt.Errorf("%w: activityName exceeds %d characters", ErrValidation, MaxActivityNameLen)
	}
	if d.DueAt.IsZero() {
		return fmt.Errorf("%w: dueDate is required", ErrValidation)
	}
	if len(d.Recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrValidation)
	}
	if len(d.Recipients) > MaxRecipients {
		return fmt.Errorf("%w: recipients exceed %d entries", ErrValidation, MaxRecipients)
	}
	if len(d.UsableRecipients()) == 0 {
		return fmt.Errorf("%w: no valid recipient address", ErrValidation)
	}
	if len([]rune(d.Subject)) > MaxSubjectLen {
		return fmt.Errorf("%w: subject exceeds %d characters", ErrValidation, MaxSubjectLen)
	}
	if len([]rune(d.Body)) > MaxBodyLen {
		return fmt.Errorf("%w: body exceeds %d characters (got %d)", ErrValidation, MaxBodyLen, len([]rune(d.Body)))
	}
	return nil
}

// UsableRecipients returns the syntactically valid recipient addresses,
// deduplicated case-insensitively with the original order preserved.
func (d *Deadline) UsableRecipients() []string {
	if len(d.Recipients) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(d.Recipients))
	usable := make([]string, 0, len(d.Recipients))
	for _, recipient := range d.Recipients {
		addr := strings.TrimSpace(recipient)
		if addr == "" {
			continue
		}
		if _, err := mail.ParseAddress(addr); err != nil {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		usable = append(usable, addr)
	}
	return usable
}

// NotificationSubject returns the stored subject, or a default derived from
// the activity name when none was provided.
func (d *Deadline) NotificationSubject() string {
	if subject := strings.TrimSpace(d.Subject); subject != "" {
		return subject
	}
	return fmt.Sprintf("Reminder: %s", strings.TrimSpace(d.ActivityName))
}

// NotificationBody renders the mail body: activity and due date first, then
// the stored free-text body when present.
func (d *Deadline) NotificationBody(precision Precision, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reminder for activity: %s\n\nDeadline: %s",
		strings.TrimSpace(d.ActivityName),
		precision.Format(d.DueAt, loc),
	)
	if body := strings.TrimSpace(d.Body); body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}
	return b.String()
}

// DueBy reports whether the deadline is eligible for notification at the
// given instant: due date arrived or passed, and not yet marked sent.
func (d *Deadline) DueBy(now time.Time) bool {
	return !d.Sent && !d.DueAt.After(now)
}
