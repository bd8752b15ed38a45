package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validDeadline() Deadline {
	return Deadline{
		ID:           "d-1",
		ActivityName: "Quarterly Report",
		DueAt:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Recipients:   []string{"a@x.com"},
	}
}

func TestDeadlineValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(d *Deadline)
		wantErr bool
	}{
		{name: "valid", mutate: func(d *Deadline) {}},
		{
			name:    "missing activity name",
			mutate:  func(d *Deadline) { d.ActivityName = "  " },
			wantErr: true,
		},
		{
			name:    "zero due date",
			mutate:  func(d *Deadline) { d.DueAt = time.Time{} },
			wantErr: true,
		},
		{
			name:    "no recipients",
			mutate:  func(d *Deadline) { d.Recipients = nil },
			wantErr: true,
		},
		{
			name:    "only invalid recipients",
			mutate:  func(d *Deadline) { d.Recipients = []string{"not-an-address", ""} },
			wantErr: true,
		},
		{
			name:    "too many recipients",
			mutate:  func(d *Deadline) { d.Recipients = make([]string, MaxRecipients+1) },
			wantErr: true,
		},
		{
			name:    "body too long",
			mutate:  func(d *Deadline) { d.Body = strings.Repeat("a", MaxBodyLen+1) },
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d := validDeadline()
			tc.mutate(&d)

			err := d.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("Validate() expected error, got nil")
				}
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestUsableRecipientsDeduplicatesAndFilters(t *testing.T) {
	t.Parallel()

	d := validDeadline()
	d.Recipients = []string{
		"a@x.com",
		"  b@x.com ",
		"A@X.COM",
		"broken address",
		"",
		"b@x.com",
	}

	got := d.UsableRecipients()
	if len(got) != 2 {
		t.Fatalf("UsableRecipients() len = %d, want 2 (%v)", len(got), got)
	}
	if got[0] != "a@x.com" {
		t.Fatalf("first recipient = %q, want a@x.com", got[0])
	}
	if got[1] != "b@x.com" {
		t.Fatalf("second recipient = %q, want b@x.com", got[1])
	}
}

func TestNotificationSubjectDefault(t *testing.T) {
	t.Parallel()

	d := validDeadline()
	if got := d.NotificationSubject(); got != "Reminder: Quarterly Report" {
		t.Fatalf("NotificationSubject() = %q", got)
	}

	d.Subject = "Custom subject"
	if got := d.NotificationSubject(); got != "Custom subject" {
		t.Fatalf("NotificationSubject() = %q, want Custom subject", got)
	}
}

func TestNotificationBodyIncludesDueDateAndBody(t *testing.T) {
	t.Parallel()

	d := validDeadline()
	d.Body = "Bring the slides."

	got := d.NotificationBody(PrecisionDate, time.UTC)
	if !strings.Contains(got, "Quarterly Report") {
		t.Fatalf("body missing activity name: %q", got)
	}
	if !strings.Contains(got, "2025-01-01") {
		t.Fatalf("body missing due date: %q", got)
	}
	if !strings.HasSuffix(got, "Bring the slides.") {
		t.Fatalf("body missing free text: %q", got)
	}
}

func TestDueBy(t *testing.T) {
	t.Parallel()

	d := validDeadline()
	dueDay := d.DueAt

	if !d.DueBy(dueDay) {
		t.Fatal("deadline should be due on its due instant")
	}
	if !d.DueBy(dueDay.AddDate(0, 0, 3)) {
		t.Fatal("deadline should remain due after its due instant")
	}
	if d.DueBy(dueDay.Add(-time.Hour)) {
		t.Fatal("deadline should not be due before its due instant")
	}

	d.Sent = true
	if d.DueBy(dueDay) {
		t.Fatal("sent deadline must never be due again")
	}
}
