package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/remindly/deadline-service/internal/domain"
	"github.com/remindly/deadline-service/internal/mailer"
)

func TestDeadlineServiceCreateNormalizesInput(t *testing.T) {
	t.Parallel()

	bangkok, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}

	var created *domain.Deadline
	repo := &fakeDeadlineRepo{
		createFn: func(ctx context.Context, d *domain.Deadline) error {
			created = d
			d.CreatedAt = time.Now().UTC()
			d.UpdatedAt = d.CreatedAt
			return nil
		},
	}

	svc, err := NewDeadlineService(repo, bangkok, domain.PrecisionDate, nil)
	if err != nil {
		t.Fatalf("NewDeadlineService() error = %v", err)
	}

	result, err := svc.Create(context.Background(), DeadlineInput{
		ActivityName: "  Report  ",
		DueDate:      "2025-01-01",
		Recipients:   []string{"a@x.com", " a@x.com ", "b@x.com"},
		Subject:      " custom ",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created == nil {
		t.Fatal("repository Create was not called")
	}
	if result.ID == "" {
		t.Fatal("id should be assigned on create")
	}
	if result.Sent {
		t.Fatal("new deadline must start unsent")
	}
	if result.ActivityName != "Report" {
		t.Fatalf("activityName = %q, want Report", result.ActivityName)
	}
	if result.Subject != "custom" {
		t.Fatalf("subject = %q, want custom", result.Subject)
	}

	wantDue := time.Date(2025, 1, 1, 0, 0, 0, 0, bangkok)
	if !result.DueAt.Equal(wantDue) {
		t.Fatalf("dueAt = %s, want %s", result.DueAt, wantDue)
	}

	if len(result.Recipients) != 2 {
		t.Fatalf("recipients = %v, want deduplicated pair", result.Recipients)
	}
	if result.Recipients[0] != "a@x.com" || result.Recipients[1] != "b@x.com" {
		t.Fatalf("recipients = %v, want [a@x.com b@x.com]", result.Recipients)
	}
}

func TestDeadlineServiceCreateValidationErrors(t *testing.T) {
	t.Parallel()

	repoCalled := false
	repo := &fakeDeadlineRepo{
		createFn: func(ctx context.Context, d *domain.Deadline) error {
			repoCalled = true
			return nil
		},
	}

	svc, err := NewDeadlineService(repo, time.UTC, domain.PrecisionDate, nil)
	if err != nil {
		t.Fatalf("NewDeadlineService() error = %v", err)
	}

	testCases := []struct {
		name  string
		input DeadlineInput
	}{
		{
			name: "missing activity name",
			input: DeadlineInput{
				DueDate:    "2025-01-01",
				Recipients: []string{"a@x.com"},
			},
		},
		{
			name: "unparseable due date",
			input: DeadlineInput{
				ActivityName: "Report",
				DueDate:      "next tuesday",
				Recipients:   []string{"a@x.com"},
			},
		},
		{
			name: "no recipients",
			input: DeadlineInput{
				ActivityName: "Report",
				DueDate:      "2025-01-01",
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
		})
	}

	if repoCalled {
		t.Fatal("repository must not be called for invalid input")
	}
}

func TestDeadlineServiceUpdatePreservesSentState(t *testing.T) {
	t.Parallel()

	sentAt := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	existing := &domain.Deadline{
		ID:           "d-1",
		ActivityName: "Old name",
		DueAt:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Recipients:   []string{"a@x.com"},
		Sent:         true,
		SentAt:       &sentAt,
		CreatedAt:    time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
	}

	var updated *domain.Deadline
	repo := &fakeDeadlineRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Deadline, error) {
			if id != "d-1" {
				t.Fatalf("GetByID id = %q, want d-1", id)
			}
			return existing, nil
		},
		updateFn: func(ctx context.Context, d *domain.Deadline) error {
			updated = d
			return nil
		},
	}

	svc, err := NewDeadlineService(repo, time.UTC, domain.PrecisionDate, nil)
	if err != nil {
		t.Fatalf("NewDeadlineService() error = %v", err)
	}

	result, err := svc.Update(context.Background(), "d-1", DeadlineInput{
		ActivityName: "New name",
		DueDate:      "2025-02-01",
		Recipients:   []string{"b@x.com"},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated == nil {
		t.Fatal("repository Update was not called")
	}
	if result.ActivityName != "New name" {
		t.Fatalf("activityName = %q, want New name", result.ActivityName)
	}
	if !result.Sent || result.SentAt == nil {
		t.Fatal("update must not reset the sent state")
	}
	if !result.CreatedAt.Equal(existing.CreatedAt) {
		t.Fatal("update must preserve createdAt")
	}
}

func TestDeadlineServiceUpdateNotFound(t *testing.T) {
	t.Parallel()

	repo := &fakeDeadlineRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Deadline, error) {
			return nil, domain.ErrNotFound
		},
	}

	svc, err := NewDeadlineService(repo, time.UTC, domain.PrecisionDate, nil)
	if err != nil {
		t.Fatalf("NewDeadlineService() error = %v", err)
	}

	_, err = svc.Update(context.Background(), "missing", DeadlineInput{
		ActivityName: "Report",
		DueDate:      "2025-01-01",
		Recipients:   []string{"a@x.com"},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestDeadlineServiceDelete(t *testing.T) {
	t.Parallel()

	repo := &fakeDeadlineRepo{
		deleteFn: func(ctx context.Context, id string) error {
			if id != "d-1" {
				t.Fatalf("Delete id = %q, want d-1", id)
			}
			return nil
		},
	}

	svc, err := NewDeadlineService(repo, time.UTC, domain.PrecisionDate, nil)
	if err != nil {
		t.Fatalf("NewDeadlineService() error = %v", err)
	}

	if err := svc.Delete(context.Background(), " d-1 "); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(context.Background(), "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Delete(empty) error = %v, want ErrValidation", err)
	}
}

func TestDeadlineServiceFormatDueDate(t *testing.T) {
	t.Parallel()

	bangkok, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}

	svc, err := NewDeadlineService(&fakeDeadlineRepo{}, bangkok, domain.PrecisionDate, nil)
	if err != nil {
		t.Fatalf("NewDeadlineService() error = %v", err)
	}

	due := time.Date(2025, 1, 1, 0, 0, 0, 0, bangkok)
	if got := svc.FormatDueDate(due); got != "2025-01-01" {
		t.Fatalf("FormatDueDate() = %q, want 2025-01-01", got)
	}
}

// --- fakes shared by the service tests ---

type fakeDeadlineRepo struct {
	createFn   func(ctx context.Context, d *domain.Deadline) error
	listFn     func(ctx context.Context) ([]domain.Deadline, error)
	getByIDFn  func(ctx context.Context, id string) (*domain.Deadline, error)
	updateFn   func(ctx context.Context, d *domain.Deadline) error
	deleteFn   func(ctx context.Context, id string) error
	getDueFn   func(ctx context.Context, now time.Time, limit int) ([]domain.Deadline, error)
	markSentFn func(ctx context.Context, id string, sentAt time.Time) (bool, error)
}

func (f *fakeDeadlineRepo) Create(ctx context.Context, d *domain.Deadline) error {
	if f.createFn != nil {
		return f.createFn(ctx, d)
	}
	return nil
}

func (f *fakeDeadlineRepo) List(ctx context.Context) ([]domain.Deadline, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeDeadlineRepo) GetByID(ctx context.Context, id string) (*domain.Deadline, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDeadlineRepo) Update(ctx context.Context, d *domain.Deadline) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, d)
	}
	return nil
}

func (f *fakeDeadlineRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeDeadlineRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.Deadline, error) {
	if f.getDueFn != nil {
		return f.getDueFn(ctx, now, limit)
	}
	return nil, nil
}

func (f *fakeDeadlineRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	if f.markSentFn != nil {
		return f.markSentFn(ctx, id, sentAt)
	}
	return true, nil
}

type fakeMailer struct {
	sendFn func(ctx context.Context, recipients []string, subject, body string) (*mailer.DeliveryReceipt, error)
}

func (f *fakeMailer) Send(ctx context.Context, recipients []string, subject, body string) (*mailer.DeliveryReceipt, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, recipients, subject, body)
	}
	return &mailer.DeliveryReceipt{Recipients: len(recipients), SentAt: time.Now().UTC()}, nil
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, scope string) (bool, error)
	waitFn  func(ctx context.Context, scope string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, scope string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, scope)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, scope string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, scope)
	}
	return nil
}
