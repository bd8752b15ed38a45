package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/remindly/deadline-service/internal/domain"
	"github.com/remindly/deadline-service/internal/observability"
	"github.com/remindly/deadline-service/internal/repository"
	"go.uber.org/zap"
)

// DeadlineInput carries the client-writable fields of a deadline record.
type DeadlineInput struct {
	ActivityName string
	DueDate      string
	Recipients   []string
	Subject      string
	Body         string
}

// DeadlineService orchestrates CRUD between the HTTP layer and the store.
// The sent flag is not writable through this service; it only moves through
// the scheduler's conditional mark.
type DeadlineService struct {
	deadlines repository.DeadlineRepository
	location  *time.Location
	precision domain.Precision
	logger    *zap.Logger
}

func NewDeadlineService(
	deadlines repository.DeadlineRepository,
	location *time.Location,
	precision domain.Precision,
	logger *zap.Logger,
) (*DeadlineService, error) {
	if deadlines == nil {
		return nil, fmt.Errorf("deadline repository is required")
	}
	if location == nil {
		location = time.UTC
	}
	if !precision.IsValid() {
		precision = domain.PrecisionDate
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeadlineService{
		deadlines: deadlines,
		location:  location,
		precision: precision,
		logger:    logger,
	}, nil
}

func (s *DeadlineService) Create(ctx context.Context, input DeadlineInput) (*domain.Deadline, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	deadline, err := s.fromInput(input)
	if err != nil {
		return nil, err
	}
	deadline.ID = uuid.NewString()
	deadline.Sent = false
	deadline.SentAt = nil

	if err := s.deadlines.Create(ctx, deadline); err != nil {
		return nil, err
	}

	observability.WithContextLogger(s.logger, ctx).Info("deadline created",
		zap.String("deadlineId", deadline.ID),
		zap.String("dueAt", s.FormatDueDate(deadline.DueAt)),
	)
	return deadline, nil
}

func (s *DeadlineService) List(ctx context.Context) ([]domain.Deadline, error) {
	return s.deadlines.List(ctx)
}

func (s *DeadlineService) Update(ctx context.Context, id string, input DeadlineInput) (*domain.Deadline, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: deadline id is required", domain.ErrValidation)
	}

	existing, err := s.deadlines.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	deadline, err := s.fromInput(input)
	if err != nil {
		return nil, err
	}
	deadline.ID = existing.ID
	deadline.Sent = existing.Sent
	deadline.SentAt = existing.SentAt
	deadline.CreatedAt = existing.CreatedAt

	if err := s.deadlines.Update(ctx, deadline); err != nil {
		return nil, err
	}

	observability.WithContextLogger(s.logger, ctx).Info("deadline updated",
		zap.String("deadlineId", deadline.ID),
		zap.String("dueAt", s.FormatDueDate(deadline.DueAt)),
	)
	return deadline, nil
}

func (s *DeadlineService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: deadline id is required", domain.ErrValidation)
	}
	return s.deadlines.Delete(ctx, id)
}

// FormatDueDate renders a due instant the way the write path accepted it.
func (s *DeadlineService) FormatDueDate(t time.Time) string {
	return s.precision.Format(t, s.location)
}

func (s *DeadlineService) fromInput(input DeadlineInput) (*domain.Deadline, error) {
	dueAt, err := s.precision.ParseInput(input.DueDate, s.location)
	if err != nil {
		return nil, err
	}

	deadline := &domain.Deadline{
		ActivityName: strings.TrimSpace(input.ActivityName),
		DueAt:        dueAt,
		Recipients:   normalizeRecipients(input.Recipients),
		Subject:      strings.TrimSpace(input.Subject),
		Body:         strings.TrimSpace(input.Body),
	}

	if err := deadline.Validate(); err != nil {
		return nil, err
	}
	return deadline, nil
}

func normalizeRecipients(recipients []string) []string {
	normalized := make([]string, 0, len(recipients))
	seen := make(map[string]struct{}, len(recipients))
	for _, recipient := range recipients {
		addr := strings.TrimSpace(recipient)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, addr)
	}
	return normalized
}
