package service

import (
	"context"
	"fmt"
	"time"

	"github.com/remindly/deadline-service/internal/domain"
	"github.com/remindly/deadline-service/internal/mailer"
	"github.com/remindly/deadline-service/internal/observability"
	"github.com/remindly/deadline-service/internal/ratelimit"
	"github.com/remindly/deadline-service/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultTickInterval = time.Minute
	defaultScanLimit    = 100

	mailRateScope = "mail"
)

// Scheduler is the polling dispatch loop: on every tick it scans the store
// for due unsent deadlines, sends one reminder per record, and marks each
// record sent through a conditional update before moving on. Due-ness is
// recomputed from persisted state on every tick, so pending reminders
// survive process restarts.
type Scheduler struct {
	deadlines   repository.DeadlineRepository
	mailer      mailer.Mailer
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	interval    time.Duration
	limit       int
	location    *time.Location
	precision   domain.Precision
	now         func() time.Time
}

func NewScheduler(
	deadlines repository.DeadlineRepository,
	mail mailer.Mailer,
	rateLimiter ratelimit.RateLimiter,
	interval time.Duration,
	limit int,
	location *time.Location,
	precision domain.Precision,
	logger *zap.Logger,
) (*Scheduler, error) {
	if deadlines == nil {
		return nil, fmt.Errorf("deadline repository is required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if limit <= 0 {
		limit = defaultScanLimit
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

	return &Scheduler{
		deadlines:   deadlines,
		mailer:      mail,
		rateLimiter: rateLimiter,
		logger:      logger,
		interval:    interval,
		limit:       limit,
		location:    location,
		precision:   precision,
		now:         time.Now,
	}, nil
}

func (s *Scheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs the tick loop until context cancellation. Dispatch runs inline,
// so a cadence boundary that arrives mid-tick is dropped by the ticker and
// ticks never overlap. Cancellation lets the in-flight tick drain.
func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial tick so already-due reminders do not wait for the first
	// ticker edge.
	if err := s.tick(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduler initial tick failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("scheduler tick failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) error {
	now := s.precision.Normalize(s.now().In(s.location), s.location)

	dueDeadlines, err := s.deadlines.GetDue(ctx, now, s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due deadlines: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncSchedulerTick()
		s.metrics.SetDeadlinesDue(len(dueDeadlines))
	}

	if len(dueDeadlines) == 0 {
		s.logger.Debug("no deadlines due", zap.Time("now", now))
		return nil
	}

	for i := range dueDeadlines {
		deadline := dueDeadlines[i]
		if err := s.dispatch(ctx, &deadline); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("failed to dispatch reminder",
				zap.String("deadlineId", deadline.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// dispatch sends one reminder and marks the record sent on confirmed
// delivery. The mark runs before the next record is touched: a crash in
// between can at worst duplicate one email on the next scan, never hide a
// completed send.
func (s *Scheduler) dispatch(ctx context.Context, deadline *domain.Deadline) error {
	recipients := deadline.UsableRecipients()
	if len(recipients) == 0 {
		s.logger.Warn("skipping deadline with no usable recipients",
			zap.String("deadlineId", deadline.ID),
			zap.String("activity", deadline.ActivityName),
		)
		return nil
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, mailRateScope); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	subject := deadline.NotificationSubject()
	body := deadline.NotificationBody(s.precision, s.location)

	sendStart := s.now()
	receipt, sendErr := s.mailer.Send(ctx, recipients, subject, body)
	if s.metrics != nil {
		s.metrics.ObserveReminderSendDuration(s.now().Sub(sendStart))
	}

	if sendErr != nil {
		if s.metrics != nil {
			s.metrics.IncReminderFailed(mailer.FailureReason(sendErr))
		}
		s.logger.Error("reminder send failed, record stays unsent for next tick",
			zap.String("deadlineId", deadline.ID),
			zap.Strings("recipients", recipients),
			zap.Error(sendErr),
		)
		return nil
	}

	marked, err := s.deadlines.MarkSent(ctx, deadline.ID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark deadline sent: %w", err)
	}
	if !marked {
		// Another writer won the conditional update (or the record was
		// deleted mid-flight); nothing further to do.
		s.logger.Info("deadline already marked sent by another writer",
			zap.String("deadlineId", deadline.ID),
		)
		return nil
	}

	if s.metrics != nil {
		s.metrics.IncReminderSent()
	}
	s.logger.Info("reminder sent",
		zap.String("deadlineId", deadline.ID),
		zap.String("activity", deadline.ActivityName),
		zap.Int("recipients", receipt.Recipients),
	)
	return nil
}
