package repository

import (
	"context"
	"errors"
	"time"

	"github.com/remindly/deadline-service/internal/domain"
	"gorm.io/gorm"
)

type DeadlineRepository interface {
	Create(ctx context.Context, d *domain.Deadline) error
	List(ctx context.Context) ([]domain.Deadline, error)
	GetByID(ctx context.Context, id string) (*domain.Deadline, error)
	Update(ctx context.Context, d *domain.Deadline) error
	Delete(ctx context.Context, id string) error
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.Deadline, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error)
}

type GormDeadlineRepo struct {
	db *gorm.DB
}

func NewGormDeadlineRepo(db *gorm.DB) *GormDeadlineRepo {
	return &GormDeadlineRepo{db: db}
}

func (r *GormDeadlineRepo) Create(ctx context.Context, d *domain.Deadline) error {
	model := deadlineModelFromDomain(d)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if d != nil {
		*d = *deadlineModelToDomain(model)
	}
	return nil
}

func (r *GormDeadlineRepo) List(ctx context.Context) ([]domain.Deadline, error) {
	var models []DeadlineModel
	err := r.db.WithContext(ctx).
		Order("due_at ASC, created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	deadlines := make([]domain.Deadline, 0, len(models))
	for i := range models {
		deadlines = append(deadlines, *deadlineModelToDomain(&models[i]))
	}
	return deadlines, nil
}

func (r *GormDeadlineRepo) GetByID(ctx context.Context, id string) (*domain.Deadline, error) {
	var model DeadlineModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deadlineModelToDomain(&model), nil
}

// Update rewrites the mutable fields of a record. The sent flag is not
// touched here; it only ever moves through MarkSent.
func (r *GormDeadlineRepo) Update(ctx context.Context, d *domain.Deadline) error {
	if d == nil {
		return domain.ErrNotFound
	}

	result := r.db.WithContext(ctx).
		Model(&DeadlineModel{}).
		Where("id = ?", d.ID).
		Updates(map[string]any{
			"activity_name": d.ActivityName,
			"due_at":        d.DueAt,
			"recipients":    RecipientList(d.Recipients),
			"subject":       d.Subject,
			"body":          d.Body,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormDeadlineRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&DeadlineModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDue returns unsent records whose due instant has arrived or passed.
// Pure read; ordering by due_at keeps the oldest overdue records first.
func (r *GormDeadlineRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.Deadline, error) {
	var models []DeadlineModel
	err := r.db.WithContext(ctx).
		Where("sent = ? AND due_at <= ?", false, now).
		Order("due_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	deadlines := make([]domain.Deadline, 0, len(models))
	for i := range models {
		deadlines = append(deadlines, *deadlineModelToDomain(&models[i]))
	}
	return deadlines, nil
}

// MarkSent flips sent to true only if it is still false, reporting whether
// this caller won. The conditional write is the single-winner guard that
// keeps concurrent markers from double-recording a send.
func (r *GormDeadlineRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&DeadlineModel{}).
		Where("id = ? AND sent = ?", id, false).
		Updates(map[string]any{
			"sent":    true,
			"sent_at": sentAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
