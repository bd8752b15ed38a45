package repository

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/remindly/deadline-service/internal/domain"
)

// RecipientList stores recipient addresses as a JSONB column.
type RecipientList []string

func (r RecipientList) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(r))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recipients: %w", err)
	}
	return string(data), nil
}

// Scan is lenient on purpose: a malformed recipients payload yields an empty
// list instead of failing the whole query, so one bad row cannot abort a due
// scan. The scanner skips such rows and logs them.
func (r *RecipientList) Scan(value any) error {
	if value == nil {
		*r = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		*r = nil
		return nil
	}

	var recipients []string
	if err := json.Unmarshal(data, &recipients); err != nil {
		*r = nil
		return nil
	}
	*r = recipients
	return nil
}

// DeadlineModel is the persistence model for the deadlines table.
type DeadlineModel struct {
	ID           string        `gorm:"type:uuid;primaryKey"`
	ActivityName string        `gorm:"type:varchar(255);not null"`
	DueAt        time.Time     `gorm:"type:timestamptz;not null"`
	Recipients   RecipientList `gorm:"type:jsonb;not null"`
	Subject      string        `gorm:"type:varchar(255)"`
	Body         string        `gorm:"type:text"`
	Sent         bool          `gorm:"not null;default:false"`
	SentAt       *time.Time    `gorm:"type:timestamptz"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (DeadlineModel) TableName() string {
	return "deadlines"
}

func deadlineModelFromDomain(d *domain.Deadline) *DeadlineModel {
	if d == nil {
		return nil
	}

	return &DeadlineModel{
		ID:           d.ID,
		ActivityName: d.ActivityName,
		DueAt:        d.DueAt,
		Recipients:   RecipientList(d.Recipients),
		Subject:      d.Subject,
		Body:         d.Body,
		Sent:         d.Sent,
		SentAt:       d.SentAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func deadlineModelToDomain(m *DeadlineModel) *domain.Deadline {
	if m == nil {
		return nil
	}

	return &domain.Deadline{
		ID:           m.ID,
		ActivityName: m.ActivityName,
		DueAt:        m.DueAt,
		Recipients:   []string(m.Recipients),
		Subject:      m.Subject,
		Body:         m.Body,
		Sent:         m.Sent,
		SentAt:       m.SentAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
