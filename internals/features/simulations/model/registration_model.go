package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RegistrationPending   = "pending"
	RegistrationApproved  = "approved"
	RegistrationRejected  = "rejected"
	RegistrationCancelled = "cancelled"
)

// ActiveRegistrationStatuses count against event capacity.
var ActiveRegistrationStatuses = []string{RegistrationPending, RegistrationApproved}

type EventRegistrationModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	EventID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_event_registration;column:event_id" json:"event_id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_event_registration;index;column:user_id" json:"user_id"`
	Status       string     `gorm:"size:20;not null;index;column:status" json:"status"`
	RegisteredAt time.Time  `gorm:"not null;column:registered_at" json:"registered_at"`
	Notes        *string    `gorm:"type:text;column:notes" json:"notes,omitempty"`
	ReviewedBy   *uuid.UUID `gorm:"type:uuid;column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (EventRegistrationModel) TableName() string { return "event_registrations" }

func (m *EventRegistrationModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

const (
	AttendancePresent = "present"
	AttendanceLate    = "late"
	AttendanceAbsent  = "absent"
	AttendanceExcused = "excused"
)

// AttendedStatuses qualify a participant for scoring and certificates.
var AttendedStatuses = []string{AttendancePresent, AttendanceLate}

func Attended(status string) bool {
	return status == AttendancePresent || status == AttendanceLate
}

type AttendanceModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	RegistrationID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex;column:registration_id" json:"registration_id"`
	EventID        uuid.UUID  `gorm:"type:uuid;not null;index;column:event_id" json:"event_id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	Status         string     `gorm:"size:20;not null;column:status" json:"status"`
	CheckedInAt    *time.Time `gorm:"column:checked_in_at" json:"checked_in_at,omitempty"`
	CheckedOutAt   *time.Time `gorm:"column:checked_out_at" json:"checked_out_at,omitempty"`
	Remarks        *string    `gorm:"type:text;column:remarks" json:"remarks,omitempty"`
	RecordedBy     *uuid.UUID `gorm:"type:uuid;column:recorded_by" json:"recorded_by,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (AttendanceModel) TableName() string { return "attendances" }

func (m *AttendanceModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
