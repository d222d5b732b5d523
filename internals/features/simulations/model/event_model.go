package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtypes"
)

const (
	EventDraft     = "draft"
	EventPublished = "published"
	EventOngoing   = "ongoing"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

// eventTransitions lists the allowed source states per target state.
var eventTransitions = map[string][]string{
	EventPublished: {EventDraft},
	EventOngoing:   {EventPublished},
	EventCompleted: {EventOngoing},
	EventCancelled: {EventDraft, EventPublished, EventOngoing},
}

func CanTransition(from, to string) bool {
	for _, s := range eventTransitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

type SimulationEventModel struct {
	ID                   uuid.UUID          `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Title                string             `gorm:"size:200;not null;column:title" json:"title"`
	Description          *string            `gorm:"type:text;column:description" json:"description,omitempty"`
	ScenarioID           uuid.UUID          `gorm:"type:uuid;not null;index;column:scenario_id" json:"scenario_id"`
	TrainingModuleID     *uuid.UUID         `gorm:"type:uuid;index;column:training_module_id" json:"training_module_id,omitempty"`
	BarangayID           *uuid.UUID         `gorm:"type:uuid;index;column:barangay_id" json:"barangay_id,omitempty"`
	Location             string             `gorm:"size:255;column:location" json:"location"`
	StartsAt             time.Time          `gorm:"not null;index;column:starts_at" json:"starts_at"`
	EndsAt               time.Time          `gorm:"not null;column:ends_at" json:"ends_at"`
	Capacity             int                `gorm:"not null;column:capacity" json:"capacity"`
	RegistrationDeadline *time.Time         `gorm:"column:registration_deadline" json:"registration_deadline,omitempty"`
	Status               string             `gorm:"size:20;not null;index;column:status" json:"status"`
	TargetRoles          dbtypes.StringList `gorm:"column:target_roles" json:"target_roles"`
	CreatedBy            *uuid.UUID         `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`

	CancelReason   *string    `gorm:"type:text;column:cancel_reason" json:"cancel_reason,omitempty"`
	PublishedAt    *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	StartedAt      *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt    *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	ReminderSentAt *time.Time `gorm:"column:reminder_sent_at" json:"reminder_sent_at,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`
}

func (SimulationEventModel) TableName() string { return "simulation_events" }

func (m *SimulationEventModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// RegistrationOpen reports whether participants may still sign up at now.
func (m *SimulationEventModel) RegistrationOpen(now time.Time) bool {
	if m.Status != EventPublished {
		return false
	}
	if m.RegistrationDeadline != nil && now.After(*m.RegistrationDeadline) {
		return false
	}
	return now.Before(m.StartsAt)
}
