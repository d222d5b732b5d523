package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ResourceAvailable        = "available"
	ResourceInUse            = "in_use"
	ResourceUnderMaintenance = "under_maintenance"
	ResourceRetired          = "retired"
)

type ResourceModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Name              string     `gorm:"size:160;not null;column:name" json:"name"`
	Category          string     `gorm:"size:60;not null;index;column:category" json:"category"`
	Description       *string    `gorm:"type:text;column:description" json:"description,omitempty"`
	Unit              string     `gorm:"size:30;not null;column:unit" json:"unit"`
	QuantityTotal     int        `gorm:"not null;column:quantity_total" json:"quantity_total"`
	QuantityAvailable int        `gorm:"not null;column:quantity_available" json:"quantity_available"`
	Status            string     `gorm:"size:20;not null;index;column:status" json:"status"`
	Location          *string    `gorm:"size:255;column:location" json:"location,omitempty"`
	BarangayID        *uuid.UUID `gorm:"type:uuid;index;column:barangay_id" json:"barangay_id,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`
}

func (ResourceModel) TableName() string { return "resources" }

func (m *ResourceModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Assigned is the quantity currently out on events.
func (m *ResourceModel) Assigned() int { return m.QuantityTotal - m.QuantityAvailable }

// RecomputeStatus derives availability status. Retired and maintenance
// states are sticky until changed explicitly.
func (m *ResourceModel) RecomputeStatus() {
	if m.Status == ResourceRetired || m.Status == ResourceUnderMaintenance {
		return
	}
	if m.QuantityAvailable <= 0 {
		m.Status = ResourceInUse
		return
	}
	m.Status = ResourceAvailable
}

// IsLowStock is true when no more than a fifth of the stock is on hand.
func (m *ResourceModel) IsLowStock() bool {
	return m.QuantityTotal > 0 && m.QuantityAvailable*5 <= m.QuantityTotal
}

const (
	AssignmentAssigned = "assigned"
	AssignmentReturned = "returned"
)

type ResourceEventAssignmentModel struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	ResourceID       uuid.UUID  `gorm:"type:uuid;not null;index;column:resource_id" json:"resource_id"`
	EventID          uuid.UUID  `gorm:"type:uuid;not null;index;column:event_id" json:"event_id"`
	Quantity         int        `gorm:"not null;column:quantity" json:"quantity"`
	Status           string     `gorm:"size:20;not null;column:status" json:"status"`
	AssignedAt       time.Time  `gorm:"not null;column:assigned_at" json:"assigned_at"`
	AssignedBy       *uuid.UUID `gorm:"type:uuid;column:assigned_by" json:"assigned_by,omitempty"`
	ReturnedAt       *time.Time `gorm:"column:returned_at" json:"returned_at,omitempty"`
	ReturnedQuantity int        `gorm:"not null;column:returned_quantity" json:"returned_quantity"`
	DamagedQuantity  int        `gorm:"not null;column:damaged_quantity" json:"damaged_quantity"`
	Notes            *string    `gorm:"type:text;column:notes" json:"notes,omitempty"`

	Resource *ResourceModel `gorm:"foreignKey:ResourceID" json:"resource,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (ResourceEventAssignmentModel) TableName() string { return "resource_event_assignments" }

func (m *ResourceEventAssignmentModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

const (
	MaintenanceOpen      = "open"
	MaintenanceCompleted = "completed"
)

type ResourceMaintenanceLogModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	ResourceID      uuid.UUID  `gorm:"type:uuid;not null;index;column:resource_id" json:"resource_id"`
	MaintenanceType string     `gorm:"size:40;not null;column:maintenance_type" json:"maintenance_type"`
	Description     string     `gorm:"type:text;column:description" json:"description"`
	Cost            float64    `gorm:"not null;column:cost" json:"cost"`
	PerformedBy     *string    `gorm:"size:120;column:performed_by" json:"performed_by,omitempty"`
	StartedAt       time.Time  `gorm:"not null;column:started_at" json:"started_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Status          string     `gorm:"size:20;not null;index;column:status" json:"status"`
	RecordedBy      *uuid.UUID `gorm:"type:uuid;column:recorded_by" json:"recorded_by,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (ResourceMaintenanceLogModel) TableName() string { return "resource_maintenance_logs" }

func (m *ResourceMaintenanceLogModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
