package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type CreateResourceRequest struct {
	Name          string     `json:"name" validate:"required,min=2,max=160"`
	Category      string     `json:"category" validate:"required,max=60"`
	Description   *string    `json:"description"`
	Unit          string     `json:"unit" validate:"max=30"`
	QuantityTotal int        `json:"quantity_total" validate:"gte=0,lte=1000000"`
	Location      *string    `json:"location" validate:"omitempty,max=255"`
	BarangayID    *uuid.UUID `json:"barangay_id"`
}

func (r *CreateResourceRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Unit = strings.ToLower(strings.TrimSpace(r.Unit))
	if r.Unit == "" {
		r.Unit = "pcs"
	}
}

// UpdateResourceRequest changes metadata and stock. Status accepts only
// retired or available; maintenance goes through maintenance logs.
type UpdateResourceRequest struct {
	Name          *string    `json:"name" validate:"omitempty,min=2,max=160"`
	Category      *string    `json:"category" validate:"omitempty,max=60"`
	Description   *string    `json:"description"`
	Unit          *string    `json:"unit" validate:"omitempty,max=30"`
	QuantityTotal *int       `json:"quantity_total" validate:"omitempty,gte=0,lte=1000000"`
	Location      *string    `json:"location" validate:"omitempty,max=255"`
	BarangayID    *uuid.UUID `json:"barangay_id"`
	Status        *string    `json:"status" validate:"omitempty,oneof=available retired"`
}

type AssignRequest struct {
	EventID  uuid.UUID `json:"event_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gt=0"`
	Notes    *string   `json:"notes" validate:"omitempty,max=1000"`
}

type ReturnRequest struct {
	ReturnedQuantity int     `json:"returned_quantity" validate:"gte=0"`
	DamagedQuantity  int     `json:"damaged_quantity" validate:"gte=0"`
	Notes            *string `json:"notes" validate:"omitempty,max=1000"`
}

type OpenMaintenanceRequest struct {
	MaintenanceType string     `json:"maintenance_type" validate:"required,max=40"`
	Description     string     `json:"description" validate:"max=5000"`
	Cost            float64    `json:"cost" validate:"gte=0"`
	PerformedBy     *string    `json:"performed_by" validate:"omitempty,max=120"`
	StartedAt       *time.Time `json:"started_at"`
}

type CompleteMaintenanceRequest struct {
	Cost        *float64   `json:"cost" validate:"omitempty,gte=0"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	CompletedAt *time.Time `json:"completed_at"`
}

// AssignmentResponse is an assignment with resource and event names.
type AssignmentResponse struct {
	ID               uuid.UUID  `json:"id"`
	ResourceID       uuid.UUID  `json:"resource_id"`
	ResourceName     string     `json:"resource_name"`
	Unit             string     `json:"unit"`
	EventID          uuid.UUID  `json:"event_id"`
	EventTitle       string     `json:"event_title"`
	Quantity         int        `json:"quantity"`
	Status           string     `json:"status"`
	AssignedAt       time.Time  `json:"assigned_at"`
	ReturnedAt       *time.Time `json:"returned_at,omitempty"`
	ReturnedQuantity int        `json:"returned_quantity"`
	DamagedQuantity  int        `json:"damaged_quantity"`
	Notes            *string    `json:"notes,omitempty"`
}
