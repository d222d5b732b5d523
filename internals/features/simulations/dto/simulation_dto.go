package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
)

/* ===============================
   Events
=================================*/

type CreateEventRequest struct {
	Title                string     `json:"title" validate:"required,min=3,max=200"`
	Description          *string    `json:"description"`
	ScenarioID           uuid.UUID  `json:"scenario_id" validate:"required"`
	TrainingModuleID     *uuid.UUID `json:"training_module_id"`
	BarangayID           *uuid.UUID `json:"barangay_id"`
	Location             string     `json:"location" validate:"max=255"`
	StartsAt             time.Time  `json:"starts_at" validate:"required"`
	EndsAt               time.Time  `json:"ends_at" validate:"required"`
	Capacity             int        `json:"capacity" validate:"gte=0,lte=100000"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	TargetRoles          []string   `json:"target_roles" validate:"omitempty,dive,oneof=admin trainer evaluator participant"`
}

func (r *CreateEventRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Location = strings.TrimSpace(r.Location)
	r.StartsAt = r.StartsAt.UTC()
	r.EndsAt = r.EndsAt.UTC()
	if r.RegistrationDeadline != nil {
		d := r.RegistrationDeadline.UTC()
		r.RegistrationDeadline = &d
	}
	r.TargetRoles = NormalizeRoles(r.TargetRoles)
}

type UpdateEventRequest struct {
	Title                *string    `json:"title" validate:"omitempty,min=3,max=200"`
	Description          *string    `json:"description"`
	ScenarioID           *uuid.UUID `json:"scenario_id"`
	TrainingModuleID     *uuid.UUID `json:"training_module_id"`
	BarangayID           *uuid.UUID `json:"barangay_id"`
	Location             *string    `json:"location" validate:"omitempty,max=255"`
	StartsAt             *time.Time `json:"starts_at"`
	EndsAt               *time.Time `json:"ends_at"`
	Capacity             *int       `json:"capacity" validate:"omitempty,gte=0,lte=100000"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	ClearDeadline        bool       `json:"clear_deadline"`
	TargetRoles          *[]string  `json:"target_roles" validate:"omitempty,dive,oneof=admin trainer evaluator participant"`
}

// CheckWindow validates the schedule shared by create and update.
func CheckWindow(start, end time.Time, deadline *time.Time) error {
	if !end.After(start) {
		return helper.NewFieldError("ends_at", "ends_at must be after starts_at")
	}
	if deadline != nil && deadline.After(start) {
		return helper.NewFieldError("registration_deadline", "registration deadline must not be after starts_at")
	}
	return nil
}

type CancelEventRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// NormalizeRoles lowercases and de-duplicates target roles.
func NormalizeRoles(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, r := range in {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

/* ===============================
   Registrations
=================================*/

type RegisterRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

// RegisterOnBehalfRequest lets staff enroll a user directly as approved.
type RegisterOnBehalfRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Notes  *string   `json:"notes" validate:"omitempty,max=1000"`
}

type ReviewRegistrationRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

type RegistrationResponse struct {
	ID           uuid.UUID  `json:"id"`
	EventID      uuid.UUID  `json:"event_id"`
	UserID       uuid.UUID  `json:"user_id"`
	UserName     string     `json:"user_name,omitempty"`
	FullName     string     `json:"full_name,omitempty"`
	Email        string     `json:"email,omitempty"`
	Status       string     `json:"status"`
	RegisteredAt time.Time  `json:"registered_at"`
	Notes        *string    `json:"notes,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	EventTitle   string     `json:"event_title,omitempty"`
	EventStarts  *time.Time `json:"event_starts_at,omitempty"`
}

/* ===============================
   Attendance
=================================*/

// AttendeeRequest names the participant when staff record attendance.
type AttendeeRequest struct {
	UserID  uuid.UUID `json:"user_id" validate:"required"`
	Remarks *string   `json:"remarks" validate:"omitempty,max=1000"`
}

type BulkAttendanceItem struct {
	UserID  uuid.UUID `json:"user_id" validate:"required"`
	Status  string    `json:"status" validate:"required,oneof=present late absent excused"`
	Remarks *string   `json:"remarks" validate:"omitempty,max=1000"`
}

type BulkAttendanceRequest struct {
	Records []BulkAttendanceItem `json:"records" validate:"required,min=1,max=1000,dive"`
}

type AttendanceResponse struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	FullName     string     `json:"full_name,omitempty"`
	Status       string     `json:"status"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
	Remarks      *string    `json:"remarks,omitempty"`
}

type AttendanceSummary struct {
	EventID     uuid.UUID `json:"event_id"`
	Approved    int64     `json:"approved"`
	Present     int64     `json:"present"`
	Late        int64     `json:"late"`
	Absent      int64     `json:"absent"`
	Excused     int64     `json:"excused"`
	NotRecorded int64     `json:"not_recorded"`
	// Rate is (present + late) / approved in percent.
	Rate float64 `json:"attendance_rate"`
}

// EventResponse adds seat counts to an event row.
type EventResponse struct {
	model.SimulationEventModel
	RegisteredCount int64 `json:"registered_count"`
	// SpotsLeft is nil for unlimited events.
	SpotsLeft *int64 `json:"spots_left"`
}

func ToEventResponse(ev *model.SimulationEventModel, registered int64) EventResponse {
	out := EventResponse{SimulationEventModel: *ev, RegisteredCount: registered}
	if ev.Capacity > 0 {
		left := int64(ev.Capacity) - registered
		if left < 0 {
			left = 0
		}
		out.SpotsLeft = &left
	}
	return out
}
