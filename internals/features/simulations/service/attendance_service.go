package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
)

// IsLate reports whether a check-in at `at` falls after the grace period.
func IsLate(startsAt, at time.Time, grace time.Duration) bool {
	return at.After(startsAt.Add(grace))
}

func approvedRegistration(db *gorm.DB, eventID, userID uuid.UUID) (*model.EventRegistrationModel, error) {
	var reg model.EventRegistrationModel
	if err := db.Where("event_id = ? AND user_id = ? AND status = ?", eventID, userID, model.RegistrationApproved).
		Take(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotApproved
		}
		return nil, err
	}
	return &reg, nil
}

func findAttendance(db *gorm.DB, registrationID uuid.UUID) (*model.AttendanceModel, error) {
	var a model.AttendanceModel
	if err := db.Where("registration_id = ?", registrationID).Take(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// CheckIn records arrival for an approved registrant of an ongoing event.
// Arrivals after starts_at plus ATTENDANCE_LATE_GRACE are marked late.
func CheckIn(ctx context.Context, db *gorm.DB, ev *model.SimulationEventModel, userID uuid.UUID, by *uuid.UUID, remarks *string, now time.Time) (*model.AttendanceModel, error) {
	if ev.Status != model.EventOngoing {
		return nil, ErrEventNotOngoing
	}
	db = db.WithContext(ctx)
	reg, err := approvedRegistration(db, ev.ID, userID)
	if err != nil {
		return nil, err
	}

	status := model.AttendancePresent
	if IsLate(ev.StartsAt, now, configs.Conf.LateGracePeriod) {
		status = model.AttendanceLate
	}

	a, err := findAttendance(db, reg.ID)
	if err != nil {
		return nil, err
	}
	if a != nil {
		if a.CheckedInAt != nil {
			return nil, ErrAlreadyCheckedIn
		}
		changes := map[string]any{"status": status, "checked_in_at": now, "recorded_by": by}
		if remarks != nil {
			changes["remarks"] = *remarks
		}
		if err := db.Model(a).Updates(changes).Error; err != nil {
			return nil, err
		}
		return a, db.First(a, "id = ?", a.ID).Error
	}

	a = &model.AttendanceModel{
		RegistrationID: reg.ID,
		EventID:        ev.ID,
		UserID:         userID,
		Status:         status,
		CheckedInAt:    &now,
		Remarks:        remarks,
		RecordedBy:     by,
	}
	if err := db.Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// CheckOut closes an open check-in while the event is ongoing or just completed.
func CheckOut(ctx context.Context, db *gorm.DB, ev *model.SimulationEventModel, userID uuid.UUID, now time.Time) (*model.AttendanceModel, error) {
	if ev.Status != model.EventOngoing && ev.Status != model.EventCompleted {
		return nil, ErrAttendanceClosed
	}
	db = db.WithContext(ctx)
	reg, err := approvedRegistration(db, ev.ID, userID)
	if err != nil {
		return nil, err
	}
	a, err := findAttendance(db, reg.ID)
	if err != nil {
		return nil, err
	}
	if a == nil || a.CheckedInAt == nil {
		return nil, ErrNotCheckedIn
	}
	if a.CheckedOutAt != nil {
		return nil, ErrAlreadyCheckedOut
	}
	if err := db.Model(a).Update("checked_out_at", now).Error; err != nil {
		return nil, err
	}
	a.CheckedOutAt = &now
	return a, nil
}

// BulkMark sets the status of many approved registrants in one transaction.
// Present and late keep an earlier check-in time; absent and excused clear it.
func BulkMark(ctx context.Context, db *gorm.DB, ev *model.SimulationEventModel, items []dto.BulkAttendanceItem, by *uuid.UUID, now time.Time) (int, error) {
	if ev.Status != model.EventOngoing && ev.Status != model.EventCompleted {
		return 0, ErrAttendanceClosed
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			reg, err := approvedRegistration(tx, ev.ID, it.UserID)
			if err != nil {
				if errors.Is(err, ErrNotApproved) {
					return fmt.Errorf("%w: %s", ErrNotApproved, it.UserID)
				}
				return err
			}
			a, err := findAttendance(tx, reg.ID)
			if err != nil {
				return err
			}

			var checkedIn, checkedOut *time.Time
			if model.Attended(it.Status) {
				checkedIn = &now
				if a != nil && a.CheckedInAt != nil {
					checkedIn, checkedOut = a.CheckedInAt, a.CheckedOutAt
				}
			}

			if a == nil {
				row := model.AttendanceModel{
					RegistrationID: reg.ID,
					EventID:        ev.ID,
					UserID:         it.UserID,
					Status:         it.Status,
					CheckedInAt:    checkedIn,
					Remarks:        it.Remarks,
					RecordedBy:     by,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
				continue
			}
			changes := map[string]any{
				"status":         it.Status,
				"checked_in_at":  checkedIn,
				"checked_out_at": checkedOut,
				"recorded_by":    by,
			}
			if it.Remarks != nil {
				changes["remarks"] = *it.Remarks
			}
			if err := tx.Model(a).Updates(changes).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Summary counts attendance per status against approved registrations.
func Summary(ctx context.Context, db *gorm.DB, eventID uuid.UUID) (dto.AttendanceSummary, error) {
	out := dto.AttendanceSummary{EventID: eventID}
	db = db.WithContext(ctx)

	if err := db.Model(&model.EventRegistrationModel{}).
		Where("event_id = ? AND status = ?", eventID, model.RegistrationApproved).
		Count(&out.Approved).Error; err != nil {
		return out, err
	}

	var rows []struct {
		Status string
		N      int64
	}
	if err := db.Model(&model.AttendanceModel{}).
		Select("attendances.status AS status, COUNT(*) AS n").
		Joins("JOIN event_registrations r ON r.id = attendances.registration_id").
		Where("attendances.event_id = ? AND r.status = ?", eventID, model.RegistrationApproved).
		Group("attendances.status").
		Scan(&rows).Error; err != nil {
		return out, err
	}

	var recorded int64
	for _, r := range rows {
		recorded += r.N
		switch r.Status {
		case model.AttendancePresent:
			out.Present = r.N
		case model.AttendanceLate:
			out.Late = r.N
		case model.AttendanceAbsent:
			out.Absent = r.N
		case model.AttendanceExcused:
			out.Excused = r.N
		}
	}
	if out.Approved > recorded {
		out.NotRecorded = out.Approved - recorded
	}
	if out.Approved > 0 {
		out.Rate = math.Round(float64(out.Present+out.Late)/float64(out.Approved)*10000) / 100
	}
	return out, nil
}
