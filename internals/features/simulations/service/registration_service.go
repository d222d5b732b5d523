package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
)

type RegisterOptions struct {
	// ByStaff approves immediately and ignores the deadline and target roles.
	ByStaff    bool
	ReviewerID *uuid.UUID
	Notes      *string
}

// Register signs a user up for an event. Self sign-ups start pending.
// A cancelled registration is reactivated instead of inserting a new row.
func Register(ctx context.Context, db *gorm.DB, eventID, userID uuid.UUID, opts RegisterOptions, now time.Time) (*model.EventRegistrationModel, error) {
	var out model.EventRegistrationModel
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev model.SimulationEventModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ev, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		var u userModel.UserModel
		if err := tx.Select("id", "role", "is_active").
			First(&u, "id = ? AND is_active = ?", userID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if opts.ByStaff {
			if ev.Status != model.EventPublished && ev.Status != model.EventOngoing {
				return ErrRegistrationClosed
			}
		} else {
			if !ev.RegistrationOpen(now) {
				return ErrRegistrationClosed
			}
			if len(ev.TargetRoles) > 0 && !ev.TargetRoles.Contains(u.Role) {
				return ErrRoleNotTargeted
			}
		}

		var existing model.EventRegistrationModel
		found := true
		if err := tx.Where("event_id = ? AND user_id = ?", eventID, userID).Take(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			found = false
		}
		if found {
			switch existing.Status {
			case model.RegistrationPending, model.RegistrationApproved:
				return ErrAlreadyRegistered
			case model.RegistrationRejected:
				if !opts.ByStaff {
					return ErrRegistrationRejected
				}
			}
		}

		if ev.Capacity > 0 {
			n, err := ActiveCount(tx, eventID, &userID)
			if err != nil {
				return err
			}
			if n >= int64(ev.Capacity) {
				return ErrEventFull
			}
		}

		status := model.RegistrationPending
		var reviewedAt *time.Time
		if opts.ByStaff {
			status = model.RegistrationApproved
			reviewedAt = &now
		}

		if found {
			if err := tx.Model(&existing).Updates(map[string]any{
				"status":        status,
				"registered_at": now,
				"notes":         opts.Notes,
				"reviewed_by":   opts.ReviewerID,
				"reviewed_at":   reviewedAt,
			}).Error; err != nil {
				return err
			}
			return tx.First(&out, "id = ?", existing.ID).Error
		}

		out = model.EventRegistrationModel{
			EventID:      eventID,
			UserID:       userID,
			Status:       status,
			RegisteredAt: now,
			Notes:        opts.Notes,
			ReviewedBy:   opts.ReviewerID,
			ReviewedAt:   reviewedAt,
		}
		return tx.Create(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelOwn withdraws a pending or approved registration before the event starts.
func CancelOwn(ctx context.Context, db *gorm.DB, eventID, userID uuid.UUID, now time.Time) (*model.EventRegistrationModel, error) {
	db = db.WithContext(ctx)
	var reg model.EventRegistrationModel
	if err := db.Where("event_id = ? AND user_id = ? AND status IN ?", eventID, userID, model.ActiveRegistrationStatuses).
		Take(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	var ev model.SimulationEventModel
	if err := db.Select("id", "status", "starts_at").First(&ev, "id = ?", eventID).Error; err != nil {
		return nil, err
	}
	if ev.Status != model.EventDraft && ev.Status != model.EventPublished {
		return nil, ErrRegistrationLocked
	}
	if !now.Before(ev.StartsAt) {
		return nil, ErrRegistrationLocked
	}
	if err := db.Model(&reg).Update("status", model.RegistrationCancelled).Error; err != nil {
		return nil, err
	}
	reg.Status = model.RegistrationCancelled
	return &reg, nil
}

// Review approves or rejects a registration. Only pending rows can be
// approved; approved rows can still be rejected until attendance exists.
func Review(ctx context.Context, db *gorm.DB, regID uuid.UUID, approve bool, reviewer *uuid.UUID, notes *string, now time.Time) (*model.EventRegistrationModel, error) {
	db = db.WithContext(ctx)
	var reg model.EventRegistrationModel
	if err := db.First(&reg, "id = ?", regID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}

	var ev model.SimulationEventModel
	if err := db.Select("id", "status").First(&ev, "id = ?", reg.EventID).Error; err != nil {
		return nil, err
	}
	if ev.Status == model.EventCompleted || ev.Status == model.EventCancelled {
		return nil, ErrRegistrationLocked
	}

	to := model.RegistrationRejected
	if approve {
		to = model.RegistrationApproved
		if reg.Status != model.RegistrationPending {
			return nil, ErrInvalidReview
		}
	} else {
		if reg.Status != model.RegistrationPending && reg.Status != model.RegistrationApproved {
			return nil, ErrInvalidReview
		}
		var n int64
		if err := db.Model(&model.AttendanceModel{}).Where("registration_id = ?", reg.ID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, ErrRegistrationLocked
		}
	}

	changes := map[string]any{"status": to, "reviewed_by": reviewer, "reviewed_at": now}
	if notes != nil {
		changes["notes"] = *notes
	}
	if err := db.Model(&reg).Updates(changes).Error; err != nil {
		return nil, err
	}
	if err := db.First(&reg, "id = ?", reg.ID).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}
