package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	scenarioModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/mail"
)

// Transition moves ev to status `to` and stamps the matching timestamp.
// The update is conditional on the status read by the caller.
func Transition(ctx context.Context, db *gorm.DB, ev *model.SimulationEventModel, to, reason string, now time.Time) error {
	if !model.CanTransition(ev.Status, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, ev.Status, to)
	}
	db = db.WithContext(ctx)

	if to == model.EventPublished {
		var sc scenarioModel.ScenarioModel
		if err := db.Select("id", "status").First(&sc, "id = ?", ev.ScenarioID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrScenarioNotPublished
			}
			return err
		}
		if sc.Status != scenarioModel.StatusPublished {
			return ErrScenarioNotPublished
		}
	}

	changes := map[string]any{"status": to}
	switch to {
	case model.EventPublished:
		changes["published_at"] = now
		ev.PublishedAt = &now
	case model.EventOngoing:
		changes["started_at"] = now
		ev.StartedAt = &now
	case model.EventCompleted:
		changes["completed_at"] = now
		ev.CompletedAt = &now
	case model.EventCancelled:
		changes["cancelled_at"] = now
		ev.CancelledAt = &now
		if reason != "" {
			changes["cancel_reason"] = reason
			ev.CancelReason = &reason
		}
	}

	res := db.Model(&model.SimulationEventModel{}).
		Where("id = ? AND status = ?", ev.ID, ev.Status).
		Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
	}
	ev.Status = to
	return nil
}

// Registrants returns the users holding a registration in one of statuses.
func Registrants(ctx context.Context, db *gorm.DB, eventID uuid.UUID, statuses ...string) ([]userModel.UserModel, error) {
	var users []userModel.UserModel
	err := db.WithContext(ctx).Model(&userModel.UserModel{}).
		Joins("JOIN event_registrations r ON r.user_id = users.id").
		Where("r.event_id = ? AND r.status IN ?", eventID, statuses).
		Order("users.full_name ASC").
		Find(&users).Error
	return users, err
}

// NotifyCancelled mails every pending or approved registrant.
func NotifyCancelled(ctx context.Context, db *gorm.DB, ev *model.SimulationEventModel) int {
	users, err := Registrants(ctx, db, ev.ID, model.ActiveRegistrationStatuses...)
	if err != nil {
		zap.L().Error("load registrants for cancel notice", zap.String("event_id", ev.ID.String()), zap.Error(err))
		return 0
	}
	sender := mail.Default()
	for _, u := range users {
		mail.SendAsync(sender, mail.EventCancelledMessage(u.Email, u.FullName, ev.Title))
	}
	return len(users)
}

// ActiveCount counts pending and approved registrations, excluding one user.
func ActiveCount(db *gorm.DB, eventID uuid.UUID, exclude *uuid.UUID) (int64, error) {
	q := db.Model(&model.EventRegistrationModel{}).
		Where("event_id = ? AND status IN ?", eventID, model.ActiveRegistrationStatuses)
	if exclude != nil {
		q = q.Where("user_id <> ?", *exclude)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
