package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtime"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/mail"
)

type StatusResult struct {
	Started   int64
	Completed int64
}

// RunAutoStatus starts published events whose start has passed and
// completes ongoing events whose end has passed.
func RunAutoStatus(ctx context.Context, db *gorm.DB, now time.Time) (StatusResult, error) {
	var res StatusResult
	db = db.WithContext(ctx)

	started := db.Model(&model.SimulationEventModel{}).
		Where("status = ? AND starts_at <= ?", model.EventPublished, now).
		Updates(map[string]any{"status": model.EventOngoing, "started_at": now})
	if started.Error != nil {
		return res, started.Error
	}
	res.Started = started.RowsAffected

	completed := db.Model(&model.SimulationEventModel{}).
		Where("status = ? AND ends_at <= ?", model.EventOngoing, now).
		Updates(map[string]any{"status": model.EventCompleted, "completed_at": now})
	if completed.Error != nil {
		return res, completed.Error
	}
	res.Completed = completed.RowsAffected
	return res, nil
}

// RunReminders mails approved registrants of events starting within lead.
// Each event is reminded once, even when some deliveries fail.
func RunReminders(ctx context.Context, db *gorm.DB, now time.Time, lead time.Duration) (int, error) {
	db = db.WithContext(ctx)
	var events []model.SimulationEventModel
	if err := db.Where("status = ? AND reminder_sent_at IS NULL AND starts_at > ? AND starts_at <= ?",
		model.EventPublished, now, now.Add(lead)).
		Find(&events).Error; err != nil {
		return 0, err
	}

	sender := mail.Default()
	sent := 0
	for i := range events {
		ev := &events[i]
		users, err := service.Registrants(ctx, db, ev.ID, model.RegistrationApproved)
		if err != nil {
			return sent, err
		}
		for _, u := range users {
			msg := mail.EventReminderMessage(u.Email, u.FullName, ev.Title, ev.Location, dbtime.ToLocal(ev.StartsAt))
			if err := sender.Send(ctx, msg); err != nil {
				zap.L().Warn("event reminder failed", zap.String("event_id", ev.ID.String()), zap.String("to", u.Email), zap.Error(err))
				continue
			}
			sent++
		}
		if err := db.Model(ev).Update("reminder_sent_at", now).Error; err != nil {
			return sent, err
		}
	}
	return sent, nil
}

// RegisterJobs schedules status upkeep every minute and reminders every
// fifteen minutes.
func RegisterJobs(c *cron.Cron, db *gorm.DB) error {
	if _, err := c.AddFunc("@every 1m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		res, err := RunAutoStatus(ctx, db, time.Now().UTC())
		if err != nil {
			zap.L().Error("event auto-status failed", zap.Error(err))
			return
		}
		if res.Started > 0 || res.Completed > 0 {
			zap.L().Info("event statuses advanced", zap.Int64("started", res.Started), zap.Int64("completed", res.Completed))
		}
	}); err != nil {
		return err
	}

	_, err := c.AddFunc("@every 15m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		n, err := RunReminders(ctx, db, time.Now().UTC(), configs.Conf.EventReminderLead)
		if err != nil {
			zap.L().Error("event reminders failed", zap.Error(err))
			return
		}
		if n > 0 {
			zap.L().Info("event reminders sent", zap.Int("messages", n))
		}
	})
	return err
}
