package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/model"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
)

// Create opens an evaluation for a completed event. One per event.
func Create(ctx context.Context, db *gorm.DB, req dto.CreateEvaluationRequest, evaluator *uuid.UUID) (*model.EvaluationModel, error) {
	if err := ValidateCriteria(req.Criteria); err != nil {
		return nil, err
	}
	passing := model.DefaultPassingScore
	if req.PassingScore != nil {
		passing = *req.PassingScore
	}

	var ev model.EvaluationModel
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event simModel.SimulationEventModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").First(&event, "id = ?", req.EventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if event.Status != simModel.EventCompleted {
			return ErrEventNotCompleted
		}
		var n int64
		if err := tx.Model(&model.EvaluationModel{}).Where("event_id = ?", event.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEvaluationExists
		}
		ev = model.EvaluationModel{
			EventID:      event.ID,
			Title:        req.Title,
			Criteria:     req.Criteria,
			PassingScore: passing,
			Status:       model.EvaluationDraft,
			EvaluatorID:  evaluator,
		}
		return tx.Create(&ev).Error
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Update edits an open evaluation. Criteria are frozen once any result
// exists; a new passing score re-grades existing results.
func Update(ctx context.Context, db *gorm.DB, id uuid.UUID, req dto.UpdateEvaluationRequest) (*model.EvaluationModel, error) {
	var ev *model.EvaluationModel
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if ev, err = lockOpen(tx, id); err != nil {
			return err
		}
		changes := map[string]any{}
		if req.Title != nil {
			changes["title"] = *req.Title
		}
		if req.EvaluatorID != nil {
			changes["evaluator_id"] = *req.EvaluatorID
		}
		if req.Criteria != nil {
			criteria := dto.NormalizeCriteria(*req.Criteria)
			if err := ValidateCriteria(criteria); err != nil {
				return err
			}
			var scored int64
			if err := tx.Model(&model.ParticipantEvaluationModel{}).
				Where("evaluation_id = ?", ev.ID).Count(&scored).Error; err != nil {
				return err
			}
			if scored > 0 {
				return ErrCriteriaLocked
			}
			ev.Criteria = criteria
			changes["criteria"] = ev.Criteria
		}
		if req.PassingScore != nil {
			changes["passing_score"] = *req.PassingScore
			if err := tx.Model(&model.ParticipantEvaluationModel{}).
				Where("evaluation_id = ?", ev.ID).
				Update("passed", gorm.Expr("percentage >= ?", *req.PassingScore)).Error; err != nil {
				return err
			}
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(ev).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(ev, "id = ?", ev.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// SubmitScores upserts a participant's criterion scores and recalculates
// their result. The participant must have attended the event.
func SubmitScores(ctx context.Context, db *gorm.DB, id uuid.UUID, req dto.SubmitScoresRequest, by *uuid.UUID, now time.Time) (*model.ParticipantEvaluationModel, error) {
	var pe model.ParticipantEvaluationModel
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockOpen(tx, id)
		if err != nil {
			return err
		}
		scores, err := CheckScores(ev, req.Scores)
		if err != nil {
			return err
		}

		var att simModel.AttendanceModel
		if err := tx.Where("event_id = ? AND user_id = ?", ev.EventID, req.UserID).
			Take(&att).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotAttended
			}
			return err
		}
		if !simModel.Attended(att.Status) {
			return ErrNotAttended
		}

		err = tx.Where("evaluation_id = ? AND user_id = ?", ev.ID, req.UserID).Take(&pe).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			pe = model.ParticipantEvaluationModel{
				EvaluationID: ev.ID,
				UserID:       req.UserID,
				AttendanceID: &att.ID,
			}
			if err := tx.Create(&pe).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		for i := range scores {
			scores[i].ParticipantEvaluationID = pe.ID
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "participant_evaluation_id"}, {Name: "criterion"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "max_score", "weight", "comment", "updated_at"}),
		}).Create(&scores).Error; err != nil {
			return err
		}

		var all []model.EvaluationScoreModel
		if err := tx.Where("participant_evaluation_id = ?", pe.ID).Find(&all).Error; err != nil {
			return err
		}
		t := CalculateScores(all, ev.PassingScore)
		changes := map[string]any{
			"total_score":  t.Total,
			"max_score":    t.Max,
			"percentage":   t.Percentage,
			"passed":       t.Passed,
			"evaluated_by": by,
			"evaluated_at": now,
		}
		if req.Remarks != nil {
			changes["remarks"] = *req.Remarks
		}
		if err := tx.Model(&pe).Updates(changes).Error; err != nil {
			return err
		}
		if ev.Status == model.EvaluationDraft {
			if err := tx.Model(ev).Update("status", model.EvaluationInProgress).Error; err != nil {
				return err
			}
		}
		return tx.Preload("Scores", func(db *gorm.DB) *gorm.DB {
			return db.Order("criterion ASC")
		}).First(&pe, "id = ?", pe.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &pe, nil
}

// Finalize locks the evaluation against further scoring.
func Finalize(ctx context.Context, db *gorm.DB, id uuid.UUID, now time.Time) (*model.EvaluationModel, error) {
	var ev *model.EvaluationModel
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if ev, err = lockOpen(tx, id); err != nil {
			return err
		}
		res := tx.Model(&model.EvaluationModel{}).
			Where("id = ? AND status = ?", ev.ID, ev.Status).
			Updates(map[string]any{"status": model.EvaluationFinalized, "finalized_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrFinalized
		}
		return tx.First(ev, "id = ?", ev.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// FinalizedResult returns the user's result for an event when the event
// has a finalized evaluation. ok is false when there is none to apply.
func FinalizedResult(ctx context.Context, db *gorm.DB, eventID, userID uuid.UUID) (pe *model.ParticipantEvaluationModel, ok bool, err error) {
	var ev model.EvaluationModel
	err = db.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, model.EvaluationFinalized).
		Take(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var row model.ParticipantEvaluationModel
	err = db.WithContext(ctx).Where("evaluation_id = ? AND user_id = ?", ev.ID, userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &row, true, nil
}

func lockOpen(tx *gorm.DB, id uuid.UUID) (*model.EvaluationModel, error) {
	var ev model.EvaluationModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ev, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEvaluationNotFound
		}
		return nil, err
	}
	if ev.IsFinalized() {
		return nil, ErrFinalized
	}
	return &ev, nil
}
