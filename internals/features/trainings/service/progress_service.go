package service

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/model"
)

// Percent is done/total*100 rounded to two decimals; an empty module is 0.
func Percent(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(done) / float64(total) * 100
	return math.Round(p*100) / 100
}

// Progress counts the caller's completed lessons in one module.
func Progress(ctx context.Context, db *gorm.DB, moduleID, userID uuid.UUID) (dto.ModuleProgress, error) {
	out := dto.ModuleProgress{ModuleID: moduleID}
	db = db.WithContext(ctx)

	if err := db.Model(&model.TrainingLessonModel{}).
		Where("module_id = ?", moduleID).
		Count(&out.TotalLessons).Error; err != nil {
		return out, err
	}
	if err := db.Model(&model.LessonCompletionModel{}).
		Joins("JOIN training_lessons l ON l.id = lesson_completions.lesson_id AND l.deleted_at IS NULL").
		Where("l.module_id = ? AND lesson_completions.user_id = ?", moduleID, userID).
		Count(&out.CompletedLessons).Error; err != nil {
		return out, err
	}
	out.Percent = Percent(out.CompletedLessons, out.TotalLessons)
	return out, nil
}

// ProgressForModules reports progress for every published module.
func ProgressForModules(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]dto.ModuleProgress, error) {
	var modules []model.TrainingModuleModel
	if err := db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("title ASC").
		Find(&modules).Error; err != nil {
		return nil, err
	}
	out := make([]dto.ModuleProgress, 0, len(modules))
	for _, m := range modules {
		p, err := Progress(ctx, db, m.ID, userID)
		if err != nil {
			return nil, err
		}
		p.Title = m.Title
		out = append(out, p)
	}
	return out, nil
}

// CompleteLesson records a completion once; created is false on repeats.
func CompleteLesson(ctx context.Context, db *gorm.DB, lessonID, userID uuid.UUID, now time.Time) (created bool, err error) {
	row := model.LessonCompletionModel{
		LessonID:    lessonID,
		UserID:      userID,
		CompletedAt: now.UTC(),
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lesson_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// NextLessonOrder returns one past the highest sort_order in the module.
func NextLessonOrder(db *gorm.DB, moduleID uuid.UUID) (int, error) {
	var max sql.NullInt64
	if err := db.Model(&model.TrainingLessonModel{}).
		Where("module_id = ?", moduleID).
		Select("MAX(sort_order)").
		Row().Scan(&max); err != nil {
		return 0, err
	}
	return int(max.Int64) + 1, nil
}

// ReorderLessons assigns sort_order 1..n following ids, which must be
// exactly the module's lessons.
func ReorderLessons(ctx context.Context, db *gorm.DB, moduleID uuid.UUID, ids []uuid.UUID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []uuid.UUID
		if err := tx.Model(&model.TrainingLessonModel{}).
			Where("module_id = ?", moduleID).
			Pluck("id", &existing).Error; err != nil {
			return err
		}
		if len(existing) != len(ids) {
			return ErrLessonSetMismatch
		}
		known := make(map[uuid.UUID]bool, len(existing))
		for _, id := range existing {
			known[id] = true
		}
		for i, id := range ids {
			if !known[id] {
				return ErrLessonSetMismatch
			}
			delete(known, id)
			if err := tx.Model(&model.TrainingLessonModel{}).
				Where("id = ?", id).
				Update("sort_order", i+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
