package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/service"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/storage"
)

// POST /api/admin/training-modules/:id/lessons
func (tc *TrainingController) CreateLesson(c *fiber.Ctx) error {
	m, err := tc.loadModule(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}

	db := tc.DB.WithContext(c.UserContext())
	order := req.SortOrder
	if order == 0 {
		if order, err = service.NextLessonOrder(db, m.ID); err != nil {
			return helper.DBError(err)
		}
	}
	l := model.TrainingLessonModel{
		ModuleID:        m.ID,
		Title:           req.Title,
		Content:         req.Content,
		SortOrder:       order,
		DurationMinutes: req.DurationMinutes,
	}
	if err := db.Create(&l).Error; err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, tc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityLesson,
		EntityID:    l.ID,
		Description: "added lesson " + l.Title + " to " + m.Title,
	})
	return helper.JsonCreated(c, "lesson created", l)
}

// PUT /api/admin/training-modules/:id/lessons/order
func (tc *TrainingController) ReorderLessons(c *fiber.Ctx) error {
	m, err := tc.loadModule(c, "id")
	if err != nil {
		return err
	}
	var req dto.ReorderLessonsRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	if err := service.ReorderLessons(c.UserContext(), tc.DB, m.ID, req.LessonIDs); err != nil {
		if errors.Is(err, service.ErrLessonSetMismatch) {
			return helper.NewFieldError("lesson_ids", err.Error())
		}
		return helper.DBError(err)
	}

	var lessons []model.TrainingLessonModel
	if err := tc.DB.WithContext(c.UserContext()).
		Where("module_id = ?", m.ID).
		Order("sort_order ASC").
		Find(&lessons).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonUpdated(c, "lessons reordered", lessons)
}

// GET /training-lessons/:lessonId
func (tc *TrainingController) GetLesson(c *fiber.Ctx) error {
	l, err := tc.loadLesson(c)
	if err != nil {
		return err
	}
	db := tc.DB.WithContext(c.UserContext())

	var materials []model.LessonMaterialModel
	if err := db.Where("lesson_id = ?", l.ID).Order("created_at ASC").Find(&materials).Error; err != nil {
		return helper.DBError(err)
	}
	html, err := helper.RenderMarkdown(l.Content)
	if err != nil {
		zap.L().Warn("lesson markdown render failed", zap.String("lesson_id", l.ID.String()), zap.Error(err))
	}

	out := dto.LessonDetail{
		ID:              l.ID,
		ModuleID:        l.ModuleID,
		Title:           l.Title,
		Content:         l.Content,
		ContentHTML:     html,
		SortOrder:       l.SortOrder,
		DurationMinutes: l.DurationMinutes,
		Materials:       materials,
	}
	if uid := helperAuth.OptionalUserID(c); uid != nil {
		var done model.LessonCompletionModel
		err := db.Where("lesson_id = ? AND user_id = ?", l.ID, *uid).Take(&done).Error
		switch {
		case err == nil:
			out.Completed, out.CompletedAt = true, &done.CompletedAt
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return helper.DBError(err)
		}
	}
	return helper.JsonOK(c, "ok", out)
}

// PATCH /api/admin/training-lessons/:lessonId
func (tc *TrainingController) UpdateLesson(c *fiber.Ctx) error {
	l, err := tc.loadLesson(c)
	if err != nil {
		return err
	}
	var req dto.UpdateLessonRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	changes := map[string]any{}
	if req.Title != nil {
		changes["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		changes["content"] = *req.Content
	}
	if req.SortOrder != nil {
		changes["sort_order"] = *req.SortOrder
	}
	if req.DurationMinutes != nil {
		changes["duration_minutes"] = *req.DurationMinutes
	}
	if len(changes) == 0 {
		return helper.JsonOK(c, "nothing to update", l)
	}

	db := tc.DB.WithContext(c.UserContext())
	if err := db.Model(l).Updates(changes).Error; err != nil {
		return helper.DBError(err)
	}
	if err := db.First(l, "id = ?", l.ID).Error; err != nil {
		return helper.DBError(err)
	}

	delete(changes, "content")
	audit.Record(c, tc.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityLesson,
		EntityID:   l.ID,
		Changes:    changes,
	})
	return helper.JsonUpdated(c, "lesson updated", l)
}

// DELETE /api/admin/training-lessons/:lessonId
func (tc *TrainingController) DeleteLesson(c *fiber.Ctx) error {
	l, err := tc.loadLesson(c)
	if err != nil {
		return err
	}
	if err := tc.DB.WithContext(c.UserContext()).Delete(l).Error; err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, tc.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityLesson,
		EntityID:    l.ID,
		Description: "deleted lesson " + l.Title,
	})
	return helper.JsonDeleted(c, "lesson deleted", fiber.Map{"id": l.ID})
}

// POST /api/u/training-lessons/:lessonId/complete
// Repeating the call keeps the first completion time.
func (tc *TrainingController) CompleteLesson(c *fiber.Ctx) error {
	l, err := tc.loadLesson(c)
	if err != nil {
		return err
	}
	uid, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	created, err := service.CompleteLesson(ctx, tc.DB, l.ID, uid, time.Now())
	if err != nil {
		return helper.DBError(err)
	}
	p, err := service.Progress(ctx, tc.DB, l.ModuleID, uid)
	if err != nil {
		return helper.DBError(err)
	}
	msg := "lesson already completed"
	if created {
		msg = "lesson completed"
	}
	return helper.JsonOK(c, msg, p)
}

/* ===============================
   Materials
=================================*/

// POST /api/admin/training-lessons/:lessonId/materials (multipart: title, file)
func (tc *TrainingController) UploadMaterial(c *fiber.Ctx) error {
	l, err := tc.loadLesson(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return helper.NewFieldError("file", "is required")
	}
	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		title = fh.Filename
	}
	if len(title) > 200 {
		return helper.NewFieldError("title", "must be at most 200")
	}

	ctx := c.UserContext()
	obj, err := storage.UploadFormFile(ctx, storage.Default(), "materials/"+l.ID.String(), fh)
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe
		}
		zap.L().Error("material upload failed", zap.String("lesson_id", l.ID.String()), zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "failed to store file")
	}

	mat := model.LessonMaterialModel{
		LessonID:   l.ID,
		Title:      title,
		FileURL:    obj.URL,
		ObjectKey:  obj.Key,
		FileType:   constants.DetectFileTypeFromExt(fh.Filename),
		FileSize:   obj.Size,
		UploadedBy: helperAuth.OptionalUserID(c),
	}
	if err := tc.DB.WithContext(ctx).Create(&mat).Error; err != nil {
		if delErr := storage.Default().Delete(ctx, obj.Key); delErr != nil {
			zap.L().Warn("orphaned upload", zap.String("key", obj.Key), zap.Error(delErr))
		}
		return helper.DBError(err)
	}

	audit.Record(c, tc.DB, audit.Entry{
		Action:      audit.ActionUpload,
		EntityType:  entityMaterial,
		EntityID:    mat.ID,
		Description: "uploaded " + mat.Title,
		Changes:     map[string]any{"file_type": mat.FileType, "file_size": mat.FileSize},
	})
	return helper.JsonCreated(c, "material uploaded", mat)
}

// DELETE /api/admin/lesson-materials/:materialId
func (tc *TrainingController) DeleteMaterial(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "materialId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ctx := c.UserContext()
	var mat model.LessonMaterialModel
	if err := tc.DB.WithContext(ctx).First(&mat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "material not found")
		}
		return helper.DBError(err)
	}
	if err := tc.DB.WithContext(ctx).Delete(&mat).Error; err != nil {
		return helper.DBError(err)
	}
	if err := storage.Default().Delete(ctx, mat.ObjectKey); err != nil {
		zap.L().Warn("storage delete failed", zap.String("key", mat.ObjectKey), zap.Error(err))
	}

	audit.Record(c, tc.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityMaterial,
		EntityID:    mat.ID,
		Description: "deleted " + mat.Title,
	})
	return helper.JsonDeleted(c, "material deleted", fiber.Map{"id": mat.ID})
}

// loadLesson hides lessons of unpublished modules from non-staff callers.
func (tc *TrainingController) loadLesson(c *fiber.Ctx) (*model.TrainingLessonModel, error) {
	id, err := helper.ParseUUIDParam(c, "lessonId")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q := tc.DB.WithContext(c.UserContext()).Model(&model.TrainingLessonModel{}).
		Joins("JOIN training_modules m ON m.id = training_lessons.module_id AND m.deleted_at IS NULL").
		Where("training_lessons.id = ?", id)
	if !helperAuth.IsStaff(c) {
		q = q.Where("m.is_published = ?", true)
	}

	var l model.TrainingLessonModel
	if err := q.Take(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "lesson not found")
		}
		return nil, helper.DBError(err)
	}
	return &l, nil
}
