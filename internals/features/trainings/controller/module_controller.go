package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/service"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

const (
	entityModule   = "training_module"
	entityLesson   = "training_lesson"
	entityMaterial = "lesson_material"
	slugMaxLen     = 160
)

var validate = helper.NewValidator()

type TrainingController struct {
	DB *gorm.DB
}

func NewTrainingController(db *gorm.DB) *TrainingController {
	return &TrainingController{DB: db}
}

var moduleSort = map[string]string{
	"title":      "title",
	"created_at": "created_at",
	"category":   "category",
	"duration":   "duration_minutes",
}

// GET /training-modules?q=&category=&difficulty=&published=
// Non-staff callers only see published modules.
func (tc *TrainingController) ListModules(c *fiber.Ctx) error {
	q := tc.DB.WithContext(c.UserContext()).Model(&model.TrainingModuleModel{})

	if !helperAuth.IsStaff(c) {
		q = q.Where("is_published = ?", true)
	} else if pub := helper.ParseBoolQuery(c, "published"); pub != nil {
		q = q.Where("is_published = ?", *pub)
	}
	if s := strings.ToLower(strings.TrimSpace(c.Query("q"))); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?", like, like)
	}
	if v := strings.ToLower(strings.TrimSpace(c.Query("category"))); v != "" {
		q = q.Where("category = ?", v)
	}
	if v := strings.ToLower(strings.TrimSpace(c.Query("difficulty"))); v != "" {
		q = q.Where("difficulty = ?", v)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.DBError(err)
	}
	p := helper.ResolvePaging(c, helper.DefaultPerPage, helper.MaxPerPage)
	var rows []model.TrainingModuleModel
	if err := q.Order(helper.SafeOrder(c, moduleSort, "created_at", "desc")).
		Offset(p.Offset).Limit(p.Limit).Find(&rows).Error; err != nil {
		return helper.DBError(err)
	}

	counts, err := tc.lessonCounts(c, rows)
	if err != nil {
		return helper.DBError(err)
	}
	out := make([]dto.ModuleResponse, 0, len(rows))
	for i := range rows {
		out = append(out, dto.ToModuleResponse(&rows[i], counts[rows[i].ID]))
	}
	return helper.JsonList(c, "ok", out, p.Build(total))
}

// GET /training-modules/:id (uuid or slug)
func (tc *TrainingController) GetModule(c *fiber.Ctx) error {
	m, err := tc.loadModule(c, "id")
	if err != nil {
		return err
	}

	var lessons []model.TrainingLessonModel
	if err := tc.DB.WithContext(c.UserContext()).
		Where("module_id = ?", m.ID).
		Order("sort_order ASC, created_at ASC").
		Find(&lessons).Error; err != nil {
		return helper.DBError(err)
	}

	done := map[uuid.UUID]bool{}
	if uid := helperAuth.OptionalUserID(c); uid != nil && len(lessons) > 0 {
		var ids []uuid.UUID
		if err := tc.DB.WithContext(c.UserContext()).Model(&model.LessonCompletionModel{}).
			Where("user_id = ? AND lesson_id IN ?", *uid, lessonIDs(lessons)).
			Pluck("lesson_id", &ids).Error; err != nil {
			return helper.DBError(err)
		}
		for _, id := range ids {
			done[id] = true
		}
	}

	resp := dto.ToModuleResponse(m, len(lessons))
	for _, l := range lessons {
		completed := done[l.ID]
		resp.Lessons = append(resp.Lessons, dto.LessonSummary{
			ID:              l.ID,
			Title:           l.Title,
			SortOrder:       l.SortOrder,
			DurationMinutes: l.DurationMinutes,
			Completed:       &completed,
		})
	}
	return helper.JsonOK(c, "ok", resp)
}

// POST /api/admin/training-modules
func (tc *TrainingController) CreateModule(c *fiber.Ctx) error {
	var req dto.CreateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Normalize()
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	slug, err := helper.EnsureUniqueSlug(ctx, tc.DB, "training_modules", "slug", helper.Slugify(req.Title, slugMaxLen), nil, slugMaxLen)
	if err != nil {
		return helper.DBError(err)
	}
	m := model.TrainingModuleModel{
		Title:           req.Title,
		Slug:            slug,
		Description:     req.Description,
		Category:        req.Category,
		Difficulty:      req.Difficulty,
		DurationMinutes: req.DurationMinutes,
		CreatedBy:       helperAuth.OptionalUserID(c),
	}
	if err := tc.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, tc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityModule,
		EntityID:    m.ID,
		Description: "created module " + m.Title,
	})
	return helper.JsonCreated(c, "module created", dto.ToModuleResponse(&m, 0))
}

// PATCH /api/admin/training-modules/:id
func (tc *TrainingController) UpdateModule(c *fiber.Ctx) error {
	m, err := tc.loadModule(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateModuleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	changes := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title != m.Title {
			slug, err := helper.EnsureUniqueSlug(ctx, tc.DB, "training_modules", "slug", helper.Slugify(title, slugMaxLen), m.ID, slugMaxLen)
			if err != nil {
				return helper.DBError(err)
			}
			changes["title"], changes["slug"] = title, slug
		}
	}
	if req.Description != nil {
		changes["description"] = req.Description
	}
	if req.Category != nil {
		changes["category"] = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Difficulty != nil {
		changes["difficulty"] = strings.ToLower(*req.Difficulty)
	}
	if req.DurationMinutes != nil {
		changes["duration_minutes"] = *req.DurationMinutes
	}
	if len(changes) == 0 {
		return helper.JsonOK(c, "nothing to update", tc.moduleResponse(c, m))
	}

	db := tc.DB.WithContext(ctx)
	if err := db.Model(m).Updates(changes).Error; err != nil {
		return helper.DBError(err)
	}
	if err := db.First(m, "id = ?", m.ID).Error; err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, tc.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityModule,
		EntityID:   m.ID,
		Changes:    changes,
	})
	return helper.JsonUpdated(c, "module updated", tc.moduleResponse(c, m))
}

// PATCH /api/admin/training-modules/:id/publish
func (tc *TrainingController) PublishModule(c *fiber.Ctx) error { return tc.setPublished(c, true) }

// PATCH /api/admin/training-modules/:id/unpublish
func (tc *TrainingController) UnpublishModule(c *fiber.Ctx) error { return tc.setPublished(c, false) }

func (tc *TrainingController) setPublished(c *fiber.Ctx, publish bool) error {
	m, err := tc.loadModule(c, "id")
	if err != nil {
		return err
	}
	if m.IsPublished == publish {
		return helper.JsonOK(c, "no change", tc.moduleResponse(c, m))
	}

	db := tc.DB.WithContext(c.UserContext())
	if publish {
		var lessons int64
		if err := db.Model(&model.TrainingLessonModel{}).Where("module_id = ?", m.ID).Count(&lessons).Error; err != nil {
			return helper.DBError(err)
		}
		if lessons == 0 {
			return fiber.NewError(fiber.StatusConflict, "a module needs at least one lesson before publishing")
		}
	}

	updates := map[string]any{"is_published": publish}
	if publish {
		updates["published_at"] = time.Now().UTC()
	}
	if err := db.Model(m).Updates(updates).Error; err != nil {
		return helper.DBError(err)
	}
	if err := db.First(m, "id = ?", m.ID).Error; err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, tc.DB, audit.Entry{
		Action:     audit.ActionStatus,
		EntityType: entityModule,
		EntityID:   m.ID,
		Changes:    map[string]any{"is_published": publish},
	})
	msg := "module unpublished"
	if publish {
		msg = "module published"
	}
	return helper.JsonUpdated(c, msg, tc.moduleResponse(c, m))
}

// DELETE /api/admin/training-modules/:id
func (tc *TrainingController) DeleteModule(c *fiber.Ctx) error {
	m, err := tc.loadModule(c, "id")
	if err != nil {
		return err
	}
	err = tc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("module_id = ?", m.ID).Delete(&model.TrainingLessonModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(m).Error
	})
	if err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, tc.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityModule,
		EntityID:    m.ID,
		Description: "deleted module " + m.Title,
	})
	return helper.JsonDeleted(c, "module deleted", fiber.Map{"id": m.ID})
}

// GET /api/u/training-progress
func (tc *TrainingController) MyProgress(c *fiber.Ctx) error {
	uid, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	rows, err := service.ProgressForModules(c.UserContext(), tc.DB, uid)
	if err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /api/u/training-modules/:id/progress
func (tc *TrainingController) ModuleProgress(c *fiber.Ctx) error {
	m, err := tc.loadModule(c, "id")
	if err != nil {
		return err
	}
	uid, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	p, err := service.Progress(c.UserContext(), tc.DB, m.ID, uid)
	if err != nil {
		return helper.DBError(err)
	}
	p.Title = m.Title
	return helper.JsonOK(c, "ok", p)
}

/* ===============================
   helpers
=================================*/

// loadModule accepts a uuid or a slug. Unpublished modules are hidden
// from non-staff callers.
func (tc *TrainingController) loadModule(c *fiber.Ctx, param string) (*model.TrainingModuleModel, error) {
	raw := strings.TrimSpace(c.Params(param))
	if raw == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, param+" is required")
	}
	q := tc.DB.WithContext(c.UserContext())
	if id, err := uuid.Parse(raw); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("slug = ?", strings.ToLower(raw))
	}
	if !helperAuth.IsStaff(c) {
		q = q.Where("is_published = ?", true)
	}

	var m model.TrainingModuleModel
	if err := q.Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "training module not found")
		}
		return nil, helper.DBError(err)
	}
	return &m, nil
}

func (tc *TrainingController) lessonCounts(c *fiber.Ctx, modules []model.TrainingModuleModel) (map[uuid.UUID]int, error) {
	out := map[uuid.UUID]int{}
	if len(modules) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(modules))
	for _, m := range modules {
		ids = append(ids, m.ID)
	}
	var rows []struct {
		ModuleID uuid.UUID
		N        int
	}
	if err := tc.DB.WithContext(c.UserContext()).Model(&model.TrainingLessonModel{}).
		Select("module_id, COUNT(*) AS n").
		Where("module_id IN ?", ids).
		Group("module_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ModuleID] = r.N
	}
	return out, nil
}

func (tc *TrainingController) moduleResponse(c *fiber.Ctx, m *model.TrainingModuleModel) dto.ModuleResponse {
	counts, _ := tc.lessonCounts(c, []model.TrainingModuleModel{*m})
	return dto.ToModuleResponse(m, counts[m.ID])
}

func lessonIDs(lessons []model.TrainingLessonModel) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids
}
