package controller

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/service"
	simModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtypes"
)

const entityScenario = "scenario"

var validate = helper.NewValidator()

type ScenarioController struct {
	DB *gorm.DB
}

func NewScenarioController(db *gorm.DB) *ScenarioController {
	return &ScenarioController{DB: db}
}

var scenarioSort = map[string]string{
	"title":      "title",
	"created_at": "created_at",
	"hazard":     "hazard_type",
	"duration":   "duration_minutes",
}

// GET /scenarios?q=&hazard_type=&status=&difficulty=&ai_generated=
// Non-staff callers only see published scenarios.
func (sc *ScenarioController) List(c *fiber.Ctx) error {
	q := sc.DB.WithContext(c.UserContext()).Model(&model.ScenarioModel{})

	if !helperAuth.IsStaff(c) {
		q = q.Where("status = ?", model.StatusPublished)
	} else if s := strings.ToLower(strings.TrimSpace(c.Query("status"))); s != "" {
		q = q.Where("status = ?", s)
	}
	if s := strings.ToLower(strings.TrimSpace(c.Query("q"))); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if v := strings.ToLower(strings.TrimSpace(c.Query("hazard_type"))); v != "" {
		q = q.Where("hazard_type = ?", v)
	}
	if v := strings.ToLower(strings.TrimSpace(c.Query("difficulty"))); v != "" {
		q = q.Where("difficulty = ?", v)
	}
	if ai := helper.ParseBoolQuery(c, "ai_generated"); ai != nil {
		q = q.Where("ai_generated = ?", *ai)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.DBError(err)
	}
	p := helper.ResolvePaging(c, helper.DefaultPerPage, helper.MaxPerPage)
	var rows []model.ScenarioModel
	if err := q.Order(helper.SafeOrder(c, scenarioSort, "created_at", "desc")).
		Offset(p.Offset).Limit(p.Limit).Find(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonList(c, "ok", rows, p.Build(total))
}

// GET /scenarios/:id (uuid or slug) with injects and expected actions.
func (sc *ScenarioController) Get(c *fiber.Ctx) error {
	s, err := sc.load(c, true)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", s)
}

// POST /api/admin/scenarios
func (sc *ScenarioController) Create(c *fiber.Ctx) error {
	var req dto.CreateScenarioRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Normalize()
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	slug, err := helper.EnsureUniqueSlug(ctx, sc.DB, "scenarios", "slug", helper.Slugify(req.Title, service.SlugMaxLen), nil, service.SlugMaxLen)
	if err != nil {
		return helper.DBError(err)
	}
	tags := req.HazardTags
	if len(tags) == 0 {
		tags = []string{req.HazardType}
	}
	s := model.ScenarioModel{
		Title:           req.Title,
		Slug:            slug,
		HazardType:      req.HazardType,
		Description:     req.Description,
		Objectives:      req.Objectives,
		Setting:         req.Setting,
		Difficulty:      req.Difficulty,
		DurationMinutes: req.DurationMinutes,
		HazardTags:      dbtypes.StringList(tags),
		Status:          model.StatusDraft,
		CreatedBy:       helperAuth.OptionalUserID(c),
	}
	if err := sc.DB.WithContext(ctx).Create(&s).Error; err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, sc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityScenario,
		EntityID:    s.ID,
		Description: "created scenario " + s.Title,
	})
	return helper.JsonCreated(c, "scenario created", s)
}

// PATCH /api/admin/scenarios/:id
func (sc *ScenarioController) Update(c *fiber.Ctx) error {
	s, err := sc.load(c, false)
	if err != nil {
		return err
	}
	if s.Status == model.StatusArchived {
		return fiber.NewError(fiber.StatusConflict, "archived scenarios are read-only")
	}
	var req dto.UpdateScenarioRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	changes := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title != s.Title {
			slug, err := helper.EnsureUniqueSlug(ctx, sc.DB, "scenarios", "slug", helper.Slugify(title, service.SlugMaxLen), s.ID, service.SlugMaxLen)
			if err != nil {
				return helper.DBError(err)
			}
			changes["title"], changes["slug"] = title, slug
		}
	}
	if req.HazardType != nil {
		changes["hazard_type"] = strings.ToLower(strings.TrimSpace(*req.HazardType))
	}
	if req.Description != nil {
		changes["description"] = *req.Description
	}
	if req.Objectives != nil {
		changes["objectives"] = req.Objectives
	}
	if req.Setting != nil {
		changes["setting"] = req.Setting
	}
	if req.Difficulty != nil {
		changes["difficulty"] = strings.ToLower(*req.Difficulty)
	}
	if req.DurationMinutes != nil {
		changes["duration_minutes"] = *req.DurationMinutes
	}
	if req.HazardTags != nil {
		changes["hazard_tags"] = dbtypes.StringList(dto.NormalizeTags(*req.HazardTags))
	}
	if len(changes) == 0 {
		return helper.JsonOK(c, "nothing to update", s)
	}

	db := sc.DB.WithContext(ctx)
	if err := db.Model(s).Updates(changes).Error; err != nil {
		return helper.DBError(err)
	}
	if err := db.First(s, "id = ?", s.ID).Error; err != nil {
		return helper.DBError(err)
	}

	delete(changes, "description")
	audit.Record(c, sc.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityScenario,
		EntityID:   s.ID,
		Changes:    changes,
	})
	return helper.JsonUpdated(c, "scenario updated", s)
}

// PATCH /api/admin/scenarios/:id/publish
func (sc *ScenarioController) Publish(c *fiber.Ctx) error {
	return sc.changeStatus(c, model.StatusPublished)
}

// PATCH /api/admin/scenarios/:id/archive
func (sc *ScenarioController) Archive(c *fiber.Ctx) error {
	return sc.changeStatus(c, model.StatusArchived)
}

// PATCH /api/admin/scenarios/:id/restore moves an archived scenario back to draft.
func (sc *ScenarioController) Restore(c *fiber.Ctx) error {
	return sc.changeStatus(c, model.StatusDraft)
}

func (sc *ScenarioController) changeStatus(c *fiber.Ctx, to string) error {
	s, err := sc.load(c, false)
	if err != nil {
		return err
	}
	if !service.CanChangeStatus(s.Status, to) {
		return fiber.NewError(fiber.StatusConflict, "cannot move scenario from "+s.Status+" to "+to)
	}
	from := s.Status
	if err := sc.DB.WithContext(c.UserContext()).Model(s).Update("status", to).Error; err != nil {
		return helper.DBError(err)
	}
	s.Status = to

	audit.Record(c, sc.DB, audit.Entry{
		Action:     audit.ActionStatus,
		EntityType: entityScenario,
		EntityID:   s.ID,
		Changes:    map[string]any{"from": from, "to": to},
	})
	return helper.JsonUpdated(c, "scenario "+to, s)
}

// DELETE /api/admin/scenarios/:id
// Refused while a draft, published or ongoing event still uses the scenario.
func (sc *ScenarioController) Delete(c *fiber.Ctx) error {
	s, err := sc.load(c, false)
	if err != nil {
		return err
	}
	db := sc.DB.WithContext(c.UserContext())

	var inUse int64
	if err := db.Model(&simModel.SimulationEventModel{}).
		Where("scenario_id = ? AND status IN ?", s.ID,
			[]string{simModel.EventDraft, simModel.EventPublished, simModel.EventOngoing}).
		Count(&inUse).Error; err != nil {
		return helper.DBError(err)
	}
	if inUse > 0 {
		return fiber.NewError(fiber.StatusConflict, "scenario is used by active simulation events")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scenario_id = ?", s.ID).Delete(&model.ScenarioExpectedActionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("scenario_id = ?", s.ID).Delete(&model.ScenarioInjectModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(s).Error
	})
	if err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, sc.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityScenario,
		EntityID:    s.ID,
		Description: "deleted scenario " + s.Title,
	})
	return helper.JsonDeleted(c, "scenario deleted", fiber.Map{"id": s.ID})
}

// POST /api/admin/scenarios/generate
func (sc *ScenarioController) Generate(c *fiber.Ctx) error {
	return service.GenerateScenario(sc.DB, c)
}

// load accepts a uuid or slug; drafts and archives are hidden from non-staff.
func (sc *ScenarioController) load(c *fiber.Ctx, withChildren bool) (*model.ScenarioModel, error) {
	raw := strings.TrimSpace(c.Params("id"))
	q := sc.DB.WithContext(c.UserContext())
	if id, err := uuid.Parse(raw); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("slug = ?", strings.ToLower(raw))
	}
	if !helperAuth.IsStaff(c) {
		q = q.Where("status = ?", model.StatusPublished)
	}
	if withChildren {
		q = q.Preload("Injects", func(db *gorm.DB) *gorm.DB {
			return db.Order("offset_minutes ASC, created_at ASC")
		}).Preload("ExpectedActions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		})
	}

	var s model.ScenarioModel
	if err := q.Take(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "scenario not found")
		}
		return nil, helper.DBError(err)
	}
	return &s, nil
}
