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
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
)

const (
	entityInject = "scenario_inject"
	entityAction = "scenario_action"
)

/* ===============================
   Injects
=================================*/

// GET /scenarios/:id/injects ordered by offset.
func (sc *ScenarioController) ListInjects(c *fiber.Ctx) error {
	s, err := sc.load(c, false)
	if err != nil {
		return err
	}
	var rows []model.ScenarioInjectModel
	if err := sc.DB.WithContext(c.UserContext()).
		Where("scenario_id = ?", s.ID).
		Order("offset_minutes ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", rows)
}

// POST /api/admin/scenarios/:id/injects
func (sc *ScenarioController) CreateInject(c *fiber.Ctx) error {
	s, err := sc.editable(c)
	if err != nil {
		return err
	}
	var req dto.InjectRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	row := model.ScenarioInjectModel{
		ScenarioID:       s.ID,
		OffsetMinutes:    req.OffsetMinutes,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		ExpectedResponse: req.ExpectedResponse,
	}
	if err := sc.DB.WithContext(c.UserContext()).Create(&row).Error; err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityInject,
		EntityID:    row.ID,
		Description: "added inject " + row.Title + " to " + s.Title,
	})
	return helper.JsonCreated(c, "inject created", row)
}

// PATCH /api/admin/scenarios/:id/injects/:injectId
func (sc *ScenarioController) UpdateInject(c *fiber.Ctx) error {
	s, err := sc.editable(c)
	if err != nil {
		return err
	}
	row, err := sc.loadInject(c, s.ID)
	if err != nil {
		return err
	}
	var req dto.UpdateInjectRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	changes := map[string]any{}
	if req.OffsetMinutes != nil {
		changes["offset_minutes"] = *req.OffsetMinutes
	}
	if req.Title != nil {
		changes["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		changes["description"] = *req.Description
	}
	if req.ExpectedResponse != nil {
		changes["expected_response"] = req.ExpectedResponse
	}
	if len(changes) == 0 {
		return helper.JsonOK(c, "nothing to update", row)
	}
	db := sc.DB.WithContext(c.UserContext())
	if err := db.Model(row).Updates(changes).Error; err != nil {
		return helper.DBError(err)
	}
	if err := db.First(row, "id = ?", row.ID).Error; err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityInject,
		EntityID:   row.ID,
	})
	return helper.JsonUpdated(c, "inject updated", row)
}

// DELETE /api/admin/scenarios/:id/injects/:injectId
// Actions tied to the inject stay on the scenario without an inject.
func (sc *ScenarioController) DeleteInject(c *fiber.Ctx) error {
	s, err := sc.editable(c)
	if err != nil {
		return err
	}
	row, err := sc.loadInject(c, s.ID)
	if err != nil {
		return err
	}
	err = sc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ScenarioExpectedActionModel{}).
			Where("inject_id = ?", row.ID).
			Update("inject_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(row).Error
	})
	if err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityInject,
		EntityID:    row.ID,
		Description: "deleted inject " + row.Title,
	})
	return helper.JsonDeleted(c, "inject deleted", fiber.Map{"id": row.ID})
}

/* ===============================
   Expected actions
=================================*/

// POST /api/admin/scenarios/:id/actions
func (sc *ScenarioController) CreateAction(c *fiber.Ctx) error {
	s, err := sc.editable(c)
	if err != nil {
		return err
	}
	var req dto.ActionRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	if req.InjectID != nil {
		if err := sc.injectBelongs(c, s.ID, *req.InjectID); err != nil {
			return err
		}
	}
	weight := req.Weight
	if weight == 0 {
		weight = 1
	}
	row := model.ScenarioExpectedActionModel{
		ScenarioID:      s.ID,
		InjectID:        req.InjectID,
		Action:          strings.TrimSpace(req.Action),
		ResponsibleRole: strings.TrimSpace(req.ResponsibleRole),
		Weight:          weight,
		SortOrder:       req.SortOrder,
	}
	if row.SortOrder == 0 {
		var n int64
		if err := sc.DB.WithContext(c.UserContext()).Model(&model.ScenarioExpectedActionModel{}).
			Where("scenario_id = ?", s.ID).Count(&n).Error; err != nil {
			return helper.DBError(err)
		}
		row.SortOrder = int(n) + 1
	}
	if err := sc.DB.WithContext(c.UserContext()).Create(&row).Error; err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:     audit.ActionCreate,
		EntityType: entityAction,
		EntityID:   row.ID,
	})
	return helper.JsonCreated(c, "expected action created", row)
}

// PATCH /api/admin/scenarios/:id/actions/:actionId
func (sc *ScenarioController) UpdateAction(c *fiber.Ctx) error {
	s, err := sc.editable(c)
	if err != nil {
		return err
	}
	row, err := sc.loadAction(c, s.ID)
	if err != nil {
		return err
	}
	var req dto.UpdateActionRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	changes := map[string]any{}
	switch {
	case req.ClearInject:
		changes["inject_id"] = nil
	case req.InjectID != nil:
		if err := sc.injectBelongs(c, s.ID, *req.InjectID); err != nil {
			return err
		}
		changes["inject_id"] = *req.InjectID
	}
	if req.Action != nil {
		changes["action"] = strings.TrimSpace(*req.Action)
	}
	if req.ResponsibleRole != nil {
		changes["responsible_role"] = strings.TrimSpace(*req.ResponsibleRole)
	}
	if req.Weight != nil {
		changes["weight"] = *req.Weight
	}
	if req.SortOrder != nil {
		changes["sort_order"] = *req.SortOrder
	}
	if len(changes) == 0 {
		return helper.JsonOK(c, "nothing to update", row)
	}
	db := sc.DB.WithContext(c.UserContext())
	if err := db.Model(row).Updates(changes).Error; err != nil {
		return helper.DBError(err)
	}
	if err := db.First(row, "id = ?", row.ID).Error; err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityAction,
		EntityID:   row.ID,
	})
	return helper.JsonUpdated(c, "expected action updated", row)
}

// DELETE /api/admin/scenarios/:id/actions/:actionId
func (sc *ScenarioController) DeleteAction(c *fiber.Ctx) error {
	s, err := sc.editable(c)
	if err != nil {
		return err
	}
	row, err := sc.loadAction(c, s.ID)
	if err != nil {
		return err
	}
	if err := sc.DB.WithContext(c.UserContext()).Delete(row).Error; err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, sc.DB, audit.Entry{
		Action:     audit.ActionDelete,
		EntityType: entityAction,
		EntityID:   row.ID,
	})
	return helper.JsonDeleted(c, "expected action deleted", fiber.Map{"id": row.ID})
}

/* ===============================
   helpers
=================================*/

func (sc *ScenarioController) editable(c *fiber.Ctx) (*model.ScenarioModel, error) {
	s, err := sc.load(c, false)
	if err != nil {
		return nil, err
	}
	if s.Status == model.StatusArchived {
		return nil, fiber.NewError(fiber.StatusConflict, "archived scenarios are read-only")
	}
	return s, nil
}

func (sc *ScenarioController) loadInject(c *fiber.Ctx, scenarioID uuid.UUID) (*model.ScenarioInjectModel, error) {
	id, err := helper.ParseUUIDParam(c, "injectId")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var row model.ScenarioInjectModel
	if err := sc.DB.WithContext(c.UserContext()).
		Where("id = ? AND scenario_id = ?", id, scenarioID).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "inject not found")
		}
		return nil, helper.DBError(err)
	}
	return &row, nil
}

func (sc *ScenarioController) loadAction(c *fiber.Ctx, scenarioID uuid.UUID) (*model.ScenarioExpectedActionModel, error) {
	id, err := helper.ParseUUIDParam(c, "actionId")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var row model.ScenarioExpectedActionModel
	if err := sc.DB.WithContext(c.UserContext()).
		Where("id = ? AND scenario_id = ?", id, scenarioID).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "expected action not found")
		}
		return nil, helper.DBError(err)
	}
	return &row, nil
}

func (sc *ScenarioController) injectBelongs(c *fiber.Ctx, scenarioID, injectID uuid.UUID) error {
	var n int64
	if err := sc.DB.WithContext(c.UserContext()).Model(&model.ScenarioInjectModel{}).
		Where("id = ? AND scenario_id = ?", injectID, scenarioID).
		Count(&n).Error; err != nil {
		return helper.DBError(err)
	}
	if n == 0 {
		return helper.NewFieldError("inject_id", "inject does not belong to this scenario")
	}
	return nil
}
