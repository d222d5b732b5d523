package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/service"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

// GET /api/admin/resources/:id/maintenance
func (rc *ResourceController) ListMaintenance(c *fiber.Ctx) error {
	r, err := rc.load(c)
	if err != nil {
		return err
	}
	var rows []model.ResourceMaintenanceLogModel
	if err := rc.DB.WithContext(c.UserContext()).
		Where("resource_id = ?", r.ID).
		Order("started_at DESC").
		Find(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", rows)
}

// POST /api/admin/resources/:id/maintenance
func (rc *ResourceController) OpenMaintenance(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var req dto.OpenMaintenanceRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	l, r, err := service.OpenMaintenance(c.UserContext(), rc.DB, id, req, helperAuth.OptionalUserID(c), time.Now().UTC())
	if err != nil {
		return resError(err)
	}
	audit.Record(c, rc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityMaintenance,
		EntityID:    l.ID,
		Description: l.MaintenanceType + " on " + r.Name,
	})
	return helper.JsonCreated(c, "maintenance opened", fiber.Map{"maintenance": l, "resource": r})
}

// PATCH /api/admin/resource-maintenance/:logId/complete
func (rc *ResourceController) CompleteMaintenance(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "logId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var req dto.CompleteMaintenanceRequest
	if len(c.Body()) > 0 {
		if err := helper.BindAndValidate(c, validate, &req); err != nil {
			return err
		}
	}
	l, r, err := service.CompleteMaintenance(c.UserContext(), rc.DB, id, req, time.Now().UTC())
	if err != nil {
		return resError(err)
	}
	audit.Record(c, rc.DB, audit.Entry{
		Action:     audit.ActionStatus,
		EntityType: entityMaintenance,
		EntityID:   l.ID,
		Changes:    map[string]any{"status": l.Status, "resource_status": r.Status},
	})
	return helper.JsonUpdated(c, "maintenance completed", fiber.Map{"maintenance": l, "resource": r})
}
