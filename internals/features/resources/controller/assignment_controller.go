package controller

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/service"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

// POST /api/admin/resources/:id/assign
func (rc *ResourceController) Assign(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var req dto.AssignRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	a, r, err := service.AssignToEvent(c.UserContext(), rc.DB, id, req, helperAuth.OptionalUserID(c), time.Now().UTC())
	if err != nil {
		return resError(err)
	}
	audit.Record(c, rc.DB, audit.Entry{
		Action:      audit.ActionAssign,
		EntityType:  entityAssignment,
		EntityID:    a.ID,
		Description: "assigned " + r.Name,
		Changes: map[string]any{
			"event_id":           a.EventID.String(),
			"quantity":           a.Quantity,
			"quantity_available": r.QuantityAvailable,
		},
	})
	return helper.JsonCreated(c, "resource assigned", fiber.Map{"assignment": a, "resource": r})
}

// PATCH /api/admin/resource-assignments/:assignmentId/return
func (rc *ResourceController) Return(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "assignmentId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var req dto.ReturnRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	a, r, err := service.ReturnFromEvent(c.UserContext(), rc.DB, id, req, time.Now().UTC())
	if err != nil {
		return resError(err)
	}
	audit.Record(c, rc.DB, audit.Entry{
		Action:      audit.ActionReturn,
		EntityType:  entityAssignment,
		EntityID:    a.ID,
		Description: "returned " + r.Name,
		Changes: map[string]any{
			"returned": a.ReturnedQuantity,
			"damaged":  a.DamagedQuantity,
		},
	})
	return helper.JsonUpdated(c, "resource returned", fiber.Map{"assignment": a, "resource": r})
}

// GET /api/admin/resource-assignments?event_id=&resource_id=&status=
func (rc *ResourceController) ListAssignments(c *fiber.Ctx) error {
	where := []string{"1 = 1"}
	var args []any
	for _, key := range []string{"event_id", "resource_id"} {
		id, err := helper.ParseUUIDQuery(c, key)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if id != nil {
			where = append(where, "a."+key+" = ?")
			args = append(args, *id)
		}
	}
	if s := strings.ToLower(strings.TrimSpace(c.Query("status"))); s != "" {
		where = append(where, "a.status = ?")
		args = append(args, s)
	}
	rows, err := rc.assignments(c, strings.Join(where, " AND "), args...)
	if err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /api/admin/resources/:id/assignments
func (rc *ResourceController) ResourceAssignments(c *fiber.Ctx) error {
	r, err := rc.load(c)
	if err != nil {
		return err
	}
	rows, err := rc.assignments(c, "a.resource_id = ?", r.ID)
	if err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", rows)
}

func (rc *ResourceController) assignments(c *fiber.Ctx, where string, args ...any) ([]dto.AssignmentResponse, error) {
	rows := []dto.AssignmentResponse{}
	err := rc.DB.WithContext(c.UserContext()).
		Table("resource_event_assignments AS a").
		Select(`a.id, a.resource_id, r.name AS resource_name, r.unit, a.event_id, e.title AS event_title,
			a.quantity, a.status, a.assigned_at, a.returned_at, a.returned_quantity, a.damaged_quantity, a.notes`).
		Joins("JOIN resources r ON r.id = a.resource_id").
		Joins("JOIN simulation_events e ON e.id = a.event_id").
		Where(where, args...).
		Order("a.assigned_at DESC").
		Scan(&rows).Error
	return rows, err
}
