package controller

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	barangayModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/service"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
)

const (
	entityResource    = "resource"
	entityAssignment  = "resource_assignment"
	entityMaintenance = "resource_maintenance"
)

var validate = helper.NewValidator()

type ResourceController struct {
	DB *gorm.DB
}

func NewResourceController(db *gorm.DB) *ResourceController {
	return &ResourceController{DB: db}
}

var resourceSort = map[string]string{
	"name":      "name",
	"category":  "category",
	"available": "quantity_available",
	"total":     "quantity_total",
	"created":   "created_at",
}

// GET /api/admin/resources?q=&category=&status=&barangay_id=&low_stock=
func (rc *ResourceController) List(c *fiber.Ctx) error {
	q := rc.DB.WithContext(c.UserContext()).Model(&model.ResourceModel{})

	if s := strings.ToLower(strings.TrimSpace(c.Query("q"))); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?", like, like)
	}
	if v := strings.ToLower(strings.TrimSpace(c.Query("category"))); v != "" {
		q = q.Where("category = ?", v)
	}
	if v := strings.ToLower(strings.TrimSpace(c.Query("status"))); v != "" {
		q = q.Where("status = ?", v)
	}
	bid, err := helper.ParseUUIDQuery(c, "barangay_id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if bid != nil {
		q = q.Where("barangay_id = ?", *bid)
	}
	if low := helper.ParseBoolQuery(c, "low_stock"); low != nil && *low {
		q = q.Where("quantity_total > 0 AND quantity_available * 5 <= quantity_total")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.DBError(err)
	}
	p := helper.ResolvePaging(c, helper.DefaultPerPage, helper.MaxPerPage)
	var rows []model.ResourceModel
	if err := q.Order(helper.SafeOrder(c, resourceSort, "name", "asc")).
		Offset(p.Offset).Limit(p.Limit).Find(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonList(c, "ok", rows, p.Build(total))
}

// GET /api/admin/resources/:id with active assignments and open maintenance.
func (rc *ResourceController) Get(c *fiber.Ctx) error {
	r, err := rc.load(c)
	if err != nil {
		return err
	}
	db := rc.DB.WithContext(c.UserContext())

	active, err := rc.assignments(c, "a.resource_id = ? AND a.status = ?", r.ID, model.AssignmentAssigned)
	if err != nil {
		return helper.DBError(err)
	}
	var open []model.ResourceMaintenanceLogModel
	if err := db.Where("resource_id = ? AND status = ?", r.ID, model.MaintenanceOpen).
		Order("started_at DESC").Find(&open).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", fiber.Map{
		"resource":           r,
		"assigned":           r.Assigned(),
		"low_stock":          r.IsLowStock(),
		"active_assignments": active,
		"open_maintenance":   open,
	})
}

// POST /api/admin/resources
func (rc *ResourceController) Create(c *fiber.Ctx) error {
	var req dto.CreateResourceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Normalize()
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}
	if err := rc.checkBarangay(c, req.BarangayID); err != nil {
		return err
	}

	r := model.ResourceModel{
		Name:              req.Name,
		Category:          req.Category,
		Description:       req.Description,
		Unit:              req.Unit,
		QuantityTotal:     req.QuantityTotal,
		QuantityAvailable: req.QuantityTotal,
		Status:            model.ResourceAvailable,
		Location:          req.Location,
		BarangayID:        req.BarangayID,
	}
	if err := rc.DB.WithContext(c.UserContext()).Create(&r).Error; err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, rc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityResource,
		EntityID:    r.ID,
		Description: "added resource " + r.Name,
		Changes:     map[string]any{"quantity_total": r.QuantityTotal},
	})
	return helper.JsonCreated(c, "resource created", r)
}

// PATCH /api/admin/resources/:id
// quantity_total moves available by the same delta and cannot drop below
// the quantity out on events.
func (rc *ResourceController) Update(c *fiber.Ctx) error {
	r, err := rc.load(c)
	if err != nil {
		return err
	}
	var req dto.UpdateResourceRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	if err := rc.checkBarangay(c, req.BarangayID); err != nil {
		return err
	}

	ctx := c.UserContext()
	changes := map[string]any{}
	if req.QuantityTotal != nil || req.Status != nil {
		updated, err := service.UpdateStock(ctx, rc.DB, r.ID, req.QuantityTotal, req.Status)
		if err != nil {
			return resError(err)
		}
		if updated.QuantityTotal != r.QuantityTotal {
			changes["quantity_total"] = map[string]int{"from": r.QuantityTotal, "to": updated.QuantityTotal}
		}
		if updated.Status != r.Status {
			changes["status"] = map[string]string{"from": r.Status, "to": updated.Status}
		}
		r = updated
	}

	meta := map[string]any{}
	if req.Name != nil {
		meta["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		meta["category"] = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Description != nil {
		meta["description"] = *req.Description
	}
	if req.Unit != nil {
		meta["unit"] = strings.ToLower(strings.TrimSpace(*req.Unit))
	}
	if req.Location != nil {
		meta["location"] = strings.TrimSpace(*req.Location)
	}
	if req.BarangayID != nil {
		meta["barangay_id"] = *req.BarangayID
	}
	if len(meta) > 0 {
		db := rc.DB.WithContext(ctx)
		if err := db.Model(r).Updates(meta).Error; err != nil {
			return helper.DBError(err)
		}
		if err := db.First(r, "id = ?", r.ID).Error; err != nil {
			return helper.DBError(err)
		}
		delete(meta, "description")
		for k, v := range meta {
			changes[k] = v
		}
	}
	if len(changes) == 0 {
		return helper.JsonOK(c, "nothing to update", r)
	}

	audit.Record(c, rc.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityResource,
		EntityID:   r.ID,
		Changes:    changes,
	})
	return helper.JsonUpdated(c, "resource updated", r)
}

// DELETE /api/admin/resources/:id
func (rc *ResourceController) Delete(c *fiber.Ctx) error {
	r, err := rc.load(c)
	if err != nil {
		return err
	}
	if r.Assigned() > 0 {
		return resError(service.ErrResourceInUse)
	}
	if err := rc.DB.WithContext(c.UserContext()).Delete(r).Error; err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, rc.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityResource,
		EntityID:    r.ID,
		Description: "deleted resource " + r.Name,
	})
	return helper.JsonDeleted(c, "resource deleted", fiber.Map{"id": r.ID})
}

/* ===============================
   helpers
=================================*/

func (rc *ResourceController) load(c *fiber.Ctx) (*model.ResourceModel, error) {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var r model.ResourceModel
	if err := rc.DB.WithContext(c.UserContext()).First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, service.ErrResourceNotFound.Error())
		}
		return nil, helper.DBError(err)
	}
	return &r, nil
}

func (rc *ResourceController) checkBarangay(c *fiber.Ctx, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := rc.DB.WithContext(c.UserContext()).Model(&barangayModel.BarangayProfileModel{}).
		Where("id = ?", *id).Count(&n).Error; err != nil {
		return helper.DBError(err)
	}
	if n == 0 {
		return helper.NewFieldError("barangay_id", "barangay not found")
	}
	return nil
}

func resError(err error) error {
	switch {
	case errors.Is(err, service.ErrResourceNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrMaintenanceNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEventNotFound):
		return helper.NewFieldError("event_id", err.Error())
	case errors.Is(err, service.ErrInvalidQuantity):
		return helper.NewFieldError("quantity", err.Error())
	case errors.Is(err, service.ErrReturnMismatch):
		return helper.NewFieldError("returned_quantity", err.Error())
	case errors.Is(err, service.ErrTotalBelowAssigned):
		return helper.NewFieldError("quantity_total", err.Error())
	case errors.Is(err, service.ErrResourceUnavailable),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrEventClosed),
		errors.Is(err, service.ErrAlreadyReturned),
		errors.Is(err, service.ErrResourceInUse),
		errors.Is(err, service.ErrMaintenanceClosed),
		errors.Is(err, service.ErrMaintenanceOpen):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return helper.DBError(err)
}
