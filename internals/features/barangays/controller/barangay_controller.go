package controller

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	audit "github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/service"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/dto"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
)

const entityBarangay = "barangay"

var validate = helper.NewValidator()

type BarangayController struct {
	DB *gorm.DB
}

func NewBarangayController(db *gorm.DB) *BarangayController {
	return &BarangayController{DB: db}
}

var barangaySort = map[string]string{
	"name":         "name",
	"municipality": "municipality",
	"population":   "population",
	"created_at":   "created_at",
}

// GET /barangays?q=&municipality=&hazard=
func (bc *BarangayController) List(c *fiber.Ctx) error {
	q := bc.DB.WithContext(c.UserContext()).Model(&model.BarangayProfileModel{})

	if s := strings.ToLower(strings.TrimSpace(c.Query("q"))); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(municipality) LIKE ? OR LOWER(province) LIKE ?", like, like, like)
	}
	if m := strings.TrimSpace(c.Query("municipality")); m != "" {
		q = q.Where("LOWER(municipality) = ?", strings.ToLower(m))
	}
	// hazards holds a "{a,b}" array literal on every driver
	if h := strings.ToLower(strings.TrimSpace(c.Query("hazard"))); h != "" {
		q = q.Where("CAST(hazards AS TEXT) LIKE ?", "%"+h+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.DBError(err)
	}
	p := helper.ResolvePaging(c, helper.DefaultPerPage, helper.MaxPerPage)
	var rows []model.BarangayProfileModel
	if err := q.Order(helper.SafeOrder(c, barangaySort, "name", "asc")).
		Offset(p.Offset).Limit(p.Limit).Find(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonList(c, "ok", rows, p.Build(total))
}

// GET /barangays/:id
func (bc *BarangayController) Get(c *fiber.Ctx) error {
	b, err := bc.load(c)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", b)
}

// POST /api/admin/barangays
func (bc *BarangayController) Create(c *fiber.Ctx) error {
	var req dto.CreateBarangayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Normalize()
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}

	db := bc.DB.WithContext(c.UserContext())
	if err := ensureUniqueName(db, uuid.Nil, req.Name, req.Municipality); err != nil {
		return err
	}
	b := req.ToModel()
	if err := db.Create(b).Error; err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, bc.DB, audit.Entry{
		Action:      audit.ActionCreate,
		EntityType:  entityBarangay,
		EntityID:    b.ID,
		Description: "created barangay " + b.Name,
	})
	return helper.JsonCreated(c, "barangay created", b)
}

// PATCH /api/admin/barangays/:id
func (bc *BarangayController) Update(c *fiber.Ctx) error {
	b, err := bc.load(c)
	if err != nil {
		return err
	}
	var req dto.UpdateBarangayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.Validate(validate, &req); err != nil {
		return err
	}

	changes := req.Apply(b)
	if len(changes) == 0 {
		return helper.JsonOK(c, "nothing to update", b)
	}
	if b.Name == "" || b.Municipality == "" {
		return helper.NewFieldError("name", "name and municipality cannot be blank")
	}

	db := bc.DB.WithContext(c.UserContext())
	_, nameSet := changes["name"]
	_, muniSet := changes["municipality"]
	if nameSet || muniSet {
		if err := ensureUniqueName(db, b.ID, b.Name, b.Municipality); err != nil {
			return err
		}
	}
	if err := db.Save(b).Error; err != nil {
		return helper.DBError(err)
	}

	audit.Record(c, bc.DB, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityBarangay,
		EntityID:   b.ID,
		Changes:    changes,
	})
	return helper.JsonUpdated(c, "barangay updated", b)
}

// DELETE /api/admin/barangays/:id
func (bc *BarangayController) Delete(c *fiber.Ctx) error {
	b, err := bc.load(c)
	if err != nil {
		return err
	}
	if err := bc.DB.WithContext(c.UserContext()).Delete(b).Error; err != nil {
		return helper.DBError(err)
	}
	audit.Record(c, bc.DB, audit.Entry{
		Action:      audit.ActionDelete,
		EntityType:  entityBarangay,
		EntityID:    b.ID,
		Description: "deleted barangay " + b.Name,
	})
	return helper.JsonDeleted(c, "barangay deleted", fiber.Map{"id": b.ID})
}

func (bc *BarangayController) load(c *fiber.Ctx) (*model.BarangayProfileModel, error) {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var b model.BarangayProfileModel
	if err := bc.DB.WithContext(c.UserContext()).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "barangay not found")
		}
		return nil, helper.DBError(err)
	}
	return &b, nil
}

// ensureUniqueName compares case-insensitively within one municipality.
func ensureUniqueName(db *gorm.DB, self uuid.UUID, name, municipality string) error {
	q := db.Model(&model.BarangayProfileModel{}).
		Where("LOWER(name) = ? AND LOWER(municipality) = ?", strings.ToLower(name), strings.ToLower(municipality))
	if self != uuid.Nil {
		q = q.Where("id <> ?", self)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return helper.DBError(err)
	}
	if n > 0 {
		return fiber.NewError(fiber.StatusConflict, "barangay already exists in this municipality")
	}
	return nil
}
