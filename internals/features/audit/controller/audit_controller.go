package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
)

type AuditController struct {
	DB *gorm.DB
}

func NewAuditController(db *gorm.DB) *AuditController {
	return &AuditController{DB: db}
}

// GET /api/admin/audit-logs?actor_id=&entity_type=&entity_id=&action=&from=&to=
func (ac *AuditController) List(c *fiber.Ctx) error {
	q := ac.DB.WithContext(c.UserContext()).Model(&model.AuditLogModel{})

	actorID, err := helper.ParseUUIDQuery(c, "actor_id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if actorID != nil {
		q = q.Where("actor_id = ?", *actorID)
	}
	entityID, err := helper.ParseUUIDQuery(c, "entity_id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if entityID != nil {
		q = q.Where("entity_id = ?", *entityID)
	}
	if v := strings.TrimSpace(c.Query("entity_type")); v != "" {
		q = q.Where("entity_type = ?", v)
	}
	if v := strings.TrimSpace(c.Query("action")); v != "" {
		q = q.Where("action = ?", v)
	}

	from, err := helper.ParseDateQuery(c, "from")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if from != nil {
		q = q.Where("created_at >= ?", from.UTC())
	}
	to, err := helper.ParseDateQuery(c, "to")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if to != nil {
		end := *to
		if end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0 {
			end = end.AddDate(0, 0, 1)
		}
		q = q.Where("created_at < ?", end.UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.DBError(err)
	}

	p := helper.ResolvePaging(c, helper.DefaultPerPage, helper.MaxPerPage)
	var rows []model.AuditLogModel
	if err := q.Order("created_at DESC").Offset(p.Offset).Limit(p.Limit).Find(&rows).Error; err != nil {
		return helper.DBError(err)
	}
	return helper.JsonList(c, "ok", rows, p.Build(total))
}
