package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/dashboard/service"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/dbtime"
)

type DashboardController struct {
	DB *gorm.DB
}

func NewDashboardController(db *gorm.DB) *DashboardController {
	return &DashboardController{DB: db}
}

// GET /api/admin/dashboard
func (dc *DashboardController) Summary(c *fiber.Ctx) error {
	s, err := service.Build(c.UserContext(), dc.DB, dbtime.NowUTC())
	if err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", s)
}
